package fetch

import (
	"context"
	"fmt"

	"github.com/deploymetrics/harness-export/pkg/extract"
)

// FetchProject fetches every execution of one project within the window.
//
// A single probe of page 0 reads the total matching count. Within the
// server's queryable cap the probe page is handed to FetchWindow and the
// remaining pages are walked normally. Above the cap the window is split
// into fixed-width sub-windows, each paginated independently and
// concatenated in chronological window order. The server truncates any
// query whose total exceeds the cap, so fetching an over-large window
// whole would silently lose data.
func (f *Fetcher) FetchProject(ctx context.Context, projectID string, w Window) ([]extract.Record, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	logger := f.logger.With().Str("project", projectID).Logger()

	probe, err := f.api.ListExecutions(ctx, projectID, 0, f.opts.PageSize, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("probe fetch: %w", err)
	}
	pagesFetchedTotal.Inc()

	if probe.TotalElements <= f.opts.SplitThreshold {
		logger.Info().
			Int("total_elements", probe.TotalElements).
			Msg("Total executions within query limit")
		return f.FetchWindow(ctx, projectID, w, probe)
	}

	windows := w.Split(f.opts.SplitWindow)
	windowsSplitTotal.Inc()

	logger.Info().
		Int("total_elements", probe.TotalElements).
		Int("query_limit", f.opts.SplitThreshold).
		Msg("Total executions exceed query limit, splitting time range")

	var records []extract.Record
	for i, sub := range windows {
		// Throttle between sub-windows, never after the last.
		if i > 0 {
			if err := f.delay.Wait(ctx); err != nil {
				return nil, err
			}
		}

		logger.Info().
			Int("batch", i+1).
			Int("batches", len(windows)).
			Str("window", sub.String()).
			Msg("Fetching sub-window")

		// Each sub-window runs its own probe and page walk; sub-window
		// counts are assumed to fit under the cap.
		batch, err := f.FetchWindow(ctx, projectID, sub, nil)
		if err != nil {
			return nil, fmt.Errorf("sub-window %d (%s): %w", i+1, sub, err)
		}

		records = append(records, batch...)

		logger.Info().
			Int("batch", i+1).
			Int("records", len(batch)).
			Msg("Sub-window complete")
	}

	return records, nil
}
