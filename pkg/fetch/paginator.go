package fetch

import (
	"context"
	"fmt"

	"github.com/deploymetrics/harness-export/pkg/extract"
	"github.com/deploymetrics/harness-export/pkg/harness"
)

// extractParams builds the record-extraction parameters for one project.
func (f *Fetcher) extractParams(projectID string) extract.Params {
	return extract.Params{
		BaseURL:   f.api.BaseURL(),
		AccountID: f.api.AccountID(),
		OrgID:     f.api.OrgID(),
		ProjectID: projectID,
		EnvFilter: f.opts.EnvFilter,
	}
}

// FetchWindow walks every page of one bounded window and returns the
// extracted records in page order. When the caller already probed page 0
// it passes the page in and its records are reused, not re-fetched.
// totalPages == 0 is an empty result, not an error.
func (f *Fetcher) FetchWindow(ctx context.Context, projectID string, w Window, probe *harness.ExecutionPage) ([]extract.Record, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	logger := f.logger.With().
		Str("project", projectID).
		Int64("window_start", w.Start).
		Int64("window_end", w.End).
		Logger()

	params := f.extractParams(projectID)

	if probe == nil {
		page, err := f.api.ListExecutions(ctx, projectID, 0, f.opts.PageSize, w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("fetch page 0: %w", err)
		}
		pagesFetchedTotal.Inc()
		probe = page
	}

	totalPages := probe.TotalPages

	logger.Info().
		Int("total_pages", totalPages).
		Int("total_elements", probe.TotalElements).
		Msg("Fetching execution pages")

	records := extract.FromPage(probe, params)
	logger.Debug().
		Int("page", 0).
		Int("records", len(records)).
		Msg("Processed page")

	for page := 1; page < totalPages; page++ {
		// Throttle between consecutive page fetches, never after the last.
		if err := f.delay.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := f.api.ListExecutions(ctx, projectID, page, f.opts.PageSize, w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		pagesFetchedTotal.Inc()

		pageRecords := extract.FromPage(resp, params)
		records = append(records, pageRecords...)

		logger.Debug().
			Int("page", page).
			Int("total_pages", totalPages).
			Int("records", len(pageRecords)).
			Msg("Processed page")
	}

	recordsTotal.Add(float64(len(records)))
	return records, nil
}
