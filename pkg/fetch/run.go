package fetch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/deploymetrics/harness-export/pkg/extract"
)

// Sink receives record batches in the order they are produced. Batches are
// delivered per project as each one completes, so a sink can flush
// incrementally; batches flushed before a later failure are preserved.
type Sink interface {
	Write(records []extract.Record) error
}

// Result summarizes one export run. The accumulator is threaded through
// the run loop rather than held in package state.
type Result struct {
	RunID    string
	Projects int
	Excluded int
	Records  int
}

// Run drives a whole export: project discovery (unless projectID is given),
// exclusion filtering, per-project fetch via FetchProject, and incremental
// delivery to the sink. A terminal fetch failure aborts the run; the
// partial Result reflects what was delivered before the failure.
func (f *Fetcher) Run(ctx context.Context, projectID string, w Window, sink Sink) (Result, error) {
	result := Result{RunID: uuid.NewString()}

	logger := f.logger.With().Str("run_id", result.RunID).Logger()

	logger.Info().
		Int64("window_start", w.Start).
		Int64("window_end", w.End).
		Str("window", w.String()).
		Msg("Starting export run")

	var projects []string
	if projectID != "" {
		projects = []string{projectID}
	} else {
		all, err := f.ListAllProjects(ctx)
		if err != nil {
			return result, err
		}

		excluded := make(map[string]bool, len(f.opts.ExcludeProjects))
		for _, id := range f.opts.ExcludeProjects {
			excluded[id] = true
		}

		for _, id := range all {
			if excluded[id] {
				result.Excluded++
				continue
			}
			projects = append(projects, id)
		}

		if result.Excluded > 0 {
			logger.Info().Int("excluded", result.Excluded).Msg("Excluded projects")
		}
	}

	for i, id := range projects {
		logger.Info().
			Str("project", id).
			Int("index", i+1).
			Int("projects", len(projects)).
			Msg("Processing project")

		records, err := f.FetchProject(ctx, id, w)
		if err != nil {
			return result, fmt.Errorf("project %s: %w", id, err)
		}

		if len(records) > 0 {
			if err := sink.Write(records); err != nil {
				return result, fmt.Errorf("write records for project %s: %w", id, err)
			}
			result.Records += len(records)
		}

		result.Projects++

		logger.Info().
			Str("project", id).
			Int("records", len(records)).
			Int("total_records", result.Records).
			Msg("Project complete")

		// Throttle between projects, never after the last.
		if i < len(projects)-1 {
			if err := f.delay.Wait(ctx); err != nil {
				return result, err
			}
		}
	}

	logger.Info().
		Int("projects", result.Projects).
		Int("records", result.Records).
		Msg("Export run complete")

	return result, nil
}
