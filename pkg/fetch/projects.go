package fetch

import (
	"context"
	"fmt"
)

// ListAllProjects paginates the project-listing endpoint and returns every
// discovered project identifier in server order. Duplicates the server
// returns are preserved. Failures propagate immediately: the project
// endpoint is never retried.
func (f *Fetcher) ListAllProjects(ctx context.Context) ([]string, error) {
	var projects []string
	pageIndex := 0

	f.logger.Info().Msg("Fetching all projects")

	for {
		page, err := f.api.ListProjects(ctx, pageIndex, f.opts.ProjectPageSize)
		if err != nil {
			return nil, fmt.Errorf("list projects page %d: %w", pageIndex, err)
		}

		ids := page.Identifiers()
		projects = append(projects, ids...)

		f.logger.Debug().
			Int("page", pageIndex).
			Int("projects", len(ids)).
			Msg("Processed project page")

		if pageIndex >= page.TotalPages-1 {
			break
		}

		pageIndex++

		if err := f.delay.Wait(ctx); err != nil {
			return nil, err
		}
	}

	f.logger.Info().Int("projects", len(projects)).Msg("Project discovery complete")
	return projects, nil
}
