// Package fetch implements the paginated batch-fetch orchestration:
// walking multi-page result sets, splitting over-large time ranges into
// sub-windows, enumerating projects, and driving a whole export run.
package fetch

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/deploymetrics/harness-export/pkg/harness"
)

// Prometheus metrics for fetch orchestration.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harness_export_pages_fetched_total",
		Help: "Total execution pages fetched",
	})

	windowsSplitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harness_export_windows_split_total",
		Help: "Total time ranges split into sub-windows",
	})

	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harness_export_records_total",
		Help: "Total stage records extracted",
	})
)

// API is the subset of the Harness client the fetcher uses.
type API interface {
	ListExecutions(ctx context.Context, projectID string, page, pageSize int, startTime, endTime int64) (*harness.ExecutionPage, error)
	ListProjects(ctx context.Context, pageIndex, pageSize int) (*harness.ProjectPage, error)
	BaseURL() string
	AccountID() string
	OrgID() string
}

// Options holds fetch orchestration configuration.
type Options struct {
	// PageSize is the execution page size.
	PageSize int

	// ProjectPageSize is the project-listing page size.
	ProjectPageSize int

	// EnvFilter is the environment type stages must match.
	EnvFilter string

	// SplitThreshold is the server-side cap on queryable result count per
	// filter. A window whose probe reports more elements than this is
	// split; fetching it whole would silently truncate at the cap.
	SplitThreshold int

	// SplitWindow is the width of the sub-windows a split produces.
	SplitWindow time.Duration

	// ExcludeProjects lists project identifiers to skip after discovery.
	ExcludeProjects []string
}

// DefaultOptions returns defaults matching the documented Harness limits.
func DefaultOptions() Options {
	return Options{
		PageSize:        50,
		ProjectPageSize: 20,
		EnvFilter:       "Production",
		SplitThreshold:  10000,
		SplitWindow:     10 * 24 * time.Hour,
	}
}

// Fetcher orchestrates paginated execution fetching for an export run.
// All network calls are strictly sequential; the remote rate-limits and the
// Delayer throttles consecutive calls.
type Fetcher struct {
	api    API
	opts   Options
	delay  Delayer
	logger zerolog.Logger
}

// New creates a Fetcher. A nil delayer gets the default jittered delay.
func New(api API, opts Options, delay Delayer) *Fetcher {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.ProjectPageSize <= 0 {
		opts.ProjectPageSize = 20
	}
	if opts.SplitThreshold <= 0 {
		opts.SplitThreshold = 10000
	}
	if opts.SplitWindow <= 0 {
		opts.SplitWindow = 10 * 24 * time.Hour
	}
	if delay == nil {
		delay = NewJitterDelayer()
	}

	return &Fetcher{
		api:    api,
		opts:   opts,
		delay:  delay,
		logger: log.With().Str("component", "fetcher").Logger(),
	}
}
