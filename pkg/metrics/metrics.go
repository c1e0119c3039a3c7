// Package metrics provides the Prometheus metrics surface of the exporter.
// All metrics are defined in their owning packages (harness, fetch) to
// maintain modularity and avoid circular dependencies; this package holds
// the reference documentation and the optional /metrics listener for
// long-running exports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the exporter.
// All metrics are automatically registered via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Serve exposes /metrics on addr in a background goroutine and returns the
// server so the caller can shut it down. Listen failures are logged, not
// fatal: a broken metrics listener must not abort an export.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Str("addr", addr).Msg("Metrics listener failed")
		}
	}()

	return server
}

// Metrics Documentation
//
// Request Metrics (pkg/harness):
//   - harness_export_requests_total{endpoint, status} (Counter): API requests by endpoint and HTTP status
//   - harness_export_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - harness_export_retries_total (Counter): Retry attempts on the execution endpoint
//   - harness_export_retry_exhausted_total (Counter): Requests that exhausted max retries
//
// Fetch Metrics (pkg/fetch):
//   - harness_export_pages_fetched_total (Counter): Execution pages fetched
//   - harness_export_windows_split_total (Counter): Time ranges split into sub-windows
//   - harness_export_records_total (Counter): Stage records extracted
//
// Example Prometheus Queries:
//
//   # Request error rate by endpoint
//   sum by (endpoint) (rate(harness_export_requests_total{status=~"5.."}[5m]))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(harness_export_request_duration_seconds_bucket[5m]))
//
//   # Retry pressure
//   rate(harness_export_retries_total[5m])
