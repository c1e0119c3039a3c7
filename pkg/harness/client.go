// Package harness provides the Harness API client used to list projects and
// pipeline execution summaries, with retry and error handling.
package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// API endpoint paths.
const (
	executionSummaryPath  = "/pipeline/api/pipelines/execution/summary"
	aggregateProjectsPath = "/ng/api/aggregate/projects"
)

// Prometheus metrics for Harness API operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harness_export_requests_total",
		Help: "Total Harness API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harness_export_request_duration_seconds",
		Help:    "Harness API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harness_export_retries_total",
		Help: "Total number of retry attempts on the execution endpoint",
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harness_export_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted",
	})
)

// Credentials holds exactly one of the two supported credential forms.
// Exclusivity is enforced by config validation before a client is built.
type Credentials struct {
	// AuthToken is the Authorization header value (e.g. "Bearer TOKEN").
	AuthToken string

	// APIKey is the x-api-key header value.
	APIKey string
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API base URL (e.g. "https://app.harness.io").
	BaseURL string

	// AccountID is the account identifier, also used as routingId.
	AccountID string

	// OrgID is the organization identifier.
	OrgID string

	// Credentials is the single configured credential form.
	Credentials Credentials

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Retry configures retries on the execution endpoint. The project
	// endpoint is never retried.
	Retry RetryConfig

	// Sleep is the wait used between retry attempts. Defaults to a real
	// context-aware sleep; tests substitute a stub.
	Sleep SleepFunc
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, accountID, orgID string, creds Credentials) Config {
	return Config{
		BaseURL:     baseURL,
		AccountID:   accountID,
		OrgID:       orgID,
		Credentials: creds,
		Timeout:     30 * time.Second,
		Retry:       DefaultRetryConfig(),
	}
}

// Client is the Harness API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new Harness client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.AccountID == "" {
		return nil, fmt.Errorf("account identifier is required")
	}

	hasToken := cfg.Credentials.AuthToken != ""
	hasKey := cfg.Credentials.APIKey != ""
	if hasToken == hasKey {
		return nil, fmt.Errorf("exactly one of auth token or API key must be set")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepWithContext
	}

	logger := log.With().Str("component", "harness-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// AccountID returns the configured account identifier.
func (c *Client) AccountID() string {
	return c.config.AccountID
}

// OrgID returns the configured organization identifier.
func (c *Client) OrgID() string {
	return c.config.OrgID
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// executionFilter is the request body of the execution-summary endpoint.
type executionFilter struct {
	FilterType string        `json:"filterType"`
	TimeRange  execTimeRange `json:"timeRange"`
}

type execTimeRange struct {
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`
}

// ListExecutions fetches one page of pipeline execution summaries for a
// project within [startTime, endTime] (epoch ms). Failures are retried per
// the client's retry configuration; after the final attempt the last error
// surfaces wrapped in ErrRetryExhausted.
func (c *Client) ListExecutions(ctx context.Context, projectID string, page, pageSize int, startTime, endTime int64) (*ExecutionPage, error) {
	q := url.Values{}
	q.Set("routingId", c.config.AccountID)
	q.Set("accountIdentifier", c.config.AccountID)
	q.Set("projectIdentifier", projectID)
	q.Set("orgIdentifier", c.config.OrgID)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(pageSize))
	q.Set("sort", "startTs,DESC")
	q.Set("myDeployments", "false")
	q.Set("searchTerm", "")
	q.Set("module", "cd")

	reqURL := c.config.BaseURL + executionSummaryPath + "?" + q.Encode()

	body := executionFilter{
		FilterType: "PipelineExecution",
		TimeRange: execTimeRange{
			StartTime: startTime,
			EndTime:   endTime,
		},
	}

	logger := c.logger.With().
		Str("project", projectID).
		Int("page", page).
		Int64("window_start", startTime).
		Int64("window_end", endTime).
		Logger()

	var result ExecutionPage
	err := retryLinear(ctx, c.config.Retry, c.config.Sleep, logger, func() error {
		return c.doJSON(ctx, http.MethodPost, reqURL, executionSummaryPath, body, &result)
	})
	if err != nil {
		logger.Error().
			Str("curl", CurlHint(reqURL, body)).
			Msg("Execution fetch failed, reproduce with the logged request")
		return nil, err
	}

	return &result, nil
}

// ListProjects fetches one page of the aggregate-projects endpoint.
// Failures are not retried: project discovery happens once at the start of
// a run and a failure there aborts it immediately.
func (c *Client) ListProjects(ctx context.Context, pageIndex, pageSize int) (*ProjectPage, error) {
	q := url.Values{}
	q.Set("routingId", c.config.AccountID)
	q.Set("accountIdentifier", c.config.AccountID)
	q.Set("pageIndex", strconv.Itoa(pageIndex))
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("sortOrders", "lastModifiedAt,DESC")
	q.Set("onlyFavorites", "false")
	if c.config.OrgID != "" {
		q.Set("orgIdentifier", c.config.OrgID)
	}

	reqURL := c.config.BaseURL + aggregateProjectsPath + "?" + q.Encode()

	var result ProjectPage
	if err := c.doJSON(ctx, http.MethodGet, reqURL, aggregateProjectsPath, nil, &result); err != nil {
		c.logger.Error().
			Str("curl", CurlHint(reqURL, nil)).
			Msg("Project fetch failed, reproduce with the logged request")
		return nil, err
	}

	return &result, nil
}

// doJSON performs a single authenticated request and decodes the paged
// payload under the top-level data object into result. A missing data
// object is a malformed response; a present data object with missing
// content decodes as an empty page.
func (c *Client) doJSON(ctx context.Context, method, reqURL, endpoint string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	// Exactly one credential form is configured; validated in New.
	if c.config.Credentials.APIKey != "" {
		req.Header.Set("x-api-key", c.config.Credentials.APIKey)
	} else {
		req.Header.Set("Authorization", c.config.Credentials.AuthToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return &APIError{
			Endpoint: reqURL,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   reqURL,
			Err:        fmt.Errorf("read response body: %w", err),
		}
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Msg("Harness API request error")
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   reqURL,
			Body:       truncateBody(string(raw)),
		}
	}

	return decodePage(raw, reqURL, result)
}

// decodePage unwraps the data envelope around a page payload.
func decodePage(raw []byte, reqURL string, result interface{}) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w from %s: %v", ErrMalformedResponse, reqURL, err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("%w from %s: missing data object (body: %s)",
			ErrMalformedResponse, reqURL, truncateBody(string(raw)))
	}
	if err := json.Unmarshal(envelope.Data, result); err != nil {
		return fmt.Errorf("%w from %s: %v", ErrMalformedResponse, reqURL, err)
	}
	return nil
}

// CurlHint renders a copy-pasteable request for debugging a failed call.
// The credential is redacted.
func CurlHint(reqURL string, body interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "curl --location '%s' \\\n", reqURL)
	b.WriteString("  --header 'Authorization: <YOUR_AUTH_TOKEN>'")
	if body != nil {
		encoded, err := json.Marshal(body)
		if err == nil {
			fmt.Fprintf(&b, " \\\n  --header 'Content-Type: application/json' \\\n  --data '%s'", encoded)
		}
	}
	return b.String()
}
