package harness

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during a retry wait.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrMalformedResponse is returned when a response body is missing the
	// top-level data object the API contract requires.
	ErrMalformedResponse = errors.New("malformed response")
)

// maxErrorBodyLen bounds how much of an error response body is kept for
// diagnostics.
const maxErrorBodyLen = 500

// APIError represents a Harness API error with enough context to reproduce
// the failing request manually.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("harness API error (status %d) on %s", e.StatusCode, e.Endpoint)
	if e.Body != "" {
		msg += fmt.Sprintf(": %s", e.Body)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// truncateBody caps a response body at maxErrorBodyLen characters.
func truncateBody(body string) string {
	if len(body) > maxErrorBodyLen {
		return body[:maxErrorBodyLen]
	}
	return body
}

// isRetryable reports whether an execution-endpoint failure should be
// retried. Every transport and HTTP failure on that endpoint is retried;
// decode failures are not, since re-requesting the same body cannot fix
// a schema break.
func isRetryable(err error) bool {
	return !errors.Is(err, ErrMalformedResponse)
}
