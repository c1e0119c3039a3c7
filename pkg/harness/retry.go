package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for retry logic on the execution
// endpoint.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BackoffStep is the linear backoff unit: the wait before attempt n+1
	// is BackoffStep * n.
	BackoffStep time.Duration
}

// DefaultRetryConfig returns the retry configuration the Harness execution
// endpoint is known to tolerate: three attempts with 2s and 4s waits.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BackoffStep: 2 * time.Second,
	}
}

// SleepFunc blocks for the given duration or until the context is done.
// It exists so tests can substitute a recording stub for real waits.
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepWithContext is the default SleepFunc.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(d):
		return nil
	}
}

// retryLinear executes fn with linear backoff. Non-retryable errors
// propagate immediately; once attempts are exhausted the last error is
// wrapped in ErrRetryExhausted.
func retryLinear(ctx context.Context, cfg RetryConfig, sleep SleepFunc, logger zerolog.Logger, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !isRetryable(err) {
			return lastErr
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		wait := cfg.BackoffStep * time.Duration(attempt)
		retriesTotal.Inc()

		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("backoff", wait).
			Msg("Request failed, retrying after backoff")

		if err := sleep(ctx, wait); err != nil {
			logger.Warn().
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return err
		}
	}

	retryExhaustedTotal.Inc()
	logger.Error().
		Err(lastErr).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, cfg.MaxAttempts, lastErr)
}
