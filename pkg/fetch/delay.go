package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/deploymetrics/harness-export/pkg/harness"
)

// Delayer is the client-side throttle applied between consecutive API
// calls. It is injectable so tests run without real waits.
type Delayer interface {
	// Wait blocks for the delay or until the context is done.
	Wait(ctx context.Context) error
}

// JitterDelayer waits a uniformly random duration in [Min, Max]. The
// Harness API rate-limits aggressively; a jittered pause between calls is
// the throttling strategy this tool relies on.
type JitterDelayer struct {
	Min time.Duration
	Max time.Duration
}

// NewJitterDelayer returns the default 0.5s to 1.0s jittered delayer.
func NewJitterDelayer() *JitterDelayer {
	return &JitterDelayer{
		Min: 500 * time.Millisecond,
		Max: 1 * time.Second,
	}
}

// Wait implements Delayer.
func (d *JitterDelayer) Wait(ctx context.Context) error {
	delay := d.Min
	if d.Max > d.Min {
		delay += time.Duration(rand.Int63n(int64(d.Max - d.Min + 1)))
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", harness.ErrContextCancelled, ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

// NoDelay is a Delayer that never waits, for tests.
type NoDelay struct{}

// Wait implements Delayer.
func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}
