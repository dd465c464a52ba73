// Package humanize produces human-plausible pointer trajectories and timing
// for browser automation. Movement paths use easing and per-step jitter so the
// resulting input stream resembles neuromotor patterns rather than linear
// interpolation at machine speed.
package humanize

import (
	"context"
	"math/rand"
	"time"
)

// DelayFunc produces a duration from a configured millisecond range. It is the
// injectable timing dependency: production code uses RandomDuration, tests
// substitute ZeroDelay so solver logic runs without wall-clock sleeps.
type DelayFunc func(minMs, maxMs int) time.Duration

// RandomDuration returns a random duration between min and max milliseconds.
func RandomDuration(minMs, maxMs int) time.Duration {
	if maxMs <= minMs {
		return time.Duration(minMs) * time.Millisecond
	}
	ms := minMs + rand.Intn(maxMs-minMs+1)
	return time.Duration(ms) * time.Millisecond
}

// ZeroDelay ignores its range and returns zero. For tests.
func ZeroDelay(int, int) time.Duration { return 0 }

// SleepWithContext sleeps for the specified duration or until the context is
// canceled. Returns true if the sleep completed normally.
// Uses time.NewTimer instead of time.After to prevent timer leak.
func SleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// RandomWait waits for a random duration between min and max milliseconds,
// respecting context cancellation.
func RandomWait(ctx context.Context, minMs, maxMs int) bool {
	return SleepWithContext(ctx, RandomDuration(minMs, maxMs))
}
