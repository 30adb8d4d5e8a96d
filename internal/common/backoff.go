package common

import (
	"context"
	"math"
	"math/rand"
	"time"
)

const backoffJitter = 0.25

// ExponentialBackoff returns the wait before retry number attempt (1-based):
// initial * multiplier^(attempt-1), capped at maxBackoff, with +/-25% jitter.
func ExponentialBackoff(attempt int, initial, maxBackoff time.Duration, multiplier float64) time.Duration {
	if attempt < 1 {
		return 0
	}

	backoff := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitterRange := backoff * backoffJitter
	backoff += (rand.Float64() * 2 * jitterRange) - jitterRange //nolint:gosec

	if backoff < 0 {
		backoff = 0
	}

	return time.Duration(backoff)
}

// SleepWithContext waits for d or until ctx is done, returning ctx.Err() in the latter case.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
