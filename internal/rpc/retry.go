package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/pkg/config"
)

// transientMarkers are fragments of transport level failures worth another attempt.
// rpcclient reports HTTP failures as "status code: NNN, response: ...".
var transientMarkers = []string{
	"timeout",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"eof",
	"429",
	"too many requests",
	"rate limit",
	"status code: 500",
	"status code: 502",
	"status code: 503",
	"status code: 504",
	"503 service unavailable",
	"work queue depth exceeded",
}

var transientErrnos = []error{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE}

// retryableError reports whether a failed call may succeed when repeated.
// Answers bitcoind gives are final, except warmup.
func retryableError(err error) bool {
	switch {
	case err == nil:
		return false
	case isWarmingUp(err):
		return true
	case errors.Is(err, rpcclient.ErrClientShutdown):
		return false
	}
	if _, answered := rpcErrorCode(err); answered {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// calculateBackoff returns the wait before the given attempt. The first attempt never waits.
func calculateBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	return common.ExponentialBackoff(attempt-1, cfg.InitialBackoff.Duration, cfg.MaxBackoff.Duration, cfg.BackoffMultiplier)
}

// retryWithBackoff runs fn up to cfg.MaxAttempts times while it fails with retryable errors.
// A nil cfg runs fn once.
func retryWithBackoff(ctx context.Context, cfg *config.RetryConfig, method string, fn func() error) error {
	if cfg == nil {
		return fn()
	}

	started := time.Now()
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := common.SleepWithContext(ctx, calculateBackoff(attempt, cfg)); err != nil {
				return fmt.Errorf("%s cancelled during backoff (attempt %d/%d): %w", method, attempt, cfg.MaxAttempts, err)
			}
			RPCRetryInc(method)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled before attempt %d: %w", method, attempt, err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryableError(lastErr) {
			return fmt.Errorf("non-retryable error on attempt %d/%d: %w", attempt, cfg.MaxAttempts, lastErr)
		}
	}

	return fmt.Errorf("all %d attempts failed after %v (last error: %w)",
		cfg.MaxAttempts, time.Since(started).Round(time.Millisecond), lastErr)
}
