// Package retry re-runs operations that fail with transient errors, backing
// off exponentially between attempts.
//
// The DuckDB adapter uses it for writes that can hit write-write conflicts:
//
//	err := retry.Do(ctx, retry.Config{
//	    MaxRetries:     10,
//	    InitialBackoff: 10 * time.Millisecond,
//	    MaxBackoff:     500 * time.Millisecond,
//	    Jitter:         0.1,
//	}, func() error {
//	    _, err := db.ExecContext(ctx, stmt, args...)
//	    return err
//	}, isConflict)
//
// Backoff before attempt n (1-based, after the first call) is
// InitialBackoff * 2^(n-1), capped at MaxBackoff, plus a jitter share that
// grows with n. Cancelling ctx ends the loop during a backoff wait.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config defines the retry behavior. MaxRetries and InitialBackoff must be
// positive.
type Config struct {
	// MaxRetries is the maximum number of calls, including the first.
	MaxRetries int

	// InitialBackoff is the wait before the second call.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait. Zero means no cap.
	MaxBackoff time.Duration

	// Jitter in [0, 1] adds up to Jitter*backoff to later waits.
	Jitter float64
}

// ShouldRetryFunc reports whether err is transient. A nil ShouldRetryFunc
// retries every error.
type ShouldRetryFunc func(error) bool

// Do calls fn until it succeeds, returns a non-retryable error, the context is
// canceled, or cfg.MaxRetries calls have been made. The last error is wrapped
// when retries are exhausted.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(cfg, attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// calculateBackoff returns the wait before attempt (1-based).
func calculateBackoff(cfg Config, attempt int) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(attempt-1)) * float64(cfg.InitialBackoff))

	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}

	if cfg.Jitter > 0 && cfg.MaxRetries > 0 {
		backoff += time.Duration(float64(backoff) * cfg.Jitter * float64(attempt) / float64(cfg.MaxRetries))
	}

	return backoff
}
