package llm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryConfig bounds a retried call against the generative service.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget, first try included.
	MaxAttempts int

	// AttemptTimeout bounds each individual attempt. Zero means the
	// caller's context is the only deadline.
	AttemptTimeout time.Duration

	// BackoffBase is the delay before the second attempt.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to the delay on each further retry.
	BackoffMultiplier float64

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the standard budget for incident generation:
// three attempts, 20s each, backoff 2s doubling up to 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		AttemptTimeout:    20 * time.Second,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// WithMaxAttempts returns a copy of the config with a different attempt
// budget. Hint and validation calls run on a smaller budget than
// incident generation.
func (c RetryConfig) WithMaxAttempts(n int) RetryConfig {
	c.MaxAttempts = n
	return c
}

// Retry runs fn up to cfg.MaxAttempts times, applying the per-attempt
// timeout and exponential backoff between attempts. It returns the number
// of attempts actually made alongside the last error. Fatal errors
// (IsFatal) abort immediately; every other error consumes an attempt.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) (int, error) {
	if cfg.MaxAttempts < 1 {
		return 0, fmt.Errorf("retry budget must be at least 1, got %d", cfg.MaxAttempts)
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if cfg.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
		}

		err := fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return attempt, nil
		}

		lastErr = err

		if IsFatal(err) {
			return attempt, err
		}
		// The caller aborting is not a service failure; stop retrying.
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}

		if attempt < cfg.MaxAttempts {
			select {
			case <-ctx.Done():
				return attempt, ctx.Err()
			case <-time.After(backoff(cfg, attempt)):
			}
		}
	}

	return cfg.MaxAttempts, lastErr
}

// backoff computes the exponential backoff delay after the given attempt,
// with +/- 25% jitter to avoid synchronized retries.
func backoff(cfg RetryConfig, attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= cfg.BackoffMultiplier
	}

	delay := time.Duration(float64(cfg.BackoffBase) * multiplier)
	if delay > cfg.MaxBackoff {
		delay = cfg.MaxBackoff
	}

	jitter := float64(delay) * 0.25 * (rand.Float64()*2 - 1)
	return delay + time.Duration(jitter)
}
