// Package retry implements bounded exponential backoff with a pluggable
// retryability predicate. The generic loop is separate from any transport
// concern so the same policy serves network calls and other retryable
// operations.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Options configures one retry loop.
type Options struct {
	// MaxAttempts is the total number of calls, including the first
	// (defaults to 3).
	MaxAttempts int

	// InitialDelay is the backoff before the second attempt (defaults to
	// 1s). Growth is strictly exponential with a hard ceiling: delay n is
	// min(InitialDelay * Multiplier^(n-1), MaxDelay).
	InitialDelay time.Duration

	// MaxDelay caps the backoff (defaults to 10s).
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor (defaults to 2).
	Multiplier float64

	// Retryable decides whether an error is worth another attempt.
	// A nil predicate retries everything.
	Retryable func(error) bool

	// Logger receives per-attempt debug logs. Nil disables logging.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 10 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2
	}
	if o.Retryable == nil {
		o.Retryable = func(error) bool { return true }
	}
	return o
}

// Do runs fn until it succeeds, the error is non-retryable, attempts are
// exhausted, or ctx is cancelled. Non-retryable errors rethrow immediately
// without delay; after the last failed attempt the last error is returned.
// The backoff sleep observes ctx so cancellation is not blocked by it.
func Do[T any](ctx context.Context, fn func() (T, error), opts Options) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !opts.Retryable(err) {
			if opts.Logger != nil {
				opts.Logger.Debug("non-retryable error",
					"attempt", attempt,
					"max_attempts", opts.MaxAttempts,
					"error", err,
				)
			}
			return zero, err
		}

		if attempt < opts.MaxAttempts {
			delay := backoff(opts, attempt)
			if opts.Logger != nil {
				opts.Logger.Debug("retrying after backoff",
					"attempt", attempt,
					"max_attempts", opts.MaxAttempts,
					"delay", delay,
					"error", err,
				)
			}
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
		}
	}

	if opts.Logger != nil {
		opts.Logger.Error("all attempts failed",
			"attempts", opts.MaxAttempts,
			"error", lastErr,
		)
	}
	return zero, lastErr
}

// backoff computes the delay after the given 1-based attempt.
func backoff(opts Options, attempt int) time.Duration {
	delay := opts.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * opts.Multiplier)
		if delay >= opts.MaxDelay {
			return opts.MaxDelay
		}
	}
	if delay > opts.MaxDelay {
		return opts.MaxDelay
	}
	return delay
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
