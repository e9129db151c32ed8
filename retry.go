package multiredis

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryBaseDelay is the first Fibonacci backoff step used by Retry.
var RetryBaseDelay = 1 * time.Second

// Retry executes task with Fibonacci backoff up to 5 retries.
// The task marks an error as retryable by returning retry.RetryableError(err); use
// RetryIfTransient to do that based on ShouldRetry.
// If retries are exhausted, gaveUpTask is invoked (when not nil) and the final error is returned.
//
// Routers and the registry never retry on their own; this is for the bootstrap layer.
func Retry(ctx context.Context, task func(ctx context.Context) error, gaveUpTask func(ctx context.Context)) error {
	b := retry.NewFibonacci(RetryBaseDelay)
	if err := retry.Do(ctx, retry.WithMaxRetries(5, b), task); err != nil {
		log.Warn(err.Error() + ", gave up")
		if gaveUpTask != nil {
			gaveUpTask(ctx)
		}
		return err
	}
	return nil
}

// RetryIfTransient wraps err as retryable when ShouldRetry reports it is.
func RetryIfTransient(err error) error {
	if ShouldRetry(err) {
		return retry.RetryableError(err)
	}
	return err
}

// ShouldRetry reports whether the error is retryable (non-nil and not a known permanent failure).
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	// Context cancellations/timeouts are permanent from the caller's POV.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Caller or configuration mistakes don't heal by waiting.
	if errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrStaticMode) ||
		errors.Is(err, ErrUnknownDatasource) {
		return false
	}
	return true
}
