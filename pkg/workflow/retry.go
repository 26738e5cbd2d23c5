package workflow

import (
	"context"
	"time"
)

// maxAttempts bounds a transient-error retry to one initial try plus up
// to two retries.
const maxAttempts = 3

// withRetry runs fn up to maxAttempts times, sleeping backoff between
// attempts. It returns the last error once
// attempts are exhausted, or nil on the first success. Sleeps are
// ctx-aware so a cancelled task does not block shutdown.
func withRetry(ctx context.Context, backoff time.Duration, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}
