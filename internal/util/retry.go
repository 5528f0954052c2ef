package util

import (
	"context"
	"time"
)

// Retry calls fn up to maxAttempts times with exponential backoff starting
// at baseDelay. It returns nil on the first successful call, or the last
// error if all attempts fail. The function respects context cancellation
// between retries.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	return RetryIf(ctx, maxAttempts, baseDelay, func(error) bool { return true }, fn)
}

// RetryIf behaves like Retry but consults retryable after each failure; an
// error the predicate rejects is returned immediately without further
// attempts. The provider clients use it to retry transient transport
// failures while passing terminal conditions straight through.
func RetryIf(ctx context.Context, maxAttempts int, baseDelay time.Duration, retryable func(error) bool, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}

		// Don't sleep after the last failed attempt.
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return err
}
