package util

import (
	"context"
	"fmt"
	"time"
)

// retryMaxDelay caps the backoff so a long retry chain against a flaky
// upstream never sleeps more than a few seconds per attempt.
const retryMaxDelay = 8 * time.Second

// Retry calls fn up to maxAttempts times, doubling the sleep between
// attempts from baseDelay up to retryMaxDelay. It returns nil on the first
// success; after the final failure the last error is returned wrapped with
// the attempt count. Cancellation is honoured between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := baseDelay

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
}
