package embedding

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidMaxAttempts is returned by RetryWithBackoff when maxAttempts is not positive.
var ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

// RetryWithBackoff runs operation up to maxAttempts times, sleeping baseDelay*2^(n-1) after the
// n-th failure. It stops early when ctx is done and returns the last operation error otherwise.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		delay := baseDelay << (attempt - 1)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
