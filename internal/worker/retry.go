package worker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// retryBaseDelay is the wait before the second attempt; it doubles after that.
var retryBaseDelay = time.Second

// RetryError reports how many attempts were made before giving up.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = base, 3 = 2×base.
// Returns nil if any attempt succeeds; a *RetryError wrapping the last
// error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := retryBaseDelay << uint(i-1)
			select {
			case <-ctx.Done():
				return &RetryError{Attempts: i, Err: ctx.Err()}
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return &RetryError{Attempts: maxAttempts, Err: lastErr}
}

func attemptsOf(err error) int {
	var re *RetryError
	if errors.As(err, &re) {
		return re.Attempts
	}
	return 1
}
