package util

import (
	"context"
	"time"
)

// RetryPolicy bounds a retry loop.
type RetryPolicy struct {
	Attempts  int           // total calls, at least 1
	BaseDelay time.Duration // wait before the second call; doubles afterwards
	MaxDelay  time.Duration // cap on a single wait; 0 means uncapped
}

// Retry calls fn until it succeeds or the policy's attempts are used up,
// backing off exponentially between calls. fn receives the zero-based
// attempt number. It returns nil on the first success, ctx.Err() if the
// context ends while waiting, or the last error otherwise.
func Retry(ctx context.Context, p RetryPolicy, fn func(attempt int) error) error {
	attempts := max(p.Attempts, 1)
	delay := p.BaseDelay

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}

		// Don't sleep after the last failed attempt.
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
