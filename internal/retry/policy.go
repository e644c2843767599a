// Package retry provides a small bounded-retry policy used for transaction
// submission paths that can race on account-level nonce assignment.
package retry

import (
	"context"
	"time"
)

// Policy describes a bounded retry loop: a total attempt budget, a delay
// between attempts, and a classifier deciding which errors are retryable.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay is the wait between attempts.
	Delay time.Duration

	// Backoff multiplies the delay after each attempt. A value <= 1 keeps
	// the delay fixed.
	Backoff float64

	// Retryable reports whether the loop should try again after err. A nil
	// classifier retries nothing.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// budget is exhausted. fn receives the zero-based attempt index. The last
// error is returned on exhaustion. Context cancellation aborts the wait.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.Delay
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(i); err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			if p.Backoff > 1 {
				delay = time.Duration(float64(delay) * p.Backoff)
			}
		}
	}
	return err
}
