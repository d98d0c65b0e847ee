package clob

import (
	"context"
	"time"
)

// RetryPolicy is an explicit bounded retry loop: a classifier decides which
// errors are retryable and an optional hook runs between attempts (credential
// re-derivation, allowance re-approval). No recursion, no hidden counters.
type RetryPolicy struct {
	MaxAttempts int
	Retryable   func(error) bool
	OnRetry     func(ctx context.Context, err error) error
	Backoff     time.Duration
}

// Do runs op up to MaxAttempts times. The OnRetry hook runs before each
// retry; if the hook itself fails, its error propagates immediately.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if p.OnRetry != nil {
				if hookErr := p.OnRetry(ctx, err); hookErr != nil {
					return hookErr
				}
			}
			if p.Backoff > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(p.Backoff):
				}
			}
		}

		err = op()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
	}
	return err
}
