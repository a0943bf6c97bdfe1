package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookclub/internal/domain"

	"github.com/cenkalti/backoff/v5"
)

const defaultRetryBaseDelay = 25 * time.Millisecond

// retryPolicy re-runs an operation that failed with domain.ErrLockTimeout using exponential
// backoff with jitter. Any other error stops immediately.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
}

func newRetryPolicy(maxRetries int, baseDelay time.Duration) retryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}
	return retryPolicy{maxRetries: maxRetries, baseDelay: baseDelay}
}

// do runs op until it succeeds, fails permanently, or the attempts are used up.
// Exhausted lock failures and an expired context are reported as domain.ErrTransient.
func (p retryPolicy) do(ctx context.Context, op func() error) error {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.baseDelay,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         p.baseDelay * 16,
	}
	b.Reset()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err != nil && !errors.Is(err, domain.ErrLockTimeout) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(p.maxRetries+1)))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return err
}
