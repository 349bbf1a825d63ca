// Package retry provides the timeout and retry policy wrapped around every
// call the pipelines make to an external capability.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how a single external call is bounded and retried. The
// zero value performs exactly one attempt with no timeout.
type Policy struct {
	// Timeout bounds each attempt. Zero means the caller's context only.
	Timeout time.Duration

	// MaxTries is the total number of attempts. Zero and one both mean a
	// single attempt.
	MaxTries uint

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Retryable reports if an error is worth another attempt. A nil
	// function treats every error as retryable.
	Retryable func(error) bool
}

// Do executes op under the policy.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p.MaxTries <= 1 {
		return attempt(ctx, p, op)
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}

	f := func() (T, error) {
		v, err := attempt(ctx, p, op)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}

		return v, err
	}

	return backoff.Retry(ctx, f, backoff.WithBackOff(b), backoff.WithMaxTries(p.MaxTries))
}

func attempt[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p.Timeout <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	return op(ctx)
}
