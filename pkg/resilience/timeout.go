package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline and returns as soon as the deadline
// passes, even if fn has not returned yet. fn keeps running in the
// background until it notices its context is done, so it must honour ctx.
// A non-positive limit calls fn directly.
func WithTimeout[T any](ctx context.Context, limit time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if limit <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	var zero T
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		if cause := context.Cause(ctx); cause != context.DeadlineExceeded {
			return zero, fmt.Errorf("%s: cancelled: %w", name, cause)
		}
		return zero, fmt.Errorf("%s: %w after %v", name, context.DeadlineExceeded, limit)
	}
}
