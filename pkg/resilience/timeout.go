package resilience

import (
	"context"
	"fmt"
	"time"
)

// ErrTimeout wraps context.DeadlineExceeded for operations cut off by
// WithTimeout.
var ErrTimeout = context.DeadlineExceeded

// WithTimeout runs fn and returns its result, or gives up once timeout has
// passed or ctx is done. fn keeps running in the background after a timeout;
// its result is discarded. Use it around work that has no cancellation of
// its own.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- outcome{v, err}
	}()

	var zero T
	select {
	case o := <-done:
		return o.val, o.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w (limit: %v)", name, ErrTimeout, timeout)
	}
}
