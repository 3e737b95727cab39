package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches every *TimeoutError.
var ErrTimeout = errors.New("operation timed out")

// TimeoutError reports an operation that did not finish within its limit. It
// matches both ErrTimeout and context.DeadlineExceeded.
type TimeoutError struct {
	Op    string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %v", e.Op, e.Limit)
}

func (e *TimeoutError) Unwrap() []error {
	return []error{ErrTimeout, context.DeadlineExceeded}
}

// Within runs fn under a deadline of limit. A zero limit runs fn directly.
//
// fn runs on its own goroutine so that a store call ignoring its context
// cannot hold the caller past the limit; a late result is discarded. When the
// limit, not the parent context, ends the call the error is a *TimeoutError
// naming op.
func Within(ctx context.Context, op string, limit time.Duration, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	timeout := &TimeoutError{Op: op, Limit: limit}
	boundCtx, cancel := context.WithTimeoutCause(ctx, limit, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(boundCtx) }()

	var err error
	select {
	case err = <-done:
		if err == nil || !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	case <-boundCtx.Done():
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, context.Cause(ctx))
	}
	if boundCtx.Err() != nil {
		return context.Cause(boundCtx)
	}
	return err
}
