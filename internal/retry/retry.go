// Package retry provides the bounded fixed-delay poll used to bridge the gap
// between the external gateway accepting a booking and the local row becoming
// queryable.
package retry

import (
	"context"
	"time"
)

type Strategy struct {
	Attempts int
	Delay    time.Duration
}

// Poll calls fn up to s.Attempts times, sleeping s.Delay between calls.
// fn reports done=true when polling should stop (the value is then returned
// as found). An fn error aborts immediately. If every attempt reports
// done=false, Poll returns the zero value and found=false with a nil error:
// exhaustion is an outcome, not a failure.
func Poll[T any](ctx context.Context, s Strategy, fn func(ctx context.Context) (T, bool, error)) (value T, found bool, err error) {
	var zero T

	attempts := s.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, false, ctx.Err()
			case <-time.After(s.Delay):
			}
		}

		v, done, err := fn(ctx)
		if err != nil {
			return zero, false, err
		}
		if done {
			return v, true, nil
		}
	}

	return zero, false, nil
}
