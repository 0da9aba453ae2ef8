// Package retry polls a readiness check a bounded number of times.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when every attempt failed. It wraps the last
// attempt's error.
var ErrExhausted = errors.New("attempts exhausted")

type Policy struct {
	Attempts int
	Interval time.Duration
}

// Func is called with a 1-based attempt number.
type Func func(ctx context.Context, attempt int) error

// Do runs fn until it succeeds, the attempt budget is spent or ctx is done.
// There is no sleep after the final attempt.
func Do(ctx context.Context, p Policy, fn Func) error {
	if p.Attempts < 1 {
		return fmt.Errorf("%w: no attempts allowed", ErrExhausted)
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		if attempt == p.Attempts {
			break
		}

		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.Attempts, lastErr)
}
