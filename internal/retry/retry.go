// Package retry runs unreliable operations with bounded, exponentially
// growing and jittered delays between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMultiplier  = 2.0
)

// Policy describes how an operation is retried. MaxAttempts counts every
// invocation, including the first one.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64

	// Jitter turns the computed backoff d into the actual wait. Nil means
	// FullJitter.
	Jitter func(d time.Duration) time.Duration
	// Sleep waits for d or until ctx is done. Nil means a timer bound to ctx.
	Sleep func(ctx context.Context, d time.Duration) error
	// Notify, if set, is called after every failed attempt that will be retried.
	Notify func(attempt int, err error, wait time.Duration)
}

// Default returns the policy used for every networked call unless configured
// otherwise: three attempts, starting at one second and doubling.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,
	}
}

// WithMaxAttempts returns a copy of p with a different attempt bound.
func (p Policy) WithMaxAttempts(n int) Policy {
	p.MaxAttempts = n
	return p
}

// WithNotify returns a copy of p that reports retried failures to fn.
func (p Policy) WithNotify(fn func(attempt int, err error, wait time.Duration)) Policy {
	p.Notify = fn
	return p
}

// Backoff returns the unjittered delay that follows failed attempt n (1-based).
func (p Policy) Backoff(n int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = DefaultMultiplier
	}
	d := float64(base)
	for i := 1; i < n; i++ {
		d *= mult
	}
	return time.Duration(d)
}

// FullJitter adds a uniformly random duration in [0, d] to d.
func FullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(d+1)
}

// ExhaustedError is returned when every attempt failed. Err is the failure of
// the last attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls op until it succeeds, returns a permanent error, ctx is done, or
// the policy runs out of attempts.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = FullJitter
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, errors.Join(err, lastErr)
			}
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		wait := jitter(p.Backoff(attempt))
		if p.Notify != nil {
			p.Notify(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, errors.Join(err, lastErr)
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
