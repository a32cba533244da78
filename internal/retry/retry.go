// Package retry provides the bounded retry-with-backoff policy shared by
// every delivery provider in the chain.
package retry

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 4 * time.Second
)

// Policy describes a bounded retry loop with capped exponential backoff:
// BaseDelay, 2*BaseDelay, 4*BaseDelay, ... up to MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Delay returns the backoff to wait after the given 1-based attempt number.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalized()
	if attempt < 1 {
		attempt = 1
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Attempt is one try of the operation; attempt numbers are 1-based.
type Attempt func(ctx context.Context, attempt int) error

// Retryable reports whether a failed attempt should be tried again.
type Retryable func(err error) bool

// Do runs op up to p.MaxAttempts times, sleeping per the policy between
// failed attempts. It returns nil on the first success and the last error
// once attempts are exhausted, the error is not retryable, or the context
// ends during backoff.
func Do(ctx context.Context, p Policy, retryable Retryable, op Attempt) error {
	return doWithSleep(ctx, p, retryable, op, sleepWithContext)
}

func doWithSleep(
	ctx context.Context,
	p Policy,
	retryable Retryable,
	op Attempt,
	sleep func(ctx context.Context, d time.Duration) error,
) error {
	p = p.normalized()
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return lastErr
		}
	}

	return lastErr
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
