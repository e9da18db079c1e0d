// Package retry runs an operation under an explicit retry policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how many times and how fast an operation is re-attempted.
type Policy struct {
	// MaxAttempts includes the first call.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the randomization factor applied to each delay, in [0,1].
	Jitter float64
	// Retryable decides, per error and attempt number (1-based), whether another attempt is made.
	Retryable func(err error, attempt int) bool
	// RetryAfter extracts a provider-specified delay that overrides the computed one.
	RetryAfter func(err error) (time.Duration, bool)
	// OnRetry is called before sleeping.
	OnRetry func(err error, attempt int, delay time.Duration)
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Jitter:      0.2,
	}
}

func (p Policy) normalized() Policy {
	defaults := DefaultPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaults.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	if p.Retryable == nil {
		p.Retryable = func(error, int) bool { return true }
	}
	return p
}

// Attempts reports how many calls Do made before returning.
type Attempts int

// Do calls fn until it succeeds, the policy gives up, or ctx is done.
// Cancellation only stops new attempts; a call already running is never interrupted by Do.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, Attempts, error) {
	p := policy.normalized()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.RandomizationFactor = p.Jitter
	b.Multiplier = 2
	b.Reset()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, Attempts(attempt - 1), errors.Join(lastErr, err)
			}
			return zero, Attempts(attempt - 1), err
		}

		out, err := fn(ctx, attempt)
		if err == nil {
			return out, Attempts(attempt), nil
		}
		lastErr = err

		if attempt == p.MaxAttempts || !p.Retryable(err, attempt) {
			return zero, Attempts(attempt), err
		}

		delay := b.NextBackOff()
		if p.RetryAfter != nil {
			if d, ok := p.RetryAfter(err); ok && d > 0 {
				delay = d
			}
		}
		if p.OnRetry != nil {
			p.OnRetry(err, attempt, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, Attempts(attempt), errors.Join(lastErr, ctx.Err())
		case <-timer.C:
		}
	}

	return zero, Attempts(p.MaxAttempts), lastErr
}
