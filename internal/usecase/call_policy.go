package usecase

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/retry"
)

const (
	defaultCallTimeout   = 60 * time.Second
	rateLimitDelayFactor = 4
)

// CallPolicy bounds every outbound provider call.
type CallPolicy struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// RateLimitDelay is the first wait after a rate limit that came without a Retry-After
	// hint. It doubles on every further rate limit of the same call. Defaults to four times
	// BaseDelay.
	RateLimitDelay time.Duration
}

func DefaultCallPolicy() CallPolicy {
	p := retry.DefaultPolicy()
	return CallPolicy{
		Timeout:     defaultCallTimeout,
		MaxAttempts: p.MaxAttempts,
		BaseDelay:   p.BaseDelay,
		MaxDelay:    p.MaxDelay,
	}
}

func (p CallPolicy) normalized() CallPolicy {
	defaults := DefaultCallPolicy()
	if p.Timeout <= 0 {
		p.Timeout = defaults.Timeout
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaults.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaults.MaxDelay
	}
	if p.RateLimitDelay <= 0 {
		p.RateLimitDelay = rateLimitDelayFactor * p.BaseDelay
	}
	return p
}

// rateLimitBackoff prefers the provider hint. Without one, a rate limit waits RateLimitDelay,
// doubled per rate limit already seen by this call and capped at the larger of MaxDelay and
// RateLimitDelay. Other errors keep the regular backoff.
func (p CallPolicy) rateLimitBackoff() func(err error) (time.Duration, bool) {
	limit := max(p.MaxDelay, p.RateLimitDelay)
	seen := 0
	return func(err error) (time.Duration, bool) {
		if d, ok := RetryAfterHint(err); ok {
			return d, true
		}
		if !crerr.Is(err, ErrRateLimited) {
			return 0, false
		}
		delay := p.RateLimitDelay << min(seen, 16)
		seen++
		if delay <= 0 || delay > limit {
			delay = limit
		}
		return delay, true
	}
}

// transientPolicy retries transient and rate-limited failures and fails fast on everything else.
func (p CallPolicy) transientPolicy(ctx context.Context, logger *logging.Logger, op string) retry.Policy {
	p = p.normalized()
	return retry.Policy{
		MaxAttempts: p.MaxAttempts,
		BaseDelay:   p.BaseDelay,
		MaxDelay:    p.MaxDelay,
		Jitter:      0.2,
		Retryable: func(err error, _ int) bool {
			return IsTransient(err)
		},
		RetryAfter: p.rateLimitBackoff(),
		OnRetry: func(err error, attempt int, delay time.Duration) {
			logger.WarnContext(ctx, "retrying provider call", "op", op, "attempt", attempt, "delay", delay, "error", err)
		},
	}
}

// reasoningPolicy additionally allows exactly one retry after a malformed output.
func (p CallPolicy) reasoningPolicy(ctx context.Context, logger *logging.Logger, op string) retry.Policy {
	policy := p.transientPolicy(ctx, logger, op)
	policy.Retryable = func(err error, attempt int) bool {
		if crerr.Is(err, ErrMalformedOutput) {
			return attempt < 2
		}
		return IsTransient(err)
	}
	return policy
}

// callContext detaches a single attempt from run cancellation so an issued call can finish
// and be recorded, while still bounding it with the per-call timeout.
func (p CallPolicy) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), p.normalized().Timeout)
}
