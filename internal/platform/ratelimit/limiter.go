// Package ratelimit bounds concurrent calls to a shared external service.
package ratelimit

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter is a fixed-concurrency gate. It also tracks the in-flight high-water mark.
type Limiter struct {
	sem      *semaphore.Weighted
	limit    int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func NewLimiter(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}
}

// Acquire blocks until a slot is free or ctx is done. The returned release must be called exactly once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	current := l.inFlight.Add(1)
	for {
		peak := l.peak.Load()
		if current <= peak || l.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	var released atomic.Bool
	return func() {
		if !released.CompareAndSwap(false, true) {
			return
		}
		l.inFlight.Add(-1)
		l.sem.Release(1)
	}, nil
}

func (l *Limiter) Limit() int {
	return int(l.limit)
}

func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

func (l *Limiter) Peak() int {
	return int(l.peak.Load())
}
