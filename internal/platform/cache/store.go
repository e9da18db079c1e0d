// Package cache holds short-lived provider answers in process, such as team quick-search
// results, so a run touching the same club twice scrapes it once.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/platform/resilience"
)

var errNilLoader = errors.New("cache: loader is required")

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store is a bounded in-process TTL cache. When full, expired entries are dropped first and
// then the entry closest to expiry.
type Store[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	ttl        time.Duration
	maxEntries int
	flight     resilience.Flight[V]
	now        func() time.Time
}

// NewStore panics on a non-positive ttl; a cache that never expires provider data would hide
// roster moves for the life of the process. maxEntries below 1 means unbounded.
func NewStore[V any](ttl time.Duration, maxEntries int) *Store[V] {
	if ttl <= 0 {
		panic("cache: ttl must be positive")
	}
	return &Store[V]{
		entries:    make(map[string]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *Store[V]) Get(_ context.Context, key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	e, ok := s.entries[key]
	if !ok {
		return zero, false
	}
	if !e.expiresAt.After(s.now()) {
		delete(s.entries, key)
		return zero, false
	}
	return e.value, true
}

func (s *Store[V]) Set(_ context.Context, key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evict(now)
	}
	s.entries[key] = entry[V]{value: value, expiresAt: now.Add(s.ttl)}
}

func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evict must be called with mu held.
func (s *Store[V]) evict(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, e := range s.entries {
		if !e.expiresAt.After(now) {
			delete(s.entries, key)
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt = key, e.expiresAt
		}
	}
	if len(s.entries) >= s.maxEntries && oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

// GetOrLoad returns the cached value or runs loader once per key across concurrent callers.
// Loader errors are not cached.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (V, error)) (V, error) {
	if loader == nil {
		var zero V
		return zero, errNilLoader
	}
	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, _, err := s.flight.Do(key, func() (V, error) {
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}
		loaded, err := loader(ctx)
		if err != nil {
			return loaded, err
		}
		s.Set(ctx, key, loaded)
		return loaded, nil
	})
	return value, err
}
