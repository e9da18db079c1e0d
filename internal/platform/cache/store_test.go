package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute, 0)
	var calls atomic.Int32

	loader := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "same-key", loader)
			if err != nil {
				errCh <- err
				return
			}
			if v != "value" {
				errCh <- errors.New("unexpected value")
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_ExpiresEntries(t *testing.T) {
	t.Parallel()

	store := NewStore[int](time.Minute, 0)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set(context.Background(), "k", 7)
	if v, ok := store.Get(context.Background(), "k"); !ok || v != 7 {
		t.Fatalf("expected cached value, got %d ok=%v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestStore_GetOrLoad_DoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute, 0)
	calls := 0
	loader := func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("provider down")
		}
		return "ok", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); err == nil {
		t.Fatalf("expected first load to fail")
	}
	v, err := store.GetOrLoad(context.Background(), "k", loader)
	if err != nil || v != "ok" {
		t.Fatalf("expected second load to succeed, got %q err=%v", v, err)
	}
}

func TestStore_EvictsClosestToExpiryWhenFull(t *testing.T) {
	t.Parallel()

	store := NewStore[[]string](time.Hour, 2)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	store.Set(ctx, "search:arsenal", []string{"fc-arsenal"})
	now = now.Add(time.Minute)
	store.Set(ctx, "search:chelsea", []string{"fc-chelsea"})
	now = now.Add(time.Minute)
	store.Set(ctx, "search:fulham", []string{"fc-fulham"})

	if store.Len() != 2 {
		t.Fatalf("expected the store to stay at capacity, got %d entries", store.Len())
	}
	if _, ok := store.Get(ctx, "search:arsenal"); ok {
		t.Fatalf("expected the oldest search to be evicted")
	}
	if _, ok := store.Get(ctx, "search:fulham"); !ok {
		t.Fatalf("expected the newest search to be cached")
	}
}

func TestStore_OverwriteDoesNotEvict(t *testing.T) {
	t.Parallel()

	store := NewStore[int](time.Hour, 2)
	ctx := context.Background()
	store.Set(ctx, "a", 1)
	store.Set(ctx, "b", 2)
	store.Set(ctx, "b", 3)

	if v, ok := store.Get(ctx, "a"); !ok || v != 1 {
		t.Fatalf("expected overwrite to keep other entries, got %d ok=%v", v, ok)
	}
}

func TestNewStore_RejectsZeroTTL(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a zero ttl to panic")
		}
	}()
	NewStore[int](0, 0)
}
