package resilience

import "golang.org/x/sync/singleflight"

// Flight deduplicates concurrent calls for the same key and returns typed results.
type Flight[T any] struct {
	group singleflight.Group
}

func (f *Flight[T]) Do(key string, fn func() (T, error)) (T, bool, error) {
	v, err, shared := f.group.Do(key, func() (any, error) {
		return fn()
	})
	out, _ := v.(T)
	return out, shared, err
}

func (f *Flight[T]) Forget(key string) {
	f.group.Forget(key)
}
