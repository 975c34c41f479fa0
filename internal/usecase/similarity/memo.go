package similarity

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// memo computes each key at most once per session. Concurrent lookups of the same key
// share one computation; failures are not stored, so a later lookup retries.
type memo[T any] struct {
	mu     sync.Mutex
	values map[string]T
	group  singleflight.Group
}

func newMemo[T any]() *memo[T] {
	return &memo[T]{values: make(map[string]T)}
}

func (m *memo[T]) get(ctx context.Context, key string, compute func(context.Context) (T, error)) (T, error) {
	if v, ok := m.lookup(key); ok {
		return v, nil
	}

	ch := m.group.DoChan(key, func() (any, error) {
		if v, ok := m.lookup(key); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return v, err
		}
		m.mu.Lock()
		m.values[key] = v
		m.mu.Unlock()
		return v, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil //nolint:forcetypeassert // compute only returns T
	case <-ctx.Done():
		return zero, ctx.Err() //nolint:wrapcheck // caller classifies context errors
	}
}

func (m *memo[T]) lookup(key string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}
