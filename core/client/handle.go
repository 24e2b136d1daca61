package client

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Handle lazily builds and caches one shared value, typically a provider
// client. Concurrent first calls share a single build. A failed build is not
// cached: the next Get tries again.
type Handle[T any] struct {
	build func(context.Context) (T, error)

	group singleflight.Group
	mu    sync.RWMutex
	value T
	ready bool
}

// NewHandle returns a Handle that uses build to construct its value.
func NewHandle[T any](build func(context.Context) (T, error)) *Handle[T] {
	return &Handle[T]{build: build}
}

// Get returns the cached value, building it first if needed.
func (h *Handle[T]) Get(ctx context.Context) (T, error) {
	if value, ok := h.cached(); ok {
		return value, nil
	}

	result, err, _ := h.group.Do("build", func() (any, error) {
		// A build that finished between cached() and Do is reused.
		if value, ok := h.cached(); ok {
			return value, nil
		}

		value, err := h.build(ctx)
		if err != nil {
			return nil, err
		}

		h.mu.Lock()
		h.value, h.ready = value, true
		h.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	value, _ := result.(T)
	return value, nil
}

func (h *Handle[T]) cached() (T, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.value, h.ready
}
