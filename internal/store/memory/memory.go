// Package memory is an in-process store.Backend used by tests and by the
// daemon when persistence is disabled.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/MrSnakeDoc/quickmark/internal/store"
)

// Backend keeps values in a map guarded by a RWMutex.
type Backend struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New creates an empty backend.
func New() *Backend {
	return &Backend{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the stored value.
func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// SetMany stores every value under a single lock.
func (b *Backend) SetMany(_ context.Context, values map[string][]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k, v := range values {
		b.values[k] = append([]byte(nil), v...)
	}
	return nil
}

// Delete removes keys; missing keys are ignored.
func (b *Backend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range keys {
		delete(b.values, k)
	}
	return nil
}

// Names lists the stored keys in sorted order.
func (b *Backend) Names(context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return slices.Sorted(maps.Keys(b.values)), nil
}

func (b *Backend) Ping(context.Context) error { return nil }

func (b *Backend) Close() error { return nil }
