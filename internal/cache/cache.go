// Package cache holds short-lived lookups shared by job processors.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a string-keyed TTL cache. Implementations expire entries on their own.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, v V) error
	Delete(ctx context.Context, key string) error
}

const defaultSize = 1024

// Memory is an in-process expirable LRU.
type Memory[V any] struct {
	lru *expirable.LRU[string, V]
}

func NewMemory[V any](size int, ttl time.Duration) *Memory[V] {
	if size <= 0 {
		size = defaultSize
	}
	return &Memory[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *Memory[V]) Set(_ context.Context, key string, v V) error {
	m.lru.Add(key, v)
	return nil
}

func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// GetOrLoad returns the cached value for key, calling load and storing its result on a miss.
// The cache is best effort: read and write errors fall through to load.
func GetOrLoad[V any](ctx context.Context, c Cache[V], key string, load func(context.Context) (V, error)) (V, error) {
	if v, ok, err := c.Get(ctx, key); err == nil && ok {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	_ = c.Set(ctx, key, v)
	return v, nil
}
