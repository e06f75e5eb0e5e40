package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LookupCache holds one slowly changing value, such as the process name
// directory, and reloads it once the TTL has passed. A zero TTL caches until
// Invalidate is called. Failed loads are not cached.
type LookupCache[T any] struct {
	load   func(ctx context.Context) (T, error)
	ttl    time.Duration
	now    func() time.Time
	flight singleflight.Group

	mu       sync.RWMutex
	value    T
	loadedAt time.Time
	loaded   bool
}

func NewLookupCache[T any](ttl time.Duration, load func(ctx context.Context) (T, error)) *LookupCache[T] {
	return &LookupCache[T]{load: load, ttl: ttl, now: time.Now}
}

// Get returns the cached value or loads it. Concurrent misses share one load.
func (c *LookupCache[T]) Get(ctx context.Context) (T, error) {
	c.mu.RLock()
	if c.fresh() {
		v := c.value
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.flight.Do("load", func() (any, error) {
		loaded, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.value = loaded
		c.loadedAt = c.now()
		c.loaded = true
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate forces the next Get to reload.
func (c *LookupCache[T]) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}

func (c *LookupCache[T]) fresh() bool {
	if !c.loaded {
		return false
	}
	return c.ttl == 0 || c.now().Sub(c.loadedAt) < c.ttl
}
