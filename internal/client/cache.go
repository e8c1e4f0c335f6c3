package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is the default time-to-live for cached timelines.
const DefaultCacheTTL = 5 * time.Second

type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Cache is a thread-safe per-key TTL cache. A zero TTL disables caching.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry[T]
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
}

// NewCache creates a cache with the given TTL.
func NewCache[T any](ttl time.Duration) *Cache[T] {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache[T]{
		entries: make(map[string]cacheEntry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key, calling fetch when it is missing or
// expired. Concurrent misses on one key share a single fetch, and the lock is
// never held while fetching. Fetch errors are returned as is and nothing is
// cached.
func (c *Cache[T]) Get(ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// Double-check: another caller may have stored it meanwhile
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Cache[T]) store(key string, v T) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[T]{value: v, fetchedAt: c.now()}
}

func (c *Cache[T]) lookup(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.fresh(e) {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (c *Cache[T]) fresh(e cacheEntry[T]) bool {
	return c.now().Sub(e.fetchedAt) < c.ttl
}

// Invalidate drops one key.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every key.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry[T])
}

// Len reports how many entries are held, expired or not.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
