// =============================
// File: internal/cache/cache.go
// =============================

// Package cache provides a TTL-bounded memoization layer for expensive
// lookups (tip pricing, pool discovery, pool state reads). Keys are explicit
// and comparable; the singleflight key is derived with fmt.Sprintf("%v", key).
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Producer fetches the value for a key when the cache has no fresh entry.
type Producer[K comparable, V any] func(ctx context.Context, key K) (V, error)

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL memoizes a producer with a fixed time-to-live per entry. Expired
// entries are evicted lazily on the next lookup for that key. Producer
// failures are returned to the caller and never cached. Concurrent lookups
// for the same uncached key are collapsed into one producer call.
type TTL[K comparable, V any] struct {
	ttl      time.Duration
	producer Producer[K, V]

	mu      sync.Mutex
	entries map[K]entry[V]
	group   singleflight.Group

	now func() time.Time // overridden in tests
}

// New creates a TTL cache around the producer.
func New[K comparable, V any](ttl time.Duration, producer Producer[K, V]) *TTL[K, V] {
	return &TTL[K, V]{
		ttl:      ttl,
		producer: producer,
		entries:  make(map[K]entry[V]),
		now:      time.Now,
	}
}

// Get returns the cached value for key if present and unexpired; otherwise
// it invokes the producer, stores the result and returns it.
func (c *TTL[K, V]) Get(ctx context.Context, key K) (V, error) {
	if value, ok := c.lookup(key); ok {
		return value, nil
	}

	flightKey := fmt.Sprintf("%v", key)
	result, err, _ := c.group.Do(flightKey, func() (interface{}, error) {
		// A concurrent flight may have populated the entry already.
		if value, ok := c.lookup(key); ok {
			return value, nil
		}
		value, err := c.producer(ctx, key)
		if err != nil {
			return nil, err
		}
		c.store(key, value)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

// Forget drops the entry for key, forcing the next Get to hit the producer.
func (c *TTL[K, V]) Forget(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *TTL[K, V]) lookup(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[K, V]) store(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expires: c.now().Add(c.ttl)}
}
