package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache is a read-through TTL cache. Concurrent misses for the same key share
// one load; an invalidation during a load keeps the loaded value out of the cache.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	now        func() time.Time
	items      map[K]entry[V]
	generation uint64
	group      singleflight.Group
}

func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:   ttl,
		now:   time.Now,
		items: map[K]entry[V]{},
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if !ok || !c.now().Before(item.expires) {
		var zero V
		return zero, false
	}
	return item.value, true
}

func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load func(ctx context.Context) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	result, err, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.items[key] = entry[V]{value: value, expires: c.now().Add(c.ttl)}
		}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	c.generation++
}

// InvalidateWhere drops every cached entry for which match reports true.
func (c *Cache[K, V]) InvalidateWhere(match func(K, V) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.items {
		if match(key, e.value) {
			delete(c.items, key)
		}
	}
	c.generation++
}

func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[K]entry[V]{}
	c.generation++
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
