// Package cache is a small TTL cache keyed by content hash.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	val     V
	added   time.Time
	expires time.Time
}

// Stats reports cache activity.
type Stats struct {
	Hits     uint64 `json:"hits"`
	Computes uint64 `json:"computes"`
	Entries  int    `json:"entries"`
}

// Cache maps keys to values for a fixed time-to-live. Values are computed at
// most once per key while cached; concurrent misses on one key wait for a
// single computation. A zero ttl disables expiry and a zero maxEntries
// disables the size bound.
type Cache[V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	max      int
	items    map[string]*entry[V]
	group    singleflight.Group
	hits     uint64
	computes uint64

	now func() time.Time
}

// New returns an empty cache.
func New[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	return &Cache[V]{
		ttl:   ttl,
		max:   maxEntries,
		items: make(map[string]*entry[V]),
		now:   time.Now,
	}
}

// Get returns the live value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookup(key)
	if ok {
		c.hits++
	}
	return v, ok
}

// Set stores v under key, evicting expired entries and, when full, the oldest one.
func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, v)
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// GetOrCompute returns the cached value for key or runs fn to produce it.
// Errors are returned to every waiter and are not cached.
func (c *Cache[V]) GetOrCompute(key string, fn func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	res, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		if v, ok := c.lookup(key); ok {
			c.hits++
			c.mu.Unlock()
			return v, nil
		}
		c.computes++
		c.mu.Unlock()

		v, err := fn()
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purge()
	return len(c.items)
}

// Stats returns a snapshot of cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purge()
	return Stats{Hits: c.hits, Computes: c.computes, Entries: len(c.items)}
}

// lookup requires c.mu.
func (c *Cache[V]) lookup(key string) (V, bool) {
	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(e) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.val, true
}

// store requires c.mu.
func (c *Cache[V]) store(key string, v V) {
	now := c.now()
	c.purge()
	if _, exists := c.items[key]; !exists && c.max > 0 && len(c.items) >= c.max {
		c.evictOldest()
	}
	e := &entry[V]{val: v, added: now}
	if c.ttl > 0 {
		e.expires = now.Add(c.ttl)
	}
	c.items[key] = e
}

func (c *Cache[V]) expired(e *entry[V]) bool {
	return !e.expires.IsZero() && !c.now().Before(e.expires)
}

func (c *Cache[V]) purge() {
	for k, e := range c.items {
		if c.expired(e) {
			delete(c.items, k)
		}
	}
}

func (c *Cache[V]) evictOldest() {
	var oldest string
	var at time.Time
	found := false
	for k, e := range c.items {
		if !found || e.added.Before(at) {
			oldest, at, found = k, e.added, true
		}
	}
	if found {
		delete(c.items, oldest)
	}
}
