// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry and built-in metrics.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultCapacity is used when New is given a non-positive capacity.
	DefaultCapacity = 1000

	// DefaultTTL is the time-to-live used by NewWithDefaults.
	DefaultTTL = 15 * time.Minute
)

// Cache is a generic thread-safe LRU cache.
// A zero TTL means entries never expire and are only evicted by capacity.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	items    map[K]*entry[K, V]
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time

	// Metrics (lock-free using atomics)
	hits    atomic.Uint64
	misses  atomic.Uint64
	evicts  atomic.Uint64
	expires atomic.Uint64
	sets    atomic.Uint64
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
	element   *list.Element
}

// Option configures a Cache.
type Option func(*config)

type config struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL sets the time-to-live for entries. Non-positive disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source; intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a new Cache with the specified capacity.
// When the cache is full, the least recently used item is evicted.
func New[K comparable, V any](capacity int, opts ...Option) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ttl < 0 {
		cfg.ttl = 0
	}
	return &Cache[K, V]{
		items:    make(map[K]*entry[K, V], capacity),
		order:    list.New(),
		capacity: capacity,
		ttl:      cfg.ttl,
		now:      cfg.now,
	}
}

// NewWithDefaults creates a cache with DefaultCapacity and DefaultTTL.
func NewWithDefaults[K comparable, V any]() *Cache[K, V] {
	return New[K, V](DefaultCapacity, WithTTL(DefaultTTL))
}

// Get retrieves a value from the cache.
// Expired entries are dropped and reported as misses.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if ok && c.expired(e) {
		c.remove(e)
		c.expires.Add(1)
		ok = false
	}
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}

	c.hits.Add(1)
	c.order.MoveToFront(e.element)
	return e.value, true
}

// Set adds or updates a value in the cache and restarts its TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.sets.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = c.deadline()
		c.order.MoveToFront(e.element)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	e := &entry[K, V]{
		key:       key,
		value:     value,
		expiresAt: c.deadline(),
	}
	e.element = c.order.PushFront(e)
	c.items[key] = e
}

// deadline returns the expiry for an entry stored now.
func (c *Cache[K, V]) deadline() time.Time {
	if c.ttl == 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *Cache[K, V]) expired(e *entry[K, V]) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

// evictOldest removes the least recently used item.
// Must be called with mu held.
func (c *Cache[K, V]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.remove(oldest.Value.(*entry[K, V]))
	c.evicts.Add(1)
}

// remove must be called with mu held.
func (c *Cache[K, V]) remove(e *entry[K, V]) {
	delete(c.items, e.key)
	c.order.Remove(e.element)
}

// Delete removes an item from the cache.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.remove(e)
	}
}

// Len returns the current number of items, including expired items that
// have not been collected yet.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all items from the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*entry[K, V], c.capacity)
	c.order.Init()
}

// Cleanup removes expired entries and returns how many were removed.
func (c *Cache[K, V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, e := range c.items {
		if c.expired(e) {
			c.remove(e)
			removed++
		}
	}
	c.expires.Add(uint64(removed)) //nolint:gosec // removed is never negative
	return removed
}

// Stats holds cache statistics.
type Stats struct {
	Size     int
	Capacity int
	Hits     uint64
	Misses   uint64
	Evicts   uint64
	Expires  uint64
	Sets     uint64
	HitRate  float64
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	size := c.Len()

	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:     size,
		Capacity: c.capacity,
		Hits:     hits,
		Misses:   misses,
		Evicts:   c.evicts.Load(),
		Expires:  c.expires.Load(),
		Sets:     c.sets.Load(),
		HitRate:  hitRate,
	}
}
