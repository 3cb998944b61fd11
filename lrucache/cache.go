/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Opts represents optional parameters of LRUCache.
type Opts struct {
	// DefaultTTL is used by Add and GetOrAdd. Zero means entries never expire.
	// Expired entries are removed lazily on access or by RemoveExpired.
	DefaultTTL time.Duration

	// Metrics receives cache usage events. Metrics are disabled when nil.
	Metrics MetricsCollector

	// Now is used instead of time.Now. It's helpful in tests.
	Now func() time.Time
}

// LRUCache is a goroutine-safe cache that evicts the least recently used entry when it's full.
type LRUCache[K comparable, V any] struct {
	maxEntries int
	defaultTTL time.Duration
	metrics    MetricsCollector
	now        func() time.Time

	mu      sync.Mutex
	lruList *list.List
	entries map[K]*list.Element
}

// New creates a new LRUCache that keeps at most maxEntries entries.
func New[K comparable, V any](maxEntries int, opts Opts) (*LRUCache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("max entries must be positive, got %d", maxEntries)
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("default TTL must not be negative, got %s", opts.DefaultTTL)
	}
	if opts.Metrics == nil {
		opts.Metrics = disabledMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LRUCache[K, V]{
		maxEntries: maxEntries,
		defaultTTL: opts.DefaultTTL,
		metrics:    opts.Metrics,
		now:        opts.Now,
		lruList:    list.New(),
		entries:    make(map[K]*list.Element),
	}, nil
}

// Get returns a not expired value by key and marks it as recently used.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key, c.now())
}

// Add adds or replaces a value with the default TTL.
func (c *LRUCache[K, V]) Add(key K, value V) {
	c.AddWithTTL(key, value, c.defaultTTL)
}

// AddWithTTL adds or replaces a value that expires after ttl. Zero ttl means no expiration.
func (c *LRUCache[K, V]) AddWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if elem, ok := c.entries[key]; ok {
		c.lruList.MoveToFront(elem)
		elem.Value = &entry[K, V]{key: key, value: value, expiresAt: expiresAt(now, ttl)}
		return
	}
	c.addNew(key, value, expiresAt(now, ttl))
}

// GetOrAdd returns the present value, or adds the one built by valueProvider with the default TTL.
// exists reports whether the value was already in the cache.
func (c *LRUCache[K, V]) GetOrAdd(key K, valueProvider func() V) (value V, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if value, exists = c.get(key, now); exists {
		return value, true
	}
	value = valueProvider()
	c.addNew(key, value, expiresAt(now, c.defaultTTL))
	return value, false
}

// Remove deletes an entry and reports whether it was present.
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	c.metrics.SetEntries(len(c.entries))
	return true
}

// RemoveExpired deletes all expired entries and returns their number.
func (c *LRUCache[K, V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.lruList.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry[K, V]).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	if removed > 0 {
		c.metrics.ObserveRemoved(RemovalExpired, removed)
	}
	c.metrics.SetEntries(len(c.entries))
	return removed
}

// Purge removes all entries. Removed entries are not counted as evictions.
func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element)
	c.lruList.Init()
	c.metrics.SetEntries(0)
}

// Len returns the number of entries including expired ones that were not removed yet.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRUCache[K, V]) get(key K, now time.Time) (value V, ok bool) {
	elem, hit := c.entries[key]
	if !hit {
		c.metrics.ObserveLookup(false)
		return value, false
	}
	e := elem.Value.(*entry[K, V])
	if e.expired(now) {
		c.removeElement(elem)
		c.metrics.SetEntries(len(c.entries))
		c.metrics.ObserveRemoved(RemovalExpired, 1)
		c.metrics.ObserveLookup(false)
		return value, false
	}
	c.lruList.MoveToFront(elem)
	c.metrics.ObserveLookup(true)
	return e.value, true
}

func (c *LRUCache[K, V]) addNew(key K, value V, expiresAt time.Time) {
	c.entries[key] = c.lruList.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	if len(c.entries) > c.maxEntries {
		c.removeElement(c.lruList.Back())
		c.metrics.ObserveRemoved(RemovalCapacity, 1)
	}
	c.metrics.SetEntries(len(c.entries))
}

func (c *LRUCache[K, V]) removeElement(elem *list.Element) {
	c.lruList.Remove(elem)
	delete(c.entries, elem.Value.(*entry[K, V]).key)
}

func expiresAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
