// Package lru provides a fixed-capacity key/value memoization cache with
// least-recently-used eviction.
package lru

import (
	"container/list"
	"sync"
)

const DefaultMaxSize = 50

type entry[V any] struct {
	key   string
	value V
}

// Cache memoizes up to maxSize key/value pairs. Inserting a new key into a
// full cache evicts the least recently touched entry. It is a memoization
// aid, not a correctness-critical store: callers must tolerate a miss and
// recompute.
type Cache[V any] struct {
	maxSize int

	mu      sync.Mutex
	order   *list.List // front = most recently used
	entries map[string]*list.Element
}

// New creates a cache holding at most maxSize entries. A non-positive
// maxSize means DefaultMaxSize.
func New[V any](maxSize int) *Cache[V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache[V]{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns the stored value for key. A hit refreshes the entry's recency;
// a miss returns the zero value and false.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	c.order.MoveToFront(elem)
	return elem.Value.(*entry[V]).value, true
}

// Set stores value under key. Overwriting an existing key refreshes its
// recency without changing the size. Inserting a new key into a full cache
// evicts exactly one entry, the least recently touched.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*entry[V]).value = value
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry[V]).key)
		}
	}

	c.entries[key] = c.order.PushFront(&entry[V]{key: key, value: value})
}

// Has reports whether key is present without affecting recency.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	return ok
}

// Clear empties the cache.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[string]*list.Element)
}

// Len returns the current entry count.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}
