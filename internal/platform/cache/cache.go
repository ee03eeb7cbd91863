// Package cache provides a bounded LRU cache with per entry TTL expiry
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	val       V
	expiresAt time.Time
}

// Cache is an LRU cache where every entry also carries an expiry deadline.
// Reads refresh recency; expired entries are dropped lazily on Get and
// eagerly by Sweep
type Cache[K comparable, V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[K, entry[V]]
	ttl time.Duration
	now func() time.Time // seam for tests
}

// New builds a cache holding at most capacity entries, each valid for ttl
// after Set. Capacity must be positive
func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	l, err := lru.New[K, entry[V]](capacity)
	if err != nil {
		panic(err) // only fails on capacity <= 0
	}
	return &Cache[K, V]{
		lru: l,
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the live value for key and marks it most recently used.
// Entries past their deadline are removed and reported as a miss
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		var zero V
		return zero, false
	}
	return e.val, true
}

// Set stores value under key with a fresh TTL, evicting the least recently
// used entry when the cache is full
func (c *Cache[K, V]) Set(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry[V]{val: val, expiresAt: c.now().Add(c.ttl)})
}

// Remove drops key if present
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Len reports the number of entries, including any not yet swept
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge drops everything
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Sweep removes all expired entries without touching recency order
func (c *Cache[K, V]) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && !now.Before(e.expiresAt) {
			c.lru.Remove(key)
		}
	}
}
