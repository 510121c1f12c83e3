// Package cache implements a small key/value store with read-time staleness
// bounds. Entries are never evicted proactively; a lookup decides freshness
// against the caller's max age. The working key set is a handful of
// well-known names, so unbounded growth is not a concern in practice.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value    any
	storedAt time.Time
}

// Cache is safe for concurrent use. The zero value is not usable; construct
// with New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// New returns an empty cache using the wall clock.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWithClock returns a cache that reads time from now. Used by tests to
// control staleness deterministically.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get returns the value stored under key if it was written less than maxAge
// ago. A stale or missing entry reports false; staleness is a cache miss,
// never an error.
func (c *Cache) Get(key string, maxAge time.Duration) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= maxAge {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, overwriting any previous entry and resetting
// its age. Last write wins when callers race.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
}

// Invalidate drops a single entry.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// GetTyped is a convenience wrapper around Cache.Get that asserts the stored
// value's type. A type mismatch reports a miss.
func GetTyped[T any](c *Cache, key string, maxAge time.Duration) (T, bool) {
	var zero T
	v, ok := c.Get(key, maxAge)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
