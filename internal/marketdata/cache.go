// Package marketdata aggregates quotes, charts, news and sentiment from
// several external providers behind a TTL cache and per-provider quotas.
package marketdata

import (
	"context"
	"reflect"
	"sync"
	"time"
)

// Cache is a key/value store with per-entry expiry. Implementations must be
// safe for concurrent use. Get fills dst (a non-nil pointer) and reports
// whether a live entry existed; expired entries count as absent.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration, source string)
}

type memoryEntry struct {
	data    interface{}
	created time.Time
	ttl     time.Duration
	source  string
}

// MemoryCache is the process-local Cache. Values are stored as-is without
// copying; callers must treat returned data as immutable. State is
// process-lifetime only and resets on restart.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty cache. A nil clock defaults to time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Set unconditionally overwrites any existing entry and records creation time.
func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		data:    value,
		created: c.now(),
		ttl:     ttl,
		source:  source,
	}
}

// Get reports a hit iff now - created <= ttl. Stale slots are evicted lazily
// here rather than by a sweeper.
func (c *MemoryCache) Get(_ context.Context, key string, dst interface{}) bool {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false
	}

	if c.now().Sub(entry.created) > entry.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, ok := c.entries[key]; ok && cur.created.Equal(entry.created) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return false
	}

	out := reflect.ValueOf(dst)
	if out.Kind() != reflect.Ptr || out.IsNil() {
		return false
	}
	val := reflect.ValueOf(entry.data)
	if !val.Type().AssignableTo(out.Elem().Type()) {
		return false
	}
	out.Elem().Set(val)
	return true
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

// Stats summarizes live entries per source tag.
func (c *MemoryCache) Stats() (entries int, sources map[string]int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sources = make(map[string]int)
	for _, e := range c.entries {
		sources[e.source]++
	}
	return len(c.entries), sources
}
