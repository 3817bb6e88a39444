package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is the in-process tier: a size-bounded LRU with per-entry
// TTL. Lookups do not extend an entry's lifetime.
type MemoryCache struct {
	entries *expirable.LRU[Key, CachedTranslation]
}

// NewMemoryCache creates the memory tier with the given capacity and TTL.
func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: expirable.NewLRU[Key, CachedTranslation](capacity, nil, ttl),
	}
}

// Get returns the cached translation for key, if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, key Key) (*CachedTranslation, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return &v, true
}

// Put stores value under key, overwriting any existing entry.
func (c *MemoryCache) Put(_ context.Context, key Key, value CachedTranslation) {
	if value.CachedAt.IsZero() {
		value.CachedAt = time.Now()
	}
	c.entries.Add(key, value)
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}
