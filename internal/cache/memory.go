package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps entries in process memory with per-entry TTL. It backs
// the fast layer of the layered cache; a single pipeline run hits it when
// the same place name appears in many chunks of a batch.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a memory cache whose entries default to defaultTTL
// and are swept every cleanupInterval.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get returns the value stored under key, if any.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores value under key. A zero ttl means the default TTL.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.cache.Set(key, value, ttl)
	return nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}
