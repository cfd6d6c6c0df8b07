package cache

import "time"

// LayeredCache reads through memory into disk. Disk hits are promoted to
// memory so repeated names in one run pay the file read only once.
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache builds the standard two-layer cache: a short-lived memory
// layer in front of a persistent disk layer at diskDir.
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get checks memory first, then disk.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}
	if val, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, val, 0)
		return val, true
	}
	return nil, false
}

// Set writes through to both layers.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

// Clear empties both layers.
func (c *LayeredCache) Clear() error {
	memErr := c.memory.Clear()
	if err := c.disk.Clear(); err != nil {
		return err
	}
	return memErr
}
