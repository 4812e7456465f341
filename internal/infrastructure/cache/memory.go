package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local answer cache. Expired entries are dropped
// lazily on read, so the map only grows with the distinct key set.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, tenant, endpoint, params string) ([]byte, bool) {
	key := cacheKey(tenant, endpoint, params)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

func (c *MemoryCache) Put(_ context.Context, tenant, endpoint, params string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(tenant, endpoint, params)] = memoryEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

func cacheKey(tenant, endpoint, params string) string {
	return "qa:" + endpoint + ":" + tenant + ":" + params
}
