package newscraper

import (
	"sync"
	"time"
)

// ResponseCache is a best-effort TTL cache for rendered API responses,
// keyed by request parameters. A nil *ResponseCache is valid and behaves as
// a permanent miss, so its absence only forces recomputation.
type ResponseCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value   []byte
	expires time.Time
}

// NewResponseCache creates a cache whose entries live for ttl. A
// non-positive ttl returns nil (caching disabled).
func NewResponseCache(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		return nil
	}
	return &ResponseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached value for key, if present and not expired.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key for the cache's TTL. Expired entries are swept
// opportunistically to keep the map bounded.
func (c *ResponseCache) Set(key string, value []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{value: value, expires: now.Add(c.ttl)}
}
