package secrets

import (
	"sync"
	"time"
)

// Cache stores secret values between reads.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

type cacheEntry struct {
	value   string
	expires time.Time
}

// TTLCache keeps values for a fixed time-to-live. When full, the entry
// closest to expiry is evicted.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewTTLCache returns a cache keeping values for ttl. A maxSize of 0 means
// unbounded.
func NewTTLCache(ttl time.Duration, maxSize int) *TTLCache {
	return &TTLCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns the cached value of key if it has not expired.
func (c *TTLCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

// Set stores value under key.
func (c *TTLCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		var oldest string
		var oldestExpiry time.Time
		for k, e := range c.entries {
			if oldest == "" || e.expires.Before(oldestExpiry) {
				oldest, oldestExpiry = k, e.expires
			}
		}
		delete(c.entries, oldest)
	}
	c.entries[key] = cacheEntry{value: value, expires: c.now().Add(c.ttl)}
}

// Len returns the number of unexpired entries.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	return len(c.entries)
}
