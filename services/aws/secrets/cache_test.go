package secrets

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testTTL = time.Minute

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(ttl time.Duration, maxSize int) (*TTLCache, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewTTLCache(ttl, maxSize)
	cache.now = c.now
	return cache, c
}

func TestTTLCacheExpiry(t *testing.T) {
	cache, clk := newTestCache(time.Minute, 0)
	cache.Set("a", "1")

	v, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	clk.t = clk.t.Add(time.Minute)
	_, ok = cache.Get("a")
	assert.False(t, ok)
	assert.Zero(t, cache.Len())
}

func TestTTLCacheEvictsClosestToExpiry(t *testing.T) {
	cache, clk := newTestCache(time.Minute, 2)
	cache.Set("a", "1")
	clk.t = clk.t.Add(time.Second)
	cache.Set("b", "2")
	cache.Set("c", "3")

	_, ok := cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, cache.Len())

	// Overwriting an existing key never evicts.
	cache.Set("c", "4")
	assert.Equal(t, 2, cache.Len())
	v, _ := cache.Get("c")
	assert.Equal(t, "4", v)
}

func TestTTLCacheConcurrentAccess(t *testing.T) {
	cache := NewTTLCache(time.Minute, 10)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i))
			cache.Set(key, key)
			cache.Get(key)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, cache.Len(), 10)
}
