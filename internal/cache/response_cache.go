package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ResponseCache is the TTL JSON cache the read-side handlers consult before
// hitting the store. A miss is transparent; a disabled cache behaves as
// all-miss rather than erroring, so callers never branch on availability.
type ResponseCache struct {
	cache *gocache.Cache
}

// NewResponseCache creates a response cache with the given TTL. A
// non-positive TTL disables caching entirely.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		return &ResponseCache{}
	}
	return &ResponseCache{cache: gocache.New(ttl, 2*ttl)}
}

// Enabled reports whether the cache actually stores anything.
func (c *ResponseCache) Enabled() bool {
	return c != nil && c.cache != nil
}

func (c *ResponseCache) Get(key string) (any, bool) {
	if !c.Enabled() {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *ResponseCache) Set(key string, value any) {
	if !c.Enabled() {
		return
	}
	c.cache.SetDefault(key, value)
}

// Invalidate drops one key; used after pipeline writes that change what the
// read side would serve.
func (c *ResponseCache) Invalidate(key string) {
	if !c.Enabled() {
		return
	}
	c.cache.Delete(key)
}

// Flush drops every cached response. Called after pipeline writes, where
// recomputing which keys went stale is not worth it.
func (c *ResponseCache) Flush() {
	if !c.Enabled() {
		return
	}
	c.cache.Flush()
}
