package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RunCache memoizes provider responses for the duration of one
// synchronization run, keyed by response kind and external ID. Each run (and
// each job type) gets its own instance; nothing survives across runs.
type RunCache struct {
	lru *lru.Cache[string, any]
}

// NewRunCache creates a run cache holding up to size entries.
func NewRunCache(size int) *RunCache {
	if size <= 0 {
		size = 512
	}
	// lru.New only fails on non-positive size, which is guarded above.
	c, _ := lru.New[string, any](size)
	return &RunCache{lru: c}
}

func key(kind string, externalID int64) string {
	return fmt.Sprintf("%s:%d", kind, externalID)
}

func (c *RunCache) Get(kind string, externalID int64) (any, bool) {
	return c.lru.Get(key(kind, externalID))
}

func (c *RunCache) Set(kind string, externalID int64, value any) {
	c.lru.Add(key(kind, externalID), value)
}

// Memoize returns the cached value for (kind, externalID) or runs fetch and
// caches its result. A fetch error is returned without caching so a later
// item can retry.
func Memoize[T any](c *RunCache, kind string, externalID int64, fetch func() (T, error)) (T, error) {
	if c != nil {
		if cached, ok := c.Get(kind, externalID); ok {
			if typed, ok := cached.(T); ok {
				return typed, nil
			}
		}
	}

	value, err := fetch()
	if err != nil {
		return value, err
	}
	if c != nil {
		c.Set(kind, externalID, value)
	}
	return value, nil
}
