package disappearing

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the number of configurations kept when no size is set.
const DefaultCacheSize = 256

// cache holds committed configurations keyed by thread id, each with the row
// version it was read at. A nil *cache is a disabled cache.
type cache struct {
	lru *lru.Cache
}

type cacheEntry struct {
	cfg     Configuration
	version int64
}

func newCache(size int) (*cache, error) {
	if size <= 0 {
		return nil, nil
	}
	l, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create configuration cache: %w", err)
	}
	return &cache{lru: l}, nil
}

func (c *cache) get(threadID string) (cacheEntry, bool) {
	if c == nil {
		return cacheEntry{}, false
	}
	v, ok := c.lru.Get(threadID)
	if !ok {
		return cacheEntry{}, false
	}
	return v.(cacheEntry), true
}

func (c *cache) add(cfg Configuration, version int64) {
	if c == nil {
		return
	}
	c.lru.Add(cfg.uniqueID, cacheEntry{cfg: cfg, version: version})
}

func (c *cache) remove(threadID string) {
	if c == nil {
		return
	}
	c.lru.Remove(threadID)
}

func (c *cache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
