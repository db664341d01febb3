// Package cache keeps recent classification results keyed by content
// fingerprint.
package cache

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/byteowlz/factscan/internal/classifier"
)

// DefaultCapacity is the number of results kept when no size is configured.
const DefaultCapacity = 2

// Stats reports cache usage counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// ResultCache is a bounded least-recently-used map from fingerprint to
// classification result. Entries have no TTL and are never invalidated.
type ResultCache struct {
	mu        sync.Mutex
	lru       *lru.Cache
	capacity  int
	hits      int64
	misses    int64
	evictions int64
}

// New creates a cache holding at most capacity results.
func New(capacity int) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &ResultCache{
		lru:      lru.New(capacity),
		capacity: capacity,
	}
	c.lru.OnEvicted = func(lru.Key, interface{}) {
		c.evictions++
	}
	return c
}

// Get returns the cached result for fp.
func (c *ResultCache) Get(fp string) (*classifier.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(fp)
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return v.(*classifier.Result), true
}

// Set stores result under fp, evicting the least recently used entry when
// the cache is full.
func (c *ResultCache) Set(fp string, result *classifier.Result) {
	if result == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(fp, result)
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear drops every entry and resets the counters.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.OnEvicted = nil
	c.lru.Clear()
	c.lru.OnEvicted = func(lru.Key, interface{}) {
		c.evictions++
	}
	c.hits, c.misses, c.evictions = 0, 0, 0
}

func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
