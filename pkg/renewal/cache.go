package renewal

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache holds each owner's subscription list between writes, so calendar views do not
// read storage on every request.
type Cache interface {
	// Get returns the cached subscriptions of an owner and true if found
	Get(ownerID string) ([]Subscription, bool)

	// Set stores the subscriptions of an owner
	Set(ownerID string, subs []Subscription)

	// Invalidate removes an owner's entry
	Invalidate(ownerID string)

	// Clear removes all entries from the cache
	Clear()

	// Stats returns cache statistics
	Stats() CacheStats
}

// CacheStats holds cache performance statistics
type CacheStats struct {
	Hits   int64
	Misses int64
	// Evictions counts entries dropped for capacity, expiry or invalidation.
	Evictions int64
	Size      int
}

// NoopCache is a cache implementation that does nothing
// Used when caching is disabled
type NoopCache struct{}

// NewNoopCache creates a new no-op cache
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (c *NoopCache) Get(_ string) ([]Subscription, bool) {
	return nil, false
}

func (c *NoopCache) Set(_ string, _ []Subscription) {}

func (c *NoopCache) Invalidate(_ string) {}

func (c *NoopCache) Clear() {}

func (c *NoopCache) Stats() CacheStats {
	return CacheStats{}
}

// LRUCache implements Cache with a size-bounded, expiring LRU.
type LRUCache struct {
	lru       *expirable.LRU[string, []Subscription]
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewLRUCache creates a cache holding at most maxOwners entries, each for at most ttl.
func NewLRUCache(maxOwners int, ttl time.Duration) *LRUCache {
	if maxOwners <= 0 {
		maxOwners = 1000 // default
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := &LRUCache{}
	c.lru = expirable.NewLRU[string, []Subscription](maxOwners, func(string, []Subscription) {
		c.evictions.Add(1)
	}, ttl)
	return c
}

func (c *LRUCache) Get(ownerID string) ([]Subscription, bool) {
	subs, ok := c.lru.Get(ownerID)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return slices.Clone(subs), true
}

func (c *LRUCache) Set(ownerID string, subs []Subscription) {
	c.lru.Add(ownerID, slices.Clone(subs))
}

func (c *LRUCache) Invalidate(ownerID string) {
	c.lru.Remove(ownerID)
}

func (c *LRUCache) Clear() {
	c.lru.Purge()
}

func (c *LRUCache) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.lru.Len(),
	}
}
