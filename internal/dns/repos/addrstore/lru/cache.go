package lru

import (
	"net/netip"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/rr-relay/internal/dns/repos/addrstore"
)

// nameCache is an LRU-backed implementation of addrstore.NameCache.
// It tracks basic metrics: hits, misses, and evictions.
type nameCache struct {
	lru       *lru.Cache[string, []netip.Addr]
	capacity  int
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op NameCache used when size <= 0.
type disabledCache struct{}

// New creates a new NameCache with the given capacity. If size <= 0, a
// disabled no-op cache is returned that always misses and tracks no metrics.
func New(size int) (addrstore.NameCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}
	nc := &nameCache{capacity: size}
	// Use NewWithEvict to observe evictions, including Purge-induced ones.
	cache, err := lru.NewWithEvict(size, func(_ string, _ []netip.Addr) {
		atomic.AddUint64(&nc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	nc.lru = cache
	return nc, nil
}

// Get looks up the addresses for name. When found, increments hits; otherwise increments misses.
func (c *nameCache) Get(name string) ([]netip.Addr, bool) {
	if val, ok := c.lru.Get(name); ok {
		atomic.AddUint64(&c.hits, 1)
		return val, true
	}
	atomic.AddUint64(&c.misses, 1)
	return nil, false
}

// Put stores the addresses for name, replacing any previous list.
func (c *nameCache) Put(name string, addrs []netip.Addr) {
	c.lru.Add(name, addrs)
}

// Len returns the number of entries in the cache.
func (c *nameCache) Len() int { return c.lru.Len() }

// Purge clears all entries. Evictions are counted via the eviction callback.
func (c *nameCache) Purge() { c.lru.Purge() }

// Stats returns cumulative counters and the current size.
func (c *nameCache) Stats() addrstore.CacheStats {
	return addrstore.CacheStats{
		Capacity:  c.capacity,
		Size:      c.lru.Len(),
		Hits:      atomic.LoadUint64(&c.hits),
		Misses:    atomic.LoadUint64(&c.misses),
		Evictions: atomic.LoadUint64(&c.evictions),
	}
}

// disabledCache implementation
func (d *disabledCache) Get(string) ([]netip.Addr, bool) { return nil, false }
func (d *disabledCache) Put(string, []netip.Addr)        {}
func (d *disabledCache) Len() int                        { return 0 }
func (d *disabledCache) Purge()                          {}
func (d *disabledCache) Stats() addrstore.CacheStats     { return addrstore.CacheStats{} }

var _ addrstore.NameCache = (*nameCache)(nil)
var _ addrstore.NameCache = (*disabledCache)(nil)
