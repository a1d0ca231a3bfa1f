// Package addrstore holds the addresses learned for each name. Reads go
// through a cache → bloom → store pipeline; writes go to the store first and
// then refresh the bloom filter and cache.
package addrstore

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/common/utils"
)

// ErrInvalidEntry is returned for empty names and non-IPv4 addresses.
var ErrInvalidEntry = errors.New("invalid address entry")

// Options configures a Repository.
type Options struct {
	Store  Store
	Cache  NameCache
	Bloom  BloomFactory
	Logger log.Logger

	// BloomCapacity is the expected number of distinct names.
	BloomCapacity uint64
	// BloomFPRate is the target false-positive rate for the Bloom filter.
	BloomFPRate float64
}

// Repository implements the resolver's CacheStore.
type Repository struct {
	mu     sync.RWMutex
	store  Store
	cache  NameCache
	bloom  BloomFilter
	logger log.Logger

	bloomCapacity uint64

	bloomRejects atomic.Uint64
	storeLookups atomic.Uint64
	inserts      atomic.Uint64
}

// NewRepository constructs a Repository. A nil Cache or Bloom disables that stage.
// Call Warm once to load existing store contents into the Bloom filter.
func NewRepository(opts Options) *Repository {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	r := &Repository{
		store:  opts.Store,
		cache:  opts.Cache,
		logger: log.WithFields(opts.Logger, map[string]any{"component": "addrstore"}),
	}
	if opts.Bloom != nil {
		r.bloom = opts.Bloom.New(opts.BloomCapacity, opts.BloomFPRate)
		r.bloomCapacity = opts.BloomCapacity
	}
	return r
}

// Lookup returns the addresses known for name, in insertion order.
// A name that was never inserted yields an empty slice and no error.
func (r *Repository) Lookup(name string) ([]netip.Addr, error) {
	cn := utils.CanonicalName(name)

	// 1) checkCache
	if addrs, ok := r.checkCache(cn); ok {
		return addrs, nil
	}
	// 2) checkBloom: definitely absent
	if !r.checkBloom(cn) {
		r.bloomRejects.Add(1)
		return nil, nil
	}
	// 3) checkStore and updateCache, serialized with Insert so the cache
	// never holds a list older than the store
	r.storeLookups.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	addrs, err := r.store.Get(cn)
	if err != nil {
		return nil, err
	}
	if len(addrs) > 0 && r.cache != nil {
		r.cache.Put(cn, append([]netip.Addr(nil), addrs...))
	}
	return addrs, nil
}

// Insert records addr for name. It is idempotent: inserting an existing pair
// returns false and changes nothing.
func (r *Repository) Insert(name string, addr netip.Addr) (bool, error) {
	cn := utils.CanonicalName(name)
	addr = addr.Unmap()
	if cn == "" || !addr.Is4() {
		return false, fmt.Errorf("%w: %q %s", ErrInvalidEntry, name, addr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	added, err := r.store.Add(cn, addr)
	if err != nil || !added {
		return false, err
	}
	r.inserts.Add(1)
	if r.bloom != nil {
		r.bloom.Add([]byte(cn))
	}
	if r.cache != nil {
		if cached, ok := r.cache.Get(cn); ok {
			next := make([]netip.Addr, 0, len(cached)+1)
			next = append(next, cached...)
			r.cache.Put(cn, append(next, addr))
		}
	}
	r.logger.Debug(map[string]any{"name": cn, "address": addr.String()}, "address learned")
	return true, nil
}

// Warm loads every stored name into the Bloom filter and returns the number
// of names seen.
func (r *Repository) Warm() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	err := r.store.ForEach(func(name string, _ []netip.Addr) error {
		if r.bloom != nil {
			r.bloom.Add([]byte(name))
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	r.logger.Info(map[string]any{"names": n}, "address store warmed")
	if r.bloom != nil && r.bloomCapacity > 0 && uint64(n) > r.bloomCapacity {
		r.logger.Warn(map[string]any{
			"names":    n,
			"capacity": r.bloomCapacity,
		}, "bloom filter loaded past capacity, false positive rate will exceed target")
	}
	return n, nil
}

// Stats returns a snapshot of repository counters.
func (r *Repository) Stats() RepoStats {
	st := RepoStats{
		Store:        r.store.Stats(),
		BloomRejects: r.bloomRejects.Load(),
		StoreLookups: r.storeLookups.Load(),
		Inserts:      r.inserts.Load(),
	}
	if r.cache != nil {
		st.Cache = r.cache.Stats()
	}
	if r.bloom != nil {
		st.BloomNames = r.bloom.ApproxCount()
	}
	return st
}

// Close releases the underlying store.
func (r *Repository) Close() error {
	return r.store.Close()
}

// checkCache returns cached addresses when present.
func (r *Repository) checkCache(cn string) ([]netip.Addr, bool) {
	if r.cache == nil {
		return nil, false
	}
	r.mu.RLock()
	addrs, ok := r.cache.Get(cn)
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return append([]netip.Addr(nil), addrs...), true
}

// checkBloom returns true if we should consult the store. With no filter
// loaded it always returns true.
func (r *Repository) checkBloom(cn string) bool {
	r.mu.RLock()
	bf := r.bloom
	r.mu.RUnlock()
	if bf == nil {
		return true
	}
	return bf.MightContain([]byte(cn))
}
