package addrstore

import "net/netip"

// BloomSizer computes Bloom filter parameters from capacity (n) and target FP rate (p).
// It returns m (number of bits) and k (number of hash functions).
type BloomSizer interface {
	Size(n uint64, p float64) (m uint64, k uint8)
}

// BloomFilter records normalized names for fast negative lookups.
// ApproxCount estimates how many distinct names have been added.
type BloomFilter interface {
	Add(name []byte)
	MightContain(name []byte) bool
	ApproxCount() uint64
}

// BloomFactory constructs Bloom filters sized for an expected dataset.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}

// NameCache caches the address list for a name with basic metrics.
type NameCache interface {
	Get(name string) ([]netip.Addr, bool)
	Put(name string, addrs []netip.Addr)
	Len() int
	Purge()
	Stats() CacheStats
}

// Store is the authoritative name → addresses index.
//   - Get returns the addresses for name in insertion order (nil when absent)
//   - Add appends addr to name unless already present; added reports whether it was new
//   - ForEach visits every name once; returning an error stops the walk
type Store interface {
	Get(name string) ([]netip.Addr, error)
	Add(name string, addr netip.Addr) (added bool, err error)
	ForEach(visit func(name string, addrs []netip.Addr) error) error
	Stats() StoreStats
	Close() error
}
