package addrstore

// CacheStats reports lightweight cache metrics.
// All fields are best-effort snapshots and may be updated concurrently.
type CacheStats struct {
	Capacity  int    // configured capacity (0 for disabled cache)
	Size      int    // current number of entries
	Hits      uint64 // total cache hits since construction
	Misses    uint64 // total cache misses since construction
	Evictions uint64 // total evictions since construction
}

// StoreStats reports lightweight store metrics and metadata.
type StoreStats struct {
	Names       uint64 // number of distinct names
	Addresses   uint64 // number of stored addresses across all names
	UpdatedUnix int64  // last write unix time (0 if unknown)
}

// RepoStats exposes repository-level counters and underlying stats.
type RepoStats struct {
	Cache        CacheStats
	Store        StoreStats
	BloomNames   uint64 // estimated names in the Bloom filter
	BloomRejects uint64 // lookups answered negative by the Bloom filter
	StoreLookups uint64 // lookups that reached the store
	Inserts      uint64 // addresses newly added
}

// Fields renders the stats for structured logging.
func (s RepoStats) Fields() map[string]any {
	return map[string]any{
		"cache_size":      s.Cache.Size,
		"cache_hits":      s.Cache.Hits,
		"cache_misses":    s.Cache.Misses,
		"cache_evictions": s.Cache.Evictions,
		"store_names":     s.Store.Names,
		"store_addresses": s.Store.Addresses,
		"bloom_names":     s.BloomNames,
		"bloom_rejects":   s.BloomRejects,
		"store_lookups":   s.StoreLookups,
		"inserts":         s.Inserts,
	}
}
