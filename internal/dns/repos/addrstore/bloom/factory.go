// Package bloom backs the address store's negative lookups with
// bits-and-blooms filters.
package bloom

import "github.com/haukened/rr-relay/internal/dns/repos/addrstore"

type factory struct {
	sizer addrstore.BloomSizer
}

// NewFactory returns a BloomFactory sized from expected names and FP rate.
func NewFactory() addrstore.BloomFactory { return factory{sizer: NewSizer()} }

func (f factory) New(capacity uint64, fpRate float64) addrstore.BloomFilter {
	m, k := f.sizer.Size(capacity, fpRate)
	return newNameFilter(uint(m), uint(k))
}
