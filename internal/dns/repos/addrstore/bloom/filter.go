package bloom

import (
	"sync"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"
)

// nameFilter holds normalized names. bits-and-blooms filters are not safe for
// concurrent use, so Insert and Lookup share it under a RWMutex.
type nameFilter struct {
	mu   sync.RWMutex
	bits *bitsbloom.BloomFilter
}

func newNameFilter(m uint, k uint) *nameFilter {
	return &nameFilter{bits: bitsbloom.New(m, k)}
}

func (f *nameFilter) Add(name []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bits.Add(name)
}

func (f *nameFilter) MightContain(name []byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bits.Test(name)
}

// ApproxCount estimates the distinct names added from the fraction of set bits.
func (f *nameFilter) ApproxCount() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return uint64(f.bits.ApproximatedSize())
}
