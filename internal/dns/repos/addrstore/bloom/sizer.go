package bloom

import (
	"math"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/rr-relay/internal/dns/repos/addrstore"
)

const (
	defaultFPRate = 0.01
	maxHashes     = math.MaxUint8
)

// estimateSizer delegates to bitsbloom.EstimateParameters after clamping the
// inputs: n is at least one name and p falls back to 1% outside (0, 1).
type estimateSizer struct{}

// NewSizer returns the BloomSizer the factory uses.
func NewSizer() addrstore.BloomSizer { return estimateSizer{} }

func (estimateSizer) Size(n uint64, p float64) (uint64, uint8) {
	n = max(n, 1)
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		p = defaultFPRate
	}
	m, k := bitsbloom.EstimateParameters(uint(n), p)
	return uint64(max(m, 1)), uint8(min(max(k, 1), maxHashes))
}
