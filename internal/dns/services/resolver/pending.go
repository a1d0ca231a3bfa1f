package resolver

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/rr-relay/internal/dns/domain"
)

// DefaultPendingSize bounds the number of outstanding forwarded queries.
const DefaultPendingSize = 4096

// PendingTable correlates forwarded queries with upstream responses by
// transaction id. Registering an id that is already present replaces the entry.
// When the table is full the least recently registered entry is abandoned.
type PendingTable struct {
	mu    sync.Mutex
	cache *lru.Cache[uint16, domain.PendingRequest]
}

// NewPendingTable returns a table holding at most size entries.
func NewPendingTable(size int) (*PendingTable, error) {
	cache, err := lru.New[uint16, domain.PendingRequest](size)
	if err != nil {
		return nil, err
	}
	return &PendingTable{cache: cache}, nil
}

// Register stores req under req.ID. replaced is true if an entry for the same
// id was overwritten; abandoned is set when a different entry had to be evicted
// to make room.
func (t *PendingTable) Register(req domain.PendingRequest) (replaced bool, abandoned *domain.PendingRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, replaced = t.cache.Peek(req.ID)
	_, oldest, hasOldest := t.cache.GetOldest()
	if evicted := t.cache.Add(req.ID, req); evicted && hasOldest {
		return replaced, &oldest
	}
	return replaced, nil
}

// Claim removes and returns the entry for id. Two claims for the same id can
// never both succeed.
func (t *PendingTable) Claim(id uint16) (domain.PendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.cache.Peek(id)
	if !ok {
		return domain.PendingRequest{}, false
	}
	t.cache.Remove(id)
	return req, true
}

// Len returns the number of outstanding requests.
func (t *PendingTable) Len() int {
	return t.cache.Len()
}
