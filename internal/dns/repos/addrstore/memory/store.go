// Package memory provides a process-local addrstore.Store.
package memory

import (
	"fmt"
	"net/netip"
	"sort"
	"sync"

	"github.com/haukened/rr-relay/internal/dns/common/clock"
	"github.com/haukened/rr-relay/internal/dns/repos/addrstore"
)

// memoryStore keeps names in a map guarded by an RWMutex.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string][]netip.Addr
	count   uint64
	updated int64
	clock   clock.Clock
}

// New returns an empty in-memory Store.
func New(clk clock.Clock) addrstore.Store {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	return &memoryStore{entries: make(map[string][]netip.Addr), clock: clk}
}

func (s *memoryStore) Get(name string) ([]netip.Addr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrs := s.entries[name]
	if len(addrs) == 0 {
		return nil, nil
	}
	return append([]netip.Addr(nil), addrs...), nil
}

func (s *memoryStore) Add(name string, addr netip.Addr) (bool, error) {
	if !addr.Is4() {
		return false, fmt.Errorf("%w: %s", addrstore.ErrInvalidEntry, addr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.entries[name] {
		if a == addr {
			return false, nil
		}
	}
	s.entries[name] = append(s.entries[name], addr)
	s.count++
	s.updated = s.clock.Now().Unix()
	return true, nil
}

// ForEach visits names in lexical order.
func (s *memoryStore) ForEach(visit func(name string, addrs []netip.Addr) error) error {
	s.mu.RLock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		addrs, _ := s.Get(name)
		if err := visit(name, addrs); err != nil {
			return err
		}
	}
	return nil
}

func (s *memoryStore) Stats() addrstore.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return addrstore.StoreStats{
		Names:       uint64(len(s.entries)),
		Addresses:   s.count,
		UpdatedUnix: s.updated,
	}
}

func (s *memoryStore) Close() error { return nil }

var _ addrstore.Store = (*memoryStore)(nil)
