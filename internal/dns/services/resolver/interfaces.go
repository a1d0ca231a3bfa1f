package resolver

import (
	"context"
	"net/netip"

	"github.com/haukened/rr-relay/internal/dns/domain"
)

// CacheStore maps normalized names to the IPv4 addresses learned for them.
// Insert is idempotent by value and reports whether the address was new.
type CacheStore interface {
	Lookup(name string) ([]netip.Addr, error)
	Insert(name string, addr netip.Addr) (bool, error)
}

// Transport sends and receives raw datagrams. The same transport carries
// traffic to requesters and to the upstream resolver.
type Transport interface {
	// Receive blocks until a datagram arrives.
	Receive(ctx context.Context) ([]byte, netip.AddrPort, error)

	// Send is fire-and-forget.
	Send(data []byte, to netip.AddrPort) error
}

// Codec decodes inbound datagrams and encodes answers.
type Codec interface {
	DecodeMessage(data []byte) (domain.Message, error)
	EncodeAnswer(id uint16, question domain.Question, addrs []netip.Addr, capacity int) ([]byte, error)
}
