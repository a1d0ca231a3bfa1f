package resolver

import (
	"context"
	"net/netip"
	"testing"

	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/gateways/wire"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/dns/dnsmessage"
)

type discardTransport struct{}

func (discardTransport) Receive(context.Context) ([]byte, netip.AddrPort, error) {
	return nil, netip.AddrPort{}, nil
}

func (discardTransport) Send([]byte, netip.AddrPort) error { return nil }

func benchQuery(b *testing.B, id uint16, name string) []byte {
	b.Helper()
	bld := dnsmessage.NewBuilder(nil, dnsmessage.Header{ID: id, RecursionDesired: true})
	require.NoError(b, bld.StartQuestions())
	require.NoError(b, bld.Question(dnsmessage.Question{
		Name:  dnsmessage.MustNewName(name + "."),
		Type:  dnsmessage.TypeA,
		Class: dnsmessage.ClassINET,
	}))
	msg, err := bld.Finish()
	require.NoError(b, err)
	return msg
}

func newBenchResolver(b *testing.B, store CacheStore, forwardOnly bool) *Resolver {
	b.Helper()
	r, err := NewResolver(ResolverOptions{
		Codec:       wire.NewUDPCodec(wire.Options{}),
		Store:       store,
		Transport:   discardTransport{},
		Upstream:    testUpstream,
		ForwardOnly: forwardOnly,
		Logger:      log.NewNoopLogger(),
	})
	require.NoError(b, err)
	return r
}

func BenchmarkHandleDatagram_CacheHit(b *testing.B) {
	store := newMemStore()
	store.entries["EXAMPLE.COM"] = []netip.Addr{netip.MustParseAddr("93.184.216.34")}
	r := newBenchResolver(b, store, false)
	query := benchQuery(b, 1, "example.com")
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.HandleDatagram(ctx, query, testRequester)
	}
}

func BenchmarkHandleDatagram_Forward(b *testing.B) {
	r := newBenchResolver(b, newMemStore(), true)
	query := benchQuery(b, 1, "example.com")
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.HandleDatagram(ctx, query, testRequester)
	}
}
