package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/dns/dnsmessage"

	"github.com/haukened/rr-relay/internal/dns/common/clock"
	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/domain"
	"github.com/haukened/rr-relay/internal/dns/gateways/wire"
)

var (
	testUpstream  = netip.MustParseAddrPort("192.0.2.53:53")
	testRequester = netip.MustParseAddrPort("198.51.100.7:40000")
)

// MockTransport records sends and replays queued datagrams.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Receive(ctx context.Context) ([]byte, netip.AddrPort, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).([]byte)
	return data, args.Get(1).(netip.AddrPort), args.Error(2)
}

func (m *MockTransport) Send(data []byte, to netip.AddrPort) error {
	args := m.Called(data, to)
	return args.Error(0)
}

// sentTo returns the payloads sent to addr, in order.
func (m *MockTransport) sentTo(addr netip.AddrPort) [][]byte {
	var out [][]byte
	for _, call := range m.Calls {
		if call.Method == "Send" && call.Arguments.Get(1).(netip.AddrPort) == addr {
			out = append(out, call.Arguments.Get(0).([]byte))
		}
	}
	return out
}

// memStore is a minimal in-memory CacheStore.
type memStore struct {
	mu        sync.Mutex
	entries   map[string][]netip.Addr
	lookupErr error
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{entries: map[string][]netip.Addr{}}
}

func (s *memStore) Lookup(name string) ([]netip.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return append([]netip.Addr(nil), s.entries[name]...), nil
}

func (s *memStore) Insert(name string, addr netip.Addr) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return false, s.insertErr
	}
	for _, existing := range s.entries[name] {
		if existing == addr {
			return false, nil
		}
	}
	s.entries[name] = append(s.entries[name], addr)
	return true, nil
}

func newTestResolver(t *testing.T, store CacheStore, transport Transport, forwardOnly bool) *Resolver {
	t.Helper()
	r, err := NewResolver(ResolverOptions{
		Codec:       wire.NewUDPCodec(wire.Options{Logger: log.NewNoopLogger()}),
		Store:       store,
		Transport:   transport,
		Upstream:    testUpstream,
		ForwardOnly: forwardOnly,
		Clock:       &clock.MockClock{CurrentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		Logger:      log.NewNoopLogger(),
	})
	require.NoError(t, err)
	return r
}

func buildQuery(t *testing.T, id uint16, name string, qtype dnsmessage.Type) []byte {
	t.Helper()
	b := dnsmessage.NewBuilder(nil, dnsmessage.Header{ID: id, RecursionDesired: true})
	require.NoError(t, b.StartQuestions())
	require.NoError(t, b.Question(dnsmessage.Question{
		Name:  dnsmessage.MustNewName(name + "."),
		Type:  qtype,
		Class: dnsmessage.ClassINET,
	}))
	msg, err := b.Finish()
	require.NoError(t, err)
	return msg
}

func buildResponse(t *testing.T, id uint16, name string, addrs ...string) []byte {
	t.Helper()
	qname := dnsmessage.MustNewName(name + ".")
	b := dnsmessage.NewBuilder(nil, dnsmessage.Header{ID: id, Response: true, RecursionDesired: true, RecursionAvailable: true})
	b.EnableCompression()
	require.NoError(t, b.StartQuestions())
	require.NoError(t, b.Question(dnsmessage.Question{Name: qname, Type: dnsmessage.TypeA, Class: dnsmessage.ClassINET}))
	require.NoError(t, b.StartAnswers())
	for _, a := range addrs {
		require.NoError(t, b.AResource(
			dnsmessage.ResourceHeader{Name: qname, Type: dnsmessage.TypeA, Class: dnsmessage.ClassINET, TTL: 30},
			dnsmessage.AResource{A: netip.MustParseAddr(a).As4()},
		))
	}
	msg, err := b.Finish()
	require.NoError(t, err)
	return msg
}

func answerAddrs(t *testing.T, payload []byte) (dnsmessage.Header, []netip.Addr) {
	t.Helper()
	var m dnsmessage.Message
	require.NoError(t, m.Unpack(payload))
	var out []netip.Addr
	for _, rr := range m.Answers {
		a, ok := rr.Body.(*dnsmessage.AResource)
		require.True(t, ok)
		out = append(out, netip.AddrFrom4(a.A))
	}
	return m.Header, out
}

func TestNewResolver_Validation(t *testing.T) {
	codec := wire.NewUDPCodec(wire.Options{})
	store := newMemStore()
	transport := &MockTransport{}

	tests := []struct {
		name string
		opts ResolverOptions
	}{
		{"missing codec", ResolverOptions{Store: store, Transport: transport, Upstream: testUpstream}},
		{"missing store", ResolverOptions{Codec: codec, Transport: transport, Upstream: testUpstream}},
		{"missing transport", ResolverOptions{Codec: codec, Store: store, Upstream: testUpstream}},
		{"missing upstream", ResolverOptions{Codec: codec, Store: store, Transport: transport}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(tt.opts)
			assert.Error(t, err)
			assert.Nil(t, r)
		})
	}

	r, err := NewResolver(ResolverOptions{Codec: codec, Store: store, Transport: transport, Upstream: testUpstream})
	require.NoError(t, err)
	assert.Equal(t, DefaultBufferSize, r.bufferSize)
	assert.NotNil(t, r.clock)
	assert.NotNil(t, r.logger)
}

func TestHandleDatagram_CacheHit(t *testing.T) {
	store := newMemStore()
	store.entries["EXAMPLE.COM"] = []netip.Addr{netip.MustParseAddr("93.184.216.34")}
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, testRequester).Return(nil)

	r := newTestResolver(t, store, transport, false)
	state := r.HandleDatagram(context.Background(), buildQuery(t, 0xBEEF, "example.com", dnsmessage.TypeA), testRequester)

	assert.Equal(t, domain.StateAnswered, state)
	sent := transport.sentTo(testRequester)
	require.Len(t, sent, 1)
	hdr, addrs := answerAddrs(t, sent[0])
	assert.Equal(t, uint16(0xBEEF), hdr.ID)
	assert.True(t, hdr.Response)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("93.184.216.34")}, addrs)
	assert.Empty(t, transport.sentTo(testUpstream))
	assert.Equal(t, uint64(1), r.Stats().CacheHits)
}

func TestHandleDatagram_ForwardThenAnswer(t *testing.T) {
	store := newMemStore()
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, mock.Anything).Return(nil)
	r := newTestResolver(t, store, transport, false)

	query := buildQuery(t, 0x1234, "unknown.test", dnsmessage.TypeA)
	state := r.HandleDatagram(context.Background(), query, testRequester)

	assert.Equal(t, domain.StateForwarded, state)
	forwarded := transport.sentTo(testUpstream)
	require.Len(t, forwarded, 1)
	assert.Equal(t, query, forwarded[0], "query must be forwarded verbatim")
	assert.Empty(t, transport.sentTo(testRequester))
	assert.Equal(t, 1, r.Stats().Pending)

	resp := buildResponse(t, 0x1234, "unknown.test", "10.0.0.5")
	state = r.HandleDatagram(context.Background(), resp, testUpstream)

	assert.Equal(t, domain.StateAnswered, state)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("10.0.0.5")}, store.entries["UNKNOWN.TEST"])
	answers := transport.sentTo(testRequester)
	require.Len(t, answers, 1)
	hdr, addrs := answerAddrs(t, answers[0])
	assert.Equal(t, uint16(0x1234), hdr.ID)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("10.0.0.5")}, addrs)
	assert.Equal(t, 0, r.Stats().Pending)
}

func TestHandleDatagram_UpstreamErrorAndTruncationCounted(t *testing.T) {
	store := newMemStore()
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, mock.Anything).Return(nil)
	r := newTestResolver(t, store, transport, false)

	query := buildQuery(t, 0x0707, "partial.test", dnsmessage.TypeA)
	require.Equal(t, domain.StateForwarded, r.HandleDatagram(context.Background(), query, testRequester))

	qname := dnsmessage.MustNewName("partial.test.")
	b := dnsmessage.NewBuilder(nil, dnsmessage.Header{
		ID:        0x0707,
		Response:  true,
		Truncated: true,
		RCode:     dnsmessage.RCodeServerFailure,
	})
	require.NoError(t, b.StartQuestions())
	require.NoError(t, b.Question(dnsmessage.Question{Name: qname, Type: dnsmessage.TypeA, Class: dnsmessage.ClassINET}))
	require.NoError(t, b.StartAnswers())
	require.NoError(t, b.AResource(
		dnsmessage.ResourceHeader{Name: qname, Type: dnsmessage.TypeA, Class: dnsmessage.ClassINET, TTL: 30},
		dnsmessage.AResource{A: [4]byte{10, 7, 7, 7}},
	))
	resp, err := b.Finish()
	require.NoError(t, err)

	state := r.HandleDatagram(context.Background(), resp, testUpstream)

	assert.Equal(t, domain.StateAnswered, state)
	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.UpstreamErrors)
	assert.Equal(t, uint64(1), stats.Truncated)
	answers := transport.sentTo(testRequester)
	require.Len(t, answers, 1)
	_, addrs := answerAddrs(t, answers[0])
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("10.7.7.7")}, addrs)
}

func TestHandleDatagram_SpuriousResponseStillCaches(t *testing.T) {
	store := newMemStore()
	transport := &MockTransport{}
	r := newTestResolver(t, store, transport, false)

	state := r.HandleDatagram(context.Background(), buildResponse(t, 0x4242, "stray.test", "10.1.1.1"), testUpstream)

	assert.Equal(t, domain.StateDropped, state)
	transport.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("10.1.1.1")}, store.entries["STRAY.TEST"])
	assert.Equal(t, uint64(1), r.Stats().Spurious)
}

func TestHandleDatagram_ResponseFromUnexpectedSource(t *testing.T) {
	store := newMemStore()
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, mock.Anything).Return(nil)
	r := newTestResolver(t, store, transport, false)

	require.Equal(t, domain.StateForwarded,
		r.HandleDatagram(context.Background(), buildQuery(t, 7, "spoof.test", dnsmessage.TypeA), testRequester))

	spoofer := netip.MustParseAddrPort("203.0.113.9:53")
	state := r.HandleDatagram(context.Background(), buildResponse(t, 7, "spoof.test", "6.6.6.6"), spoofer)

	assert.Equal(t, domain.StateDropped, state)
	assert.Empty(t, store.entries["SPOOF.TEST"])
	assert.Empty(t, transport.sentTo(testRequester))
	assert.Equal(t, 1, r.Stats().Pending)
}

func TestHandleDatagram_ResponseMergesCachedAddresses(t *testing.T) {
	store := newMemStore()
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, mock.Anything).Return(nil)
	r := newTestResolver(t, store, transport, true)

	store.entries["MULTI.TEST"] = []netip.Addr{netip.MustParseAddr("10.0.0.1")}
	r.HandleDatagram(context.Background(), buildQuery(t, 9, "multi.test", dnsmessage.TypeA), testRequester)
	r.HandleDatagram(context.Background(), buildResponse(t, 9, "multi.test", "10.0.0.2", "10.0.0.1"), testUpstream)

	answers := transport.sentTo(testRequester)
	require.Len(t, answers, 1)
	_, addrs := answerAddrs(t, answers[0])
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("10.0.0.1"), netip.MustParseAddr("10.0.0.2")}, addrs)
}

func TestHandleDatagram_ForwardOnlySkipsCache(t *testing.T) {
	store := newMemStore()
	store.entries["EXAMPLE.COM"] = []netip.Addr{netip.MustParseAddr("93.184.216.34")}
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, testUpstream).Return(nil)
	r := newTestResolver(t, store, transport, true)

	state := r.HandleDatagram(context.Background(), buildQuery(t, 1, "example.com", dnsmessage.TypeA), testRequester)

	assert.Equal(t, domain.StateForwarded, state)
	assert.Empty(t, transport.sentTo(testRequester))
	assert.Zero(t, r.Stats().CacheHits)
}

func TestHandleDatagram_LookupErrorForwards(t *testing.T) {
	store := newMemStore()
	store.lookupErr = errors.New("disk on fire")
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, testUpstream).Return(nil)
	r := newTestResolver(t, store, transport, false)

	state := r.HandleDatagram(context.Background(), buildQuery(t, 2, "example.com", dnsmessage.TypeA), testRequester)
	assert.Equal(t, domain.StateForwarded, state)
}

func TestHandleDatagram_UnsupportedQuestion(t *testing.T) {
	tests := []struct {
		name  string
		qtype dnsmessage.Type
	}{
		{"AAAA", dnsmessage.TypeAAAA},
		{"MX", dnsmessage.TypeMX},
		{"TXT", dnsmessage.TypeTXT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &MockTransport{}
			r := newTestResolver(t, newMemStore(), transport, false)
			state := r.HandleDatagram(context.Background(), buildQuery(t, 3, "example.com", tt.qtype), testRequester)
			assert.Equal(t, domain.StateDropped, state)
			transport.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleDatagram_Malformed(t *testing.T) {
	inputs := map[string][]byte{
		"empty":            {},
		"short header":     {0x12, 0x34, 0x01},
		"truncated name":   {0, 1, 1, 0, 0, 1, 0, 0, 0, 0, 0, 0, 7, 'e', 'x'},
		"pointer in query": {0, 1, 1, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0xC0, 0x0C, 0, 1, 0, 1},
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			transport := &MockTransport{}
			r := newTestResolver(t, newMemStore(), transport, false)
			assert.Equal(t, domain.StateDropped, r.HandleDatagram(context.Background(), data, testRequester))
			transport.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
			assert.Equal(t, uint64(1), r.Stats().Malformed)
		})
	}
}

func TestHandleDatagram_IDReuseLastWriterWins(t *testing.T) {
	store := newMemStore()
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, mock.Anything).Return(nil)
	r := newTestResolver(t, store, transport, false)

	second := netip.MustParseAddrPort("198.51.100.8:41000")
	r.HandleDatagram(context.Background(), buildQuery(t, 77, "reuse.test", dnsmessage.TypeA), testRequester)
	r.HandleDatagram(context.Background(), buildQuery(t, 77, "reuse.test", dnsmessage.TypeA), second)
	assert.Equal(t, 1, r.Stats().Pending)

	state := r.HandleDatagram(context.Background(), buildResponse(t, 77, "reuse.test", "10.7.7.7"), testUpstream)
	assert.Equal(t, domain.StateAnswered, state)
	assert.Len(t, transport.sentTo(second), 1)
	assert.Empty(t, transport.sentTo(testRequester))
}

func TestHandleDatagram_ForwardSendFailure(t *testing.T) {
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, testUpstream).Return(errors.New("network unreachable"))
	r := newTestResolver(t, newMemStore(), transport, false)

	state := r.HandleDatagram(context.Background(), buildQuery(t, 5, "down.test", dnsmessage.TypeA), testRequester)

	assert.Equal(t, domain.StateDropped, state)
	assert.Equal(t, 0, r.Stats().Pending)
}

func TestHandleDatagram_AnswerSendFailure(t *testing.T) {
	store := newMemStore()
	store.entries["EXAMPLE.COM"] = []netip.Addr{netip.MustParseAddr("93.184.216.34")}
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, testRequester).Return(errors.New("gone"))
	r := newTestResolver(t, store, transport, false)

	state := r.HandleDatagram(context.Background(), buildQuery(t, 6, "example.com", dnsmessage.TypeA), testRequester)
	assert.Equal(t, domain.StateDropped, state)
	assert.Zero(t, r.Stats().Answered)
}

func TestServe_StopsOnClosedTransport(t *testing.T) {
	store := newMemStore()
	store.entries["EXAMPLE.COM"] = []netip.Addr{netip.MustParseAddr("93.184.216.34")}
	transport := &MockTransport{}
	transport.On("Receive", mock.Anything).Return(buildQuery(t, 10, "example.com", dnsmessage.TypeA), testRequester, nil).Once()
	transport.On("Receive", mock.Anything).Return(nil, netip.AddrPort{}, errors.New("transient")).Once()
	transport.On("Receive", mock.Anything).Return(nil, netip.AddrPort{}, net.ErrClosed).Once()
	transport.On("Send", mock.Anything, testRequester).Return(nil)
	r := newTestResolver(t, store, transport, false)

	err := r.Serve(context.Background())

	assert.NoError(t, err)
	transport.AssertNumberOfCalls(t, "Receive", 3)
	assert.Equal(t, uint64(1), r.Stats().Answered)
}

func TestServe_StopsOnCancelledContext(t *testing.T) {
	transport := &MockTransport{}
	r := newTestResolver(t, newMemStore(), transport, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, r.Serve(ctx))
	transport.AssertNotCalled(t, "Receive", mock.Anything)
}

func TestStats_Fields(t *testing.T) {
	s := Stats{Queries: 3, Answered: 2, Pending: 1}
	f := s.Fields()
	assert.Equal(t, uint64(3), f["queries"])
	assert.Equal(t, uint64(2), f["answered"])
	assert.Equal(t, 1, f["pending"])
}
