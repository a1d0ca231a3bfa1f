package wire

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/dns/dnsmessage"

	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/domain"
)

func newTestCodec() *udpCodec {
	return NewUDPCodec(Options{Logger: log.NewNoopLogger()})
}

// rawQuery builds a standard query (RD=1) by hand.
func rawQuery(t testing.TB, id uint16, name string, qtype domain.RRType, qclass domain.RRClass) []byte {
	t.Helper()
	qname, err := EncodeName(name)
	require.NoError(t, err)
	buf := make([]byte, 12, 12+len(qname)+4)
	binary.BigEndian.PutUint16(buf[0:2], id)
	binary.BigEndian.PutUint16(buf[2:4], 0x0100)
	binary.BigEndian.PutUint16(buf[4:6], 1)
	buf = append(buf, qname...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(qtype))
	buf = binary.BigEndian.AppendUint16(buf, uint16(qclass))
	return buf
}

// upstreamResponse builds a compressed response the way a real resolver would.
func upstreamResponse(t testing.TB, id uint16, name string, addrs ...string) []byte {
	t.Helper()
	qname := dnsmessage.MustNewName(name + ".")
	b := dnsmessage.NewBuilder(nil, dnsmessage.Header{ID: id, Response: true, RecursionDesired: true, RecursionAvailable: true})
	b.EnableCompression()
	require.NoError(t, b.StartQuestions())
	require.NoError(t, b.Question(dnsmessage.Question{Name: qname, Type: dnsmessage.TypeA, Class: dnsmessage.ClassINET}))
	require.NoError(t, b.StartAnswers())
	for _, a := range addrs {
		ip := netip.MustParseAddr(a).As4()
		require.NoError(t, b.AResource(
			dnsmessage.ResourceHeader{Name: qname, Type: dnsmessage.TypeA, Class: dnsmessage.ClassINET, TTL: 60},
			dnsmessage.AResource{A: ip},
		))
	}
	msg, err := b.Finish()
	require.NoError(t, err)
	return msg
}

// parseWithDNSMessage decodes buf with an independent parser.
func parseWithDNSMessage(t testing.TB, buf []byte) dnsmessage.Message {
	t.Helper()
	var m dnsmessage.Message
	require.NoError(t, m.Unpack(buf))
	return m
}
