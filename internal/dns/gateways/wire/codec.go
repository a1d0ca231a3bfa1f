// Package wire provides encoding and decoding of DNS messages for UDP transport.
// It covers the subset of the RFC 1035 wire format the relay speaks: one
// question, IN A answers, and uncompressed names on output.
package wire

import (
	"net/netip"

	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/domain"
)

// DNSCodec decodes inbound datagrams and builds answer datagrams.
type DNSCodec interface {
	// DecodeMessage parses a query or an upstream response.
	DecodeMessage(data []byte) (domain.Message, error)

	// EncodeAnswer builds a response to question carrying as many of addrs as
	// fit in capacity bytes.
	EncodeAnswer(id uint16, question domain.Question, addrs []netip.Addr, capacity int) ([]byte, error)
}

// DefaultAnswerTTL is the TTL, in seconds, stamped on every answer record.
const DefaultAnswerTTL uint32 = 300

// Options configures a udpCodec.
type Options struct {
	Logger log.Logger

	// AnswerTTL overrides DefaultAnswerTTL when non-zero.
	AnswerTTL uint32

	// StrictQuestions rejects non-A/IN questions at decode time with
	// ErrMalformedMessage instead of leaving the decision to the caller.
	StrictQuestions bool
}

// udpCodec implements DNSCodec for standard DNS over UDP messages.
// It carries configuration only; every call is independent.
type udpCodec struct {
	logger    log.Logger
	answerTTL uint32
	strict    bool
}

// NewUDPCodec creates and returns a new instance of udpCodec.
func NewUDPCodec(opts Options) *udpCodec {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.AnswerTTL == 0 {
		opts.AnswerTTL = DefaultAnswerTTL
	}
	return &udpCodec{
		logger:    opts.Logger,
		answerTTL: opts.AnswerTTL,
		strict:    opts.StrictQuestions,
	}
}

var _ DNSCodec = (*udpCodec)(nil)
