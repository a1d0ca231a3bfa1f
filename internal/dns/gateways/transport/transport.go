// Package transport provides the datagram transport the relay receives
// queries and upstream responses on. The same socket is used to reply to
// requesters and to forward queries upstream, so upstream replies come back
// through the same receive loop.
package transport

import (
	"context"
	"net/netip"
)

// PacketTransport is a bound datagram socket.
type PacketTransport interface {
	// Receive blocks until a datagram arrives and returns a private copy of it
	// together with the sender's address.
	Receive(ctx context.Context) ([]byte, netip.AddrPort, error)

	// Send writes one datagram to the given address. It does not wait for any reply.
	Send(data []byte, to netip.AddrPort) error

	// Close releases the socket and unblocks a pending Receive.
	Close() error

	// Address returns the local address the transport is bound to.
	Address() string
}

// TransportType represents the different types of DNS transport protocols.
type TransportType string

const (
	// TransportUDP represents standard DNS over UDP (RFC 1035)
	TransportUDP TransportType = "udp"

	// TransportTCP is recognized so configuration errors are explicit; the relay does not fall back to TCP.
	TransportTCP TransportType = "tcp"
)

// DefaultBufferSize is the classic DNS UDP payload limit.
const DefaultBufferSize = 512
