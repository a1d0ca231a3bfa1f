package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/services/resolver"
)

// UDPTransport implements PacketTransport over a single UDP socket.
// Receive is expected to be called from one goroutine at a time; Send and
// Close may be called concurrently with it.
type UDPTransport struct {
	addr   string
	conn   *net.UDPConn
	logger log.Logger

	// receive buffer, reused across calls
	buf []byte

	mu     sync.Mutex
	closed bool
}

// Listen binds a UDP socket on addr (host:port, port 0 picks a free one).
// bufferSize bounds the datagrams accepted; larger ones are truncated by the kernel.
func Listen(addr string, bufferSize int, logger log.Logger) (*UDPTransport, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP socket on %s: %w", addr, err)
	}

	t := &UDPTransport{
		addr:   conn.LocalAddr().String(),
		conn:   conn,
		logger: logger,
		buf:    make([]byte, bufferSize),
	}
	logger.Info(map[string]any{
		"transport":   "udp",
		"address":     t.addr,
		"buffer_size": bufferSize,
	}, "DNS transport bound")
	return t, nil
}

// Receive blocks until a datagram arrives. A context deadline, if any, is
// applied as the read deadline; cancellation without a deadline is only
// observed before the read starts. Close unblocks a pending read with an
// error matching net.ErrClosed.
func (t *UDPTransport) Receive(ctx context.Context) ([]byte, netip.AddrPort, error) {
	if err := ctx.Err(); err != nil {
		return nil, netip.AddrPort{}, err
	}
	// zero clears a deadline left by an earlier call
	deadline, _ := ctx.Deadline()
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, netip.AddrPort{}, fmt.Errorf("set read deadline: %w", err)
	}

	n, from, err := t.conn.ReadFromUDPAddrPort(t.buf)
	if err != nil {
		return nil, netip.AddrPort{}, err
	}

	packet := make([]byte, n)
	copy(packet, t.buf[:n])

	t.logger.Debug(map[string]any{
		"from": from.String(),
		"size": n,
		"raw":  fmt.Sprintf("%x", packet),
	}, "Received datagram")

	return packet, normalizeAddrPort(from), nil
}

// Send writes one datagram to the given address.
func (t *UDPTransport) Send(data []byte, to netip.AddrPort) error {
	if _, err := t.conn.WriteToUDPAddrPort(data, to); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	t.logger.Debug(map[string]any{
		"to":   to.String(),
		"size": len(data),
	}, "Sent datagram")
	return nil
}

// Close shuts the socket. Calling Close more than once is safe.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	err := t.conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		t.logger.Warn(map[string]any{
			"error": err.Error(),
		}, "Error closing UDP connection")
		return err
	}

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   t.addr,
	}, "DNS transport stopped")
	return nil
}

// Address returns the local address the transport is bound to.
func (t *UDPTransport) Address() string {
	return t.addr
}

// normalizeAddrPort unmaps IPv4-in-IPv6 senders so replies and pending
// entries use the plain IPv4 form.
func normalizeAddrPort(ap netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

var (
	_ PacketTransport    = (*UDPTransport)(nil)
	_ resolver.Transport = (*UDPTransport)(nil)
)
