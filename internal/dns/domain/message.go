package domain

import "net/netip"

// Message is a decoded DNS datagram: header, exactly one question, and the
// answer records in wire order (empty for queries). Messages are built per
// datagram and discarded after processing.
type Message struct {
	Header   Header
	Question Question
	Answers  []ResourceRecord
}

// ID returns the transaction id.
func (m Message) ID() uint16 { return m.Header.ID }

// IsResponse reports whether the QR bit is set.
func (m Message) IsResponse() bool { return m.Header.Flags.IsResponse() }

// Addresses returns the IPv4 addresses of all A/IN answers, in wire order.
func (m Message) Addresses() []netip.Addr {
	out := make([]netip.Addr, 0, len(m.Answers))
	for _, rr := range m.Answers {
		if addr, ok := rr.Address(); ok {
			out = append(out, addr)
		}
	}
	return out
}
