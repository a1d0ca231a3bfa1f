package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/haukened/rr-relay/internal/dns/domain"
)

// EncodeAnswer builds a NOERROR response echoing question, with one IN A
// record per IPv4 address in addrs.
//
// Records are written in input order until the next one would push the
// datagram past capacity; ANCOUNT reflects what was written. Addresses that
// are not IPv4 are skipped. ErrEncodingOverflow is returned only when the
// header and question alone do not fit.
func (c *udpCodec) EncodeAnswer(id uint16, question domain.Question, addrs []netip.Addr, capacity int) ([]byte, error) {
	qname, err := EncodeName(question.Name)
	if err != nil {
		return nil, fmt.Errorf("encode question name: %w", err)
	}

	size := domain.HeaderSize + len(qname) + 4
	if size > capacity {
		return nil, fmt.Errorf("%w: question needs %d bytes, capacity is %d", domain.ErrEncodingOverflow, size, capacity)
	}

	recordLen := len(qname) + rrFixedLen + 4
	fitted := make([]netip.Addr, 0, len(addrs))
	for _, addr := range addrs {
		addr = addr.Unmap()
		if !addr.Is4() {
			continue
		}
		if size+recordLen > capacity {
			break
		}
		size += recordLen
		fitted = append(fitted, addr)
	}
	if len(fitted) < len(addrs) {
		c.logger.Debug(map[string]any{
			"id":       id,
			"name":     question.Name,
			"offered":  len(addrs),
			"written":  len(fitted),
			"capacity": capacity,
		}, "Answer list truncated to fit datagram")
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))

	// Header
	_ = binary.Write(buf, binary.BigEndian, id)
	_ = binary.Write(buf, binary.BigEndian, uint16(domain.ResponseFlags))
	_ = binary.Write(buf, binary.BigEndian, uint16(1)) // QDCOUNT
	//gosec:disable G115 -- bounded by capacity, which is at most 65535
	_ = binary.Write(buf, binary.BigEndian, uint16(len(fitted))) // ANCOUNT
	_ = binary.Write(buf, binary.BigEndian, uint16(0))           // NSCOUNT
	_ = binary.Write(buf, binary.BigEndian, uint16(0))           // ARCOUNT

	// Question, echoed as asked
	buf.Write(qname)
	_ = binary.Write(buf, binary.BigEndian, uint16(question.Type))
	_ = binary.Write(buf, binary.BigEndian, uint16(question.Class))

	// Answers
	for _, addr := range fitted {
		rr := domain.NewAddressRecord(addr, c.answerTTL)
		buf.Write(qname)
		_ = binary.Write(buf, binary.BigEndian, uint16(rr.Type))
		_ = binary.Write(buf, binary.BigEndian, uint16(rr.Class))
		_ = binary.Write(buf, binary.BigEndian, rr.TTL)
		_ = binary.Write(buf, binary.BigEndian, uint16(len(rr.Data)))
		buf.Write(rr.Data)
	}

	return buf.Bytes(), nil
}
