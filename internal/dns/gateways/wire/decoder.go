package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/haukened/rr-relay/internal/dns/domain"
)

// rrFixedLen is TYPE + CLASS + TTL + RDLENGTH.
const rrFixedLen = 10

// DecodeMessage parses a datagram into a Message.
//
// The header and the single question are mandatory; any failure there yields
// ErrMalformedMessage. For responses, answers are read until ANCOUNT is reached
// or the buffer can no longer hold a complete record, in which case the answers
// decoded so far are returned without error.
func (c *udpCodec) DecodeMessage(data []byte) (domain.Message, error) {
	hdr, err := decodeHeader(data)
	if err != nil {
		return domain.Message{}, err
	}
	if hdr.QDCount != 1 {
		return domain.Message{}, fmt.Errorf("%w: expected exactly one question, got %d", domain.ErrMalformedMessage, hdr.QDCount)
	}

	q, offset, err := decodeQuestion(data, domain.HeaderSize)
	if err != nil {
		return domain.Message{}, err
	}
	if c.strict && !q.IsSupported() {
		return domain.Message{}, fmt.Errorf("%w: %w", domain.ErrMalformedMessage, q.Validate())
	}

	msg := domain.Message{Header: hdr, Question: q}
	if !hdr.Flags.IsResponse() {
		return msg, nil
	}

	answers := make([]domain.ResourceRecord, 0, hdr.ANCount)
	for i := 0; i < int(hdr.ANCount); i++ {
		rr, next, err := decodeAnswer(data, offset)
		if err != nil {
			c.logger.Debug(map[string]any{
				"id":       hdr.ID,
				"index":    i,
				"ancount":  hdr.ANCount,
				"decoded":  len(answers),
				"error":    err.Error(),
				"question": q.Name,
			}, "Answer section truncated, keeping leading records")
			break
		}
		offset = next
		answers = append(answers, rr)
	}
	msg.Answers = answers
	return msg, nil
}

func decodeHeader(data []byte) (domain.Header, error) {
	if len(data) < domain.HeaderSize {
		return domain.Header{}, fmt.Errorf("%w: %d bytes is shorter than a header", domain.ErrMalformedMessage, len(data))
	}
	return domain.Header{
		ID:      binary.BigEndian.Uint16(data[0:2]),
		Flags:   domain.Flags(binary.BigEndian.Uint16(data[2:4])),
		QDCount: binary.BigEndian.Uint16(data[4:6]),
		ANCount: binary.BigEndian.Uint16(data[6:8]),
		NSCount: binary.BigEndian.Uint16(data[8:10]),
		ARCount: binary.BigEndian.Uint16(data[10:12]),
	}, nil
}

func decodeQuestion(data []byte, offset int) (domain.Question, int, error) {
	name, offset, err := DecodeName(data, offset)
	if err != nil {
		return domain.Question{}, 0, fmt.Errorf("%w: question name: %w", domain.ErrMalformedMessage, err)
	}
	if offset+4 > len(data) {
		return domain.Question{}, 0, fmt.Errorf("%w: question truncated after name", domain.ErrMalformedMessage)
	}
	q := domain.Question{
		Name:  name,
		Type:  domain.RRType(binary.BigEndian.Uint16(data[offset : offset+2])),
		Class: domain.RRClass(binary.BigEndian.Uint16(data[offset+2 : offset+4])),
	}
	return q, offset + 4, nil
}

// decodeAnswer reads one resource record. The owner name is stepped over; the
// caller binds answers to the question.
func decodeAnswer(data []byte, offset int) (domain.ResourceRecord, int, error) {
	offset, err := skipName(data, offset)
	if err != nil {
		return domain.ResourceRecord{}, 0, fmt.Errorf("owner name: %w", err)
	}
	if offset+rrFixedLen > len(data) {
		return domain.ResourceRecord{}, 0, fmt.Errorf("record truncated after owner name at offset %d", offset)
	}
	typ := binary.BigEndian.Uint16(data[offset : offset+2])
	class := binary.BigEndian.Uint16(data[offset+2 : offset+4])
	ttl := binary.BigEndian.Uint32(data[offset+4 : offset+8])
	rdLen := int(binary.BigEndian.Uint16(data[offset+8 : offset+10]))
	offset += rrFixedLen

	if offset+rdLen > len(data) {
		return domain.ResourceRecord{}, 0, fmt.Errorf("rdata of %d bytes truncated at offset %d", rdLen, offset)
	}
	rdata := make([]byte, rdLen)
	copy(rdata, data[offset:offset+rdLen])

	return domain.ResourceRecord{
		Type:  domain.RRType(typ),
		Class: domain.RRClass(class),
		TTL:   ttl,
		Data:  rdata,
	}, offset + rdLen, nil
}
