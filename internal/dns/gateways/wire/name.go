package wire

import (
	"fmt"
	"strings"

	"github.com/haukened/rr-relay/internal/dns/common/utils"
	"github.com/haukened/rr-relay/internal/dns/domain"
)

const (
	maxLabelLen = 63
	maxNameLen  = 255 // encoded bytes, length octets and terminator included

	labelTypeMask = 0xC0
	pointerMask   = 0xC0
)

// DecodeName reads an uncompressed domain name starting at offset and returns
// it normalized (ASCII uppercase, dot separated) together with the offset of the byte
// following the terminator. The root name decodes to "".
//
// Compression pointers are rejected: the relay only decodes names that cannot
// legitimately be compressed.
func DecodeName(buf []byte, offset int) (string, int, error) {
	var labels []string
	encoded := 0
	for {
		if offset >= len(buf) {
			return "", 0, fmt.Errorf("%w: truncated at offset %d", domain.ErrMalformedName, offset)
		}
		length := int(buf[offset])
		if length == 0 {
			encoded++
			offset++
			break
		}
		if length&labelTypeMask != 0 {
			return "", 0, fmt.Errorf("%w: unsupported label type %#02x at offset %d", domain.ErrMalformedName, length, offset)
		}
		encoded += 1 + length
		// the terminator still has to fit
		if encoded+1 > maxNameLen {
			return "", 0, fmt.Errorf("%w: name exceeds %d bytes", domain.ErrMalformedName, maxNameLen)
		}
		offset++
		if offset+length > len(buf) {
			return "", 0, fmt.Errorf("%w: label of %d bytes truncated at offset %d", domain.ErrMalformedName, length, offset)
		}
		labels = append(labels, string(buf[offset:offset+length]))
		offset += length
	}
	return utils.UpperASCII(strings.Join(labels, ".")), offset, nil
}

// EncodeName encodes a dotted name into wire format without compression.
// A single trailing dot is accepted; "" and "." encode the root. Case is kept
// as given.
func EncodeName(name string) ([]byte, error) {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return []byte{0}, nil
	}
	labels := strings.Split(name, ".")
	size := 1
	for _, label := range labels {
		if len(label) == 0 {
			return nil, fmt.Errorf("%w: empty label in %q", domain.ErrInvalidName, name)
		}
		if len(label) > maxLabelLen {
			return nil, fmt.Errorf("%w: label %q is %d bytes (max %d)", domain.ErrInvalidName, label, len(label), maxLabelLen)
		}
		size += 1 + len(label)
	}
	if size > maxNameLen {
		return nil, fmt.Errorf("%w: %q encodes to %d bytes (max %d)", domain.ErrInvalidName, name, size, maxNameLen)
	}
	out := make([]byte, 0, size)
	for _, label := range labels {
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	return append(out, 0), nil
}

// skipName steps over an owner name without interpreting it. A terminal
// compression pointer is consumed as two bytes and never followed.
func skipName(buf []byte, offset int) (int, error) {
	encoded := 0
	for {
		if offset >= len(buf) {
			return 0, fmt.Errorf("%w: truncated at offset %d", domain.ErrMalformedName, offset)
		}
		length := int(buf[offset])
		switch {
		case length == 0:
			return offset + 1, nil
		case length&pointerMask == pointerMask:
			if offset+2 > len(buf) {
				return 0, fmt.Errorf("%w: truncated pointer at offset %d", domain.ErrMalformedName, offset)
			}
			return offset + 2, nil
		case length&labelTypeMask != 0:
			return 0, fmt.Errorf("%w: unsupported label type %#02x at offset %d", domain.ErrMalformedName, length, offset)
		}
		encoded += 1 + length
		if encoded+1 > maxNameLen {
			return 0, fmt.Errorf("%w: name exceeds %d bytes", domain.ErrMalformedName, maxNameLen)
		}
		offset += 1 + length
	}
}
