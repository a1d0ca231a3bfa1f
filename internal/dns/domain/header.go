package domain

// Flags is the 16-bit flags word of a DNS header:
//
//	QR(1) OPCODE(4) AA(1) TC(1) RD(1) RA(1) Z(3) RCODE(4)
type Flags uint16

const (
	flagQR Flags = 1 << 15
	flagAA Flags = 1 << 10
	flagTC Flags = 1 << 9
	flagRD Flags = 1 << 8
	flagRA Flags = 1 << 7
)

// ResponseFlags are the flags the relay stamps on every answer it builds:
// QR=1, RD=1, RA=1, RCODE=NOERROR.
const ResponseFlags Flags = flagQR | flagRD | flagRA

// IsResponse reports the QR bit.
func (f Flags) IsResponse() bool { return f&flagQR != 0 }

// Opcode returns the 4-bit OPCODE field.
func (f Flags) Opcode() uint8 { return uint8(f>>11) & 0x0F }

// Authoritative reports the AA bit.
func (f Flags) Authoritative() bool { return f&flagAA != 0 }

// Truncated reports the TC bit.
func (f Flags) Truncated() bool { return f&flagTC != 0 }

// RecursionDesired reports the RD bit.
func (f Flags) RecursionDesired() bool { return f&flagRD != 0 }

// RecursionAvailable reports the RA bit.
func (f Flags) RecursionAvailable() bool { return f&flagRA != 0 }

// RCode returns the low 4 bits.
func (f Flags) RCode() RCode {
	//gosec:disable G115 -- masked to 4 bits
	return RCode(uint8(f & 0x000F))
}

// Header is the fixed 12-byte section at the start of every DNS message.
type Header struct {
	ID      uint16
	Flags   Flags
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// HeaderSize is the encoded size of a Header in bytes.
const HeaderSize = 12
