package domain

import "net/netip"

// ResourceRecord is one decoded answer entry. The owner name is not retained;
// the relay binds every answer to the question it was asked.
type ResourceRecord struct {
	Type  RRType
	Class RRClass
	TTL   uint32
	Data  []byte
}

// IsAddress reports whether the record is an IN A record with a 4-octet payload.
func (rr ResourceRecord) IsAddress() bool {
	return rr.Type == RRTypeA && rr.Class == RRClassIN && len(rr.Data) == 4
}

// Address returns the IPv4 address carried by an A record.
// The second result is false for anything that is not a well-formed A record.
func (rr ResourceRecord) Address() (netip.Addr, bool) {
	if !rr.IsAddress() {
		return netip.Addr{}, false
	}
	return netip.AddrFrom4([4]byte(rr.Data)), true
}

// NewAddressRecord builds an IN A record for addr.
func NewAddressRecord(addr netip.Addr, ttl uint32) ResourceRecord {
	a4 := addr.As4()
	return ResourceRecord{
		Type:  RRTypeA,
		Class: RRClassIN,
		TTL:   ttl,
		Data:  a4[:],
	}
}
