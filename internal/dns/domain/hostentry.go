package domain

import "net/netip"

// HostEntry binds a normalized name to one IPv4 address. It is the unit the
// seed loader produces and the address store persists.
type HostEntry struct {
	Name string
	Addr netip.Addr
}
