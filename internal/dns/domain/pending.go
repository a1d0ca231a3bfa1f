package domain

import (
	"net/netip"
	"time"
)

// PendingRequest remembers who asked a forwarded query so the upstream reply
// can be relayed back. Keyed externally by transaction id.
type PendingRequest struct {
	ID        uint16
	Requester netip.AddrPort
	Question  Question
	CreatedAt time.Time
}

// Age returns how long the request has been outstanding at now.
func (p PendingRequest) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}
