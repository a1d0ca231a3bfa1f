package domain

// State is a step in the lifecycle of a single datagram inside the resolver.
type State uint8

const (
	StateReceivedQuery State = iota
	StateCacheHit
	StateForwarded
	StateReceivedUpstreamResponse
	StateAnswered
	StateDropped
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateReceivedQuery:
		return "received_query"
	case StateCacheHit:
		return "cache_hit"
	case StateForwarded:
		return "forwarded"
	case StateReceivedUpstreamResponse:
		return "received_upstream_response"
	case StateAnswered:
		return "answered"
	case StateDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// IsFinal reports whether no further processing happens for the datagram.
func (s State) IsFinal() bool {
	return s == StateForwarded || s == StateAnswered || s == StateDropped
}
