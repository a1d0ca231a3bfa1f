package resolver

import "sync/atomic"

// Stats is a snapshot of resolver counters since start.
type Stats struct {
	Queries   uint64 // query datagrams decoded
	Responses uint64 // response datagrams decoded
	CacheHits uint64
	Forwarded uint64
	Answered  uint64
	Dropped   uint64 // includes malformed and spurious
	Malformed uint64
	Spurious  uint64 // responses with no pending request
	Pending   int    // currently outstanding forwarded queries

	UpstreamErrors uint64 // upstream responses with a non-NOERROR RCODE
	Truncated      uint64 // upstream responses with TC set
}

type counters struct {
	queries   atomic.Uint64
	responses atomic.Uint64
	cacheHits atomic.Uint64
	forwarded atomic.Uint64
	answered  atomic.Uint64
	dropped   atomic.Uint64
	malformed atomic.Uint64
	spurious  atomic.Uint64

	upstreamErrors atomic.Uint64
	truncated      atomic.Uint64
}

// Stats returns the current counters.
func (r *Resolver) Stats() Stats {
	return Stats{
		Queries:   r.counters.queries.Load(),
		Responses: r.counters.responses.Load(),
		CacheHits: r.counters.cacheHits.Load(),
		Forwarded: r.counters.forwarded.Load(),
		Answered:  r.counters.answered.Load(),
		Dropped:   r.counters.dropped.Load(),
		Malformed: r.counters.malformed.Load(),
		Spurious:  r.counters.spurious.Load(),
		Pending:   r.pending.Len(),

		UpstreamErrors: r.counters.upstreamErrors.Load(),
		Truncated:      r.counters.truncated.Load(),
	}
}

// Fields renders the snapshot for structured logging.
func (s Stats) Fields() map[string]any {
	return map[string]any{
		"queries":    s.Queries,
		"responses":  s.Responses,
		"cache_hits": s.CacheHits,
		"forwarded":  s.Forwarded,
		"answered":   s.Answered,
		"dropped":    s.Dropped,
		"malformed":  s.Malformed,
		"spurious":   s.Spurious,
		"pending":    s.Pending,

		"upstream_errors": s.UpstreamErrors,
		"truncated":       s.Truncated,
	}
}
