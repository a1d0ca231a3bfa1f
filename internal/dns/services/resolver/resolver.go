package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/haukened/rr-relay/internal/dns/common/clock"
	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/common/utils"
	"github.com/haukened/rr-relay/internal/dns/domain"
)

// DefaultBufferSize is the answer capacity used when none is configured.
const DefaultBufferSize = 512

// Resolver routes datagrams between requesters and a single upstream resolver.
// Queries are answered from the CacheStore when possible and forwarded verbatim
// otherwise. Upstream responses populate the CacheStore and are relayed to the
// requester recorded in the pending table.
type Resolver struct {
	codec       Codec
	store       CacheStore
	transport   Transport
	pending     *PendingTable
	upstream    netip.AddrPort
	forwardOnly bool
	bufferSize  int
	clock       clock.Clock
	logger      log.Logger
	counters    counters
}

// ResolverOptions holds the collaborators and settings for a Resolver.
type ResolverOptions struct {
	Codec       Codec
	Store       CacheStore
	Transport   Transport
	Upstream    netip.AddrPort
	ForwardOnly bool
	BufferSize  int
	PendingSize int
	Clock       clock.Clock
	Logger      log.Logger
}

// NewResolver creates a new Resolver with the provided options.
func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if opts.Codec == nil {
		return nil, errors.New("resolver requires a codec")
	}
	if opts.Store == nil {
		return nil, errors.New("resolver requires a cache store")
	}
	if opts.Transport == nil {
		return nil, errors.New("resolver requires a transport")
	}
	if !opts.Upstream.IsValid() {
		return nil, errors.New("resolver requires a valid upstream address")
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.PendingSize <= 0 {
		opts.PendingSize = DefaultPendingSize
	}
	if opts.Clock == nil {
		opts.Clock = &clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	pending, err := NewPendingTable(opts.PendingSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending table: %w", err)
	}
	return &Resolver{
		codec:       opts.Codec,
		store:       opts.Store,
		transport:   opts.Transport,
		pending:     pending,
		upstream:    normalizeAddrPort(opts.Upstream),
		forwardOnly: opts.ForwardOnly,
		bufferSize:  opts.BufferSize,
		clock:       opts.Clock,
		logger:      log.WithFields(opts.Logger, map[string]any{"component": "resolver"}),
	}, nil
}

// Serve receives and handles datagrams one at a time until ctx is cancelled
// or the transport is closed. A blocked Receive is only interrupted by closing
// the transport.
func (r *Resolver) Serve(ctx context.Context) error {
	r.logger.Info(map[string]any{
		"upstream":     r.upstream.String(),
		"forward_only": r.forwardOnly,
	}, "resolver serving")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		data, from, err := r.transport.Receive(ctx)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			r.logger.Warn(map[string]any{"error": err.Error()}, "receive failed")
			continue
		}
		if state := r.HandleDatagram(ctx, data, from); !state.IsFinal() {
			r.logger.Error(map[string]any{
				"from":  from.String(),
				"state": state.String(),
			}, "datagram handling stopped in a non-final state")
		}
	}
}

// HandleDatagram processes a single datagram received from the given address
// and returns the state the datagram ended in.
func (r *Resolver) HandleDatagram(ctx context.Context, data []byte, from netip.AddrPort) domain.State {
	msg, err := r.codec.DecodeMessage(data)
	if err != nil {
		r.counters.malformed.Add(1)
		r.logger.Debug(map[string]any{
			"from":  from.String(),
			"size":  len(data),
			"error": err.Error(),
		}, "dropping malformed datagram")
		return r.drop()
	}
	// wire names are opaque bytes; only fold ASCII case
	msg.Question.Name = utils.UpperASCII(msg.Question.Name)

	if msg.IsResponse() {
		r.counters.responses.Add(1)
		return r.handleResponse(ctx, msg, from)
	}
	r.counters.queries.Add(1)
	return r.handleQuery(ctx, msg, data, from)
}

func (r *Resolver) handleQuery(ctx context.Context, msg domain.Message, raw []byte, from netip.AddrPort) domain.State {
	fields := map[string]any{
		"id":       msg.ID(),
		"question": msg.Question.String(),
		"from":     from.String(),
		"opcode":   msg.Header.Flags.Opcode(),
		"rd":       msg.Header.Flags.RecursionDesired(),
	}
	if !msg.Question.IsSupported() {
		r.logger.Debug(fields, "dropping unsupported question")
		return r.drop()
	}

	if !r.forwardOnly {
		addrs, err := r.store.Lookup(msg.Question.Name)
		if err != nil {
			r.logger.Warn(mergeFields(fields, "error", err.Error()), "cache lookup failed")
		} else if len(addrs) > 0 {
			r.counters.cacheHits.Add(1)
			r.logger.Debug(mergeFields(fields, "addresses", len(addrs)), "cache hit")
			return r.answer(msg.ID(), msg.Question, addrs, from)
		}
	}

	return r.forward(ctx, msg, raw, from)
}

func (r *Resolver) forward(_ context.Context, msg domain.Message, raw []byte, from netip.AddrPort) domain.State {
	fields := map[string]any{
		"id":       msg.ID(),
		"question": msg.Question.String(),
		"from":     from.String(),
		"upstream": r.upstream.String(),
	}

	req := domain.PendingRequest{
		ID:        msg.ID(),
		Requester: from,
		Question:  msg.Question,
		CreatedAt: r.clock.Now(),
	}
	replaced, abandoned := r.pending.Register(req)
	if replaced {
		r.logger.Debug(fields, "pending request replaced by newer query with same id")
	}
	if abandoned != nil {
		r.logger.Warn(map[string]any{
			"id":        abandoned.ID,
			"requester": abandoned.Requester.String(),
			"age":       abandoned.Age(r.clock.Now()).String(),
		}, "pending table full, abandoning oldest request")
	}

	if err := r.transport.Send(raw, r.upstream); err != nil {
		r.pending.Claim(req.ID)
		r.logger.Error(mergeFields(fields, "error", err.Error()), "failed to forward query")
		return r.drop()
	}

	r.counters.forwarded.Add(1)
	r.logger.Debug(fields, "query forwarded")
	return domain.StateForwarded
}

func (r *Resolver) handleResponse(_ context.Context, msg domain.Message, from netip.AddrPort) domain.State {
	fields := map[string]any{
		"id":       msg.ID(),
		"question": msg.Question.String(),
		"from":     from.String(),
	}
	if normalizeAddrPort(from) != r.upstream {
		r.logger.Warn(fields, "dropping response from unexpected source")
		return r.drop()
	}

	flags := msg.Header.Flags
	fields["rcode"] = flags.RCode().String()
	fields["tc"] = flags.Truncated()
	fields["aa"] = flags.Authoritative()
	fields["ra"] = flags.RecursionAvailable()
	if flags.RCode() != domain.NOERROR {
		r.counters.upstreamErrors.Add(1)
		r.logger.Debug(fields, "upstream returned an error rcode")
	}
	if flags.Truncated() {
		// relayed anyway; the leading answers that fit are still usable
		r.counters.truncated.Add(1)
		r.logger.Debug(fields, "upstream response truncated")
	}

	learned := msg.Addresses()
	if msg.Question.IsSupported() {
		for _, addr := range learned {
			if _, err := r.store.Insert(msg.Question.Name, addr); err != nil {
				r.logger.Warn(mergeFields(fields, "error", err.Error()), "failed to cache address")
			}
		}
	}

	req, ok := r.pending.Claim(msg.ID())
	if !ok {
		r.counters.spurious.Add(1)
		r.logger.Debug(fields, "no pending request for response")
		return r.drop()
	}

	addrs := learned
	if merged, err := r.store.Lookup(req.Question.Name); err != nil {
		r.logger.Warn(mergeFields(fields, "error", err.Error()), "cache lookup failed")
	} else if len(merged) > 0 {
		addrs = merged
	}

	r.logger.Debug(mergeFields(fields, "latency", req.Age(r.clock.Now()).String()), "upstream response received")
	return r.answer(req.ID, req.Question, addrs, req.Requester)
}

func (r *Resolver) answer(id uint16, q domain.Question, addrs []netip.Addr, to netip.AddrPort) domain.State {
	fields := map[string]any{
		"id":       id,
		"question": q.String(),
		"to":       to.String(),
	}
	payload, err := r.codec.EncodeAnswer(id, q, addrs, r.bufferSize)
	if err != nil {
		r.logger.Error(mergeFields(fields, "error", err.Error()), "failed to encode answer")
		return r.drop()
	}
	if err := r.transport.Send(payload, to); err != nil {
		r.logger.Error(mergeFields(fields, "error", err.Error()), "failed to send answer")
		return r.drop()
	}
	r.counters.answered.Add(1)
	return domain.StateAnswered
}

func (r *Resolver) drop() domain.State {
	r.counters.dropped.Add(1)
	return domain.StateDropped
}

func mergeFields(fields map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}

func normalizeAddrPort(ap netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
