package ptx

import (
	"sync"

	"go.opentelemetry.io/otel/trace"
)

// SpanState owns the optional tracing spans of one request: the SERVER span
// covering the inbound exchange and the CLIENT span covering the upstream
// call, if one was issued. The two slots use independent locks so server and
// client bookkeeping never contend with each other.
//
// A SpanState instance belongs to a single request's context and must not be
// shared across requests. All methods are safe on a nil receiver, which
// behaves as a state with both slots empty.
type SpanState struct {
	serverMu sync.Mutex
	server   trace.Span

	clientMu sync.Mutex
	client   trace.Span
}

// NewSpanState creates a holder with the server slot populated (or empty if
// server is nil) and the client slot empty.
func NewSpanState(server trace.Span) *SpanState {
	return &SpanState{server: server}
}

// SetClient populates the client slot, replacing any previous client span.
// Called when an upstream request is issued.
func (s *SpanState) SetClient(span trace.Span) {
	if s == nil {
		return
	}
	s.clientMu.Lock()
	s.client = span
	s.clientMu.Unlock()
}

// WithServer runs fn with the server span while holding the slot's lock.
// A no-op when the slot is empty.
func (s *SpanState) WithServer(fn func(trace.Span)) {
	if s == nil {
		return
	}
	s.serverMu.Lock()
	defer s.serverMu.Unlock()
	if s.server != nil {
		fn(s.server)
	}
}

// WithClient runs fn with the client span while holding the slot's lock.
// A no-op when the slot is empty.
func (s *SpanState) WithClient(fn func(trace.Span)) {
	if s == nil {
		return
	}
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	if s.client != nil {
		fn(s.client)
	}
}

// End ends whichever spans are populated and clears the slots, so a second
// End from another teardown path is a safe no-op. Ending with both slots
// empty does nothing. Each slot's lock is held only while that slot is
// ended.
func (s *SpanState) End() {
	if s == nil {
		return
	}

	s.serverMu.Lock()
	if s.server != nil {
		s.server.End()
		s.server = nil
	}
	s.serverMu.Unlock()

	s.clientMu.Lock()
	if s.client != nil {
		s.client.End()
		s.client = nil
	}
	s.clientMu.Unlock()
}
