package ptx

import (
	"sync"
	"sync/atomic"
)

// CompletionFunc is invoked once per body-stream lifetime with the total
// number of payload bytes observed and the outcome classification.
type CompletionFunc func(bytes uint64, flags ResponseFlags)

// CompletionSlot is a single-use completion holder shared by every owner of
// one body stream. The callback fires at most once over the slot's lifetime;
// whichever trigger arrives first (natural end of stream, terminal error, or
// scope exit) wins and later triggers are no-ops.
//
// The byte counter is written only by the goroutine currently reading the
// stream and is read only after the callback has been taken, so the callback
// always observes the final count.
type CompletionSlot struct {
	kind  BodyKind
	bytes atomic.Uint64

	mu         sync.Mutex
	onComplete CompletionFunc
}

// NewCompletionSlot creates a slot for a body of the given kind.
// A nil onComplete yields a slot whose completion is a no-op.
func NewCompletionSlot(kind BodyKind, onComplete CompletionFunc) *CompletionSlot {
	return &CompletionSlot{kind: kind, onComplete: onComplete}
}

// Kind returns the direction tag the slot was created with.
func (s *CompletionSlot) Kind() BodyKind {
	return s.kind
}

// Add accumulates n payload bytes into the counter.
func (s *CompletionSlot) Add(n int) {
	if n > 0 {
		s.bytes.Add(uint64(n))
	}
}

// Bytes returns the current counter value. The value is only stable once the
// slot has completed.
func (s *CompletionSlot) Bytes() uint64 {
	return s.bytes.Load()
}

// Complete consumes the callback with the given classification. Taking
// ownership of the callback is the unit of exclusivity: exactly one of
// possibly many racing triggers invokes it, the rest return without effect.
func (s *CompletionSlot) Complete(flags ResponseFlags) {
	s.mu.Lock()
	fn := s.onComplete
	s.onComplete = nil
	s.mu.Unlock()

	if fn != nil {
		fn(s.bytes.Load(), flags)
	}
}

// Guard returns a secondary owner of the slot. Releasing the guard completes
// the slot with the default classification, so a stream abandoned before its
// natural end still delivers its completion exactly once.
func (s *CompletionSlot) Guard() *CompletionGuard {
	return &CompletionGuard{slot: s}
}

// CompletionGuard is a redundant owner over a shared [CompletionSlot],
// attached to every exit path of the wrapping stream's lifetime. Release is
// idempotent and safe on a nil guard.
type CompletionGuard struct {
	slot *CompletionSlot
}

// Release completes the underlying slot with the default ("no error
// observed") classification if it has not completed yet.
func (g *CompletionGuard) Release() {
	if g == nil || g.slot == nil {
		return
	}
	g.slot.Complete(FlagsNone)
}
