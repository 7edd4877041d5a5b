package ptx

import (
	"errors"
	"io"
)

// BodyMeter instruments body streams with byte counting and guaranteed-once
// completion reporting. Two interchangeable implementations exist:
// [NewBodyMeter] for the counting variant and [NopBodyMeter] for a
// zero-overhead passthrough when metrics and access logging are disabled.
// Both preserve the wrapped body's framing and end-of-stream timing exactly;
// only the side channel differs.
type BodyMeter interface {
	// Wrap decorates body so that onComplete is invoked exactly once with
	// the total bytes read and an outcome classification.
	Wrap(kind BodyKind, body io.ReadCloser, onComplete CompletionFunc) io.ReadCloser
}

// NewBodyMeter returns the counting meter. Terminal read errors are
// classified through classify; a nil classify reports the default
// classification for every outcome.
func NewBodyMeter(classify FlagClassifier) BodyMeter {
	return &bodyMeter{classify: classify}
}

// NopBodyMeter returns a meter whose Wrap returns the body unchanged.
// No counter, no guard, no callback allocation.
func NopBodyMeter() BodyMeter {
	return nopBodyMeter{}
}

type bodyMeter struct {
	classify FlagClassifier
}

func (m *bodyMeter) Wrap(kind BodyKind, body io.ReadCloser, onComplete CompletionFunc) io.ReadCloser {
	return NewMeteredBody(kind, body, m.classify, onComplete)
}

type nopBodyMeter struct{}

func (nopBodyMeter) Wrap(_ BodyKind, body io.ReadCloser, _ CompletionFunc) io.ReadCloser {
	return body
}

// MeteredBody wraps an inner body stream, counting payload bytes and driving
// a [CompletionSlot]. The inner stream's data, errors and end-of-stream
// timing are passed through unmodified; instrumentation observes but never
// absorbs failures.
//
// Completion fires exactly once, on whichever comes first:
//   - end of stream (io.EOF), with the default classification
//   - a terminal read error, classified via the configured [FlagClassifier]
//   - Close before the stream reached its end, with the default
//     classification (the cancellation/abandonment path)
type MeteredBody struct {
	inner    io.ReadCloser
	slot     *CompletionSlot
	classify FlagClassifier
	guard    *CompletionGuard
}

// NewMeteredBody wraps inner with byte counting and completion reporting.
func NewMeteredBody(kind BodyKind, inner io.ReadCloser, classify FlagClassifier, onComplete CompletionFunc) *MeteredBody {
	slot := NewCompletionSlot(kind, onComplete)

	return &MeteredBody{
		inner:    inner,
		slot:     slot,
		classify: classify,
		guard:    slot.Guard(),
	}
}

// Read reads from the inner body, accumulating produced bytes. io.EOF
// completes the slot with the default classification; any other error
// completes it with the classified flags. The error is returned unchanged.
func (b *MeteredBody) Read(p []byte) (int, error) {
	n, err := b.inner.Read(p)
	b.slot.Add(n)

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		b.slot.Complete(FlagsNone)
	default:
		b.slot.Complete(b.classifyErr(err))
	}

	return n, err
}

// WriteTo drains the body into w, preserving the inner body's io.WriterTo
// fast path when it has one. Counting and completion semantics match Read.
func (b *MeteredBody) WriteTo(w io.Writer) (int64, error) {
	wt, ok := b.inner.(io.WriterTo)
	if !ok {
		// io.Copy must not see WriteTo again on the same value.
		return io.Copy(w, readOnly{b})
	}

	n, err := wt.WriteTo(w)
	if n > 0 {
		b.slot.Add(int(n))
	}
	if err != nil {
		b.slot.Complete(b.classifyErr(err))
	} else {
		b.slot.Complete(FlagsNone)
	}

	return n, err
}

// Close releases the completion guard, then closes the inner body. Closing
// before end of stream is the expected abandonment path (caller
// cancellation, timeout, client disconnect) and still delivers completion.
func (b *MeteredBody) Close() error {
	b.guard.Release()
	return b.inner.Close()
}

// Guard exposes the scope-exit guard so an enclosing request lifetime can
// hold a second owner of the completion slot.
func (b *MeteredBody) Guard() *CompletionGuard {
	return b.guard
}

// Slot exposes the underlying completion slot.
func (b *MeteredBody) Slot() *CompletionSlot {
	return b.slot
}

func (b *MeteredBody) classifyErr(err error) ResponseFlags {
	if b.classify == nil {
		return FlagsNone
	}

	return b.classify(err, b.slot.Kind())
}

// readOnly hides every method of MeteredBody except Read.
type readOnly struct {
	io.Reader
}
