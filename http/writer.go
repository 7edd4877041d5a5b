package http

import (
	"net/http"

	"github.com/arloliu/ptx"
)

// countingWriter wraps http.ResponseWriter, counting bytes written and
// driving a completion slot. It captures the status code for span
// attributes. finish releases the scope-exit guard and must run on every
// exit path of the exchange, panics included.
type countingWriter struct {
	http.ResponseWriter
	slot          *ptx.CompletionSlot
	guard         *ptx.CompletionGuard
	classify      ptx.FlagClassifier
	statusCode    int
	headerWritten bool
}

func newCountingWriter(w http.ResponseWriter, kind ptx.BodyKind, classify ptx.FlagClassifier, onComplete ptx.CompletionFunc) *countingWriter {
	slot := ptx.NewCompletionSlot(kind, onComplete)

	return &countingWriter{
		ResponseWriter: w,
		slot:           slot,
		guard:          slot.Guard(),
		classify:       classify,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code and delegates to the underlying
// writer. Only the first call takes effect.
func (w *countingWriter) WriteHeader(code int) {
	if w.headerWritten {
		return
	}
	w.statusCode = code
	w.headerWritten = true
	w.ResponseWriter.WriteHeader(code)
}

// Write delegates to the underlying writer, accumulating written bytes.
// A write error (client gone, connection reset) completes the slot with the
// classified flags; the error is returned unchanged.
func (w *countingWriter) Write(b []byte) (int, error) {
	if !w.headerWritten {
		w.headerWritten = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.slot.Add(n)
	if err != nil {
		w.slot.Complete(w.classifyErr(err))
	}

	return n, err
}

// finish completes the exchange with the default classification unless a
// write error already did.
func (w *countingWriter) finish() {
	w.guard.Release()
}

// Status returns the response status code sent to the client.
func (w *countingWriter) Status() int {
	return w.statusCode
}

// Bytes returns the number of body bytes written so far.
func (w *countingWriter) Bytes() uint64 {
	return w.slot.Bytes()
}

// Flush passes through to the underlying writer when it supports streaming.
func (w *countingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer so http.ResponseController and type
// assertions keep working through the wrapper.
func (w *countingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *countingWriter) classifyErr(err error) ptx.ResponseFlags {
	if w.classify == nil {
		return ptx.FlagsNone
	}

	return w.classify(err, w.slot.Kind())
}
