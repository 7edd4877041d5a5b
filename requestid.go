package ptx

import (
	"encoding/hex"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderXRequestID is the canonical request-correlation header.
const HeaderXRequestID = "X-Request-ID"

// fallbackRequestID is substituted when id generation fails; the request is
// never failed over identifier formatting.
const fallbackRequestID = "unknown-request-id"

// RequestID is the authoritative correlation identifier of one request,
// created once by [RequestIDManager.ApplyPolicy] and immutable thereafter.
// A propagated id is forwarded on the wire to the next hop; an internal id
// is used only for in-process correlation and never exposed on the wire.
type RequestID struct {
	value     string
	propagate bool
}

// Value returns the identifier's textual form regardless of variant.
func (id *RequestID) Value() string {
	return id.value
}

// Propagated reports whether the id travels on the wire to the next hop.
func (id *RequestID) Propagated() bool {
	return id.propagate
}

// PropagatedValue returns the value when the id is the propagated variant.
func (id *RequestID) PropagatedValue() (string, bool) {
	if id.propagate {
		return id.value, true
	}

	return "", false
}

// InternalValue returns the value when the id is the internal-only variant.
func (id *RequestID) InternalValue() (string, bool) {
	if !id.propagate {
		return id.value, true
	}

	return "", false
}

// RequestIDManager applies the request-id policy to requests and responses.
// It is immutable after construction and safe for concurrent use across all
// requests without coordination.
type RequestIDManager struct {
	generate            bool
	preserveExternal    bool
	alwaysSetInResponse bool
	header              string
	tracingEnabled      bool
	logger              *zap.Logger
}

// RequestIDOption configures a RequestIDManager.
type RequestIDOption func(*RequestIDManager)

// WithTracingEnabled tells the manager whether the tracing capability is
// active. With tracing on, a request that would otherwise carry no id still
// gets a freshly generated internal one so spans stay correlatable.
func WithTracingEnabled(enabled bool) RequestIDOption {
	return func(m *RequestIDManager) {
		m.tracingEnabled = enabled
	}
}

// WithRequestIDLogger sets the logger used for informational rejection and
// fallback messages. Defaults to a nop logger.
func WithRequestIDLogger(logger *zap.Logger) RequestIDOption {
	return func(m *RequestIDManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewRequestIDManager builds a manager from config. A nil cfg yields the
// defaults (generate and preserve external ids, don't force the response
// header, canonical header name).
func NewRequestIDManager(cfg *RequestIDConfig, opts ...RequestIDOption) *RequestIDManager {
	m := &RequestIDManager{
		generate:            cfg.IsGenerate(),
		preserveExternal:    cfg.IsPreserveExternal(),
		alwaysSetInResponse: cfg.IsAlwaysSetInResponse(),
		header:              cfg.HeaderName(),
		logger:              zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Header returns the correlation header name the manager operates on.
func (m *RequestIDManager) Header() string {
	return m.header
}

// FromRequest extracts the incoming correlation id. A header value counts as
// present only if it is non-empty and parses as a UUID; malformed values are
// treated as absent and logged at info level, never failing the request.
func (m *RequestIDManager) FromRequest(r *http.Request) *RequestID {
	raw := r.Header.Get(m.header)
	if raw == "" {
		return nil
	}
	if _, err := uuid.Parse(raw); err != nil {
		m.logger.Info("invalid request id header, treating as absent",
			zap.String("header", m.header),
			zap.String("value", raw),
		)

		return nil
	}

	return &RequestID{value: raw, propagate: true}
}

// ApplyPolicy chooses the authoritative id for the request, mutates the
// outbound correlation header accordingly, and returns the resulting id
// (nil when the policy yields none).
//
// The authoritative id is picked in priority order: a present incoming id
// when external ids are preserved; a fresh id when generation is on; a fresh
// id when the tracing capability is active; a fresh id (non-propagated) when
// access logging needs one; otherwise none.
func (m *RequestIDManager) ApplyPolicy(req *http.Request, accessLogEnabled bool, incoming *RequestID) *RequestID {
	var authoritative string

	present := false
	generated := false

	switch {
	case incoming != nil && m.preserveExternal:
		authoritative, present = incoming.Value(), true
	case m.generate:
		authoritative, present, generated = m.newID(), true, true
	case m.tracingEnabled:
		authoritative, present, generated = m.newID(), true, true
	case accessLogEnabled:
		authoritative, present = m.newID(), true
	}

	shouldPropagate := (incoming != nil && m.preserveExternal) || m.generate

	if shouldPropagate {
		if generated && present {
			req.Header.Set(m.header, authoritative)
		}
	} else if incoming != nil {
		req.Header.Del(m.header)
	}

	if !present {
		return nil
	}

	return &RequestID{value: authoritative, propagate: shouldPropagate}
}

// ApplyToResponse stamps the id onto the response headers when the policy
// demands the response always carries one. No mutation otherwise.
func (m *RequestIDManager) ApplyToResponse(headers http.Header, id *RequestID) {
	if !m.alwaysSetInResponse || id == nil {
		return
	}
	headers.Set(m.header, id.Value())
}

// newID produces a 128-bit random identifier as 32 lowercase hex characters.
// On generation failure the fixed sentinel is substituted.
func (m *RequestIDManager) newID() string {
	u, err := uuid.NewRandom()
	if err != nil {
		m.logger.Info("request id generation failed, using fallback", zap.Error(err))
		return fallbackRequestID
	}

	return hex.EncodeToString(u[:])
}
