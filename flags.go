package ptx

// BodyKind distinguishes which direction of the exchange a metered body
// belongs to. It is used only as a classification key when deriving
// response flags from a stream error.
type BodyKind uint8

const (
	// BodyRequest marks a request body streamed toward the upstream.
	BodyRequest BodyKind = iota
	// BodyResponse marks a response body streamed back to the client.
	BodyResponse
)

// String returns the lowercase name of the body kind.
func (k BodyKind) String() string {
	switch k {
	case BodyRequest:
		return "request"
	case BodyResponse:
		return "response"
	default:
		return "unknown"
	}
}

// ResponseFlags is an opaque outcome classification for a completed body
// stream. The bit taxonomy is owned by the metrics/access-log collaborator;
// ptx only carries the value from the classifier to the completion callback.
//
// The zero value means "no error observed" and is what abandonment and
// natural end of stream report.
type ResponseFlags uint64

// FlagsNone is the default classification: the stream ended without an
// observed error.
const FlagsNone ResponseFlags = 0

// FlagClassifier derives a classification from a terminal stream error and
// the direction of the body the error occurred on. It is supplied by the
// environment; ptx never interprets the result.
type FlagClassifier func(err error, kind BodyKind) ResponseFlags
