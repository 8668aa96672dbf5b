package generation

import "errors"

// Errors reported by model client implementations. They never cross the API
// boundary: ComputeAnswer converts them to fallback text and stream consumers
// translate them into an internal error transition.
var (
	// ErrInvalidConfig indicates the client was constructed with unusable
	// configuration (missing API key, unknown model, ...).
	ErrInvalidConfig = errors.New("invalid generation configuration")

	// ErrUpstreamTimeout indicates the per-call timeout elapsed before the
	// endpoint produced a complete answer.
	ErrUpstreamTimeout = errors.New("upstream generation timed out")

	// ErrUpstream indicates a transport or endpoint failure other than a
	// timeout.
	ErrUpstream = errors.New("upstream generation failed")
)
