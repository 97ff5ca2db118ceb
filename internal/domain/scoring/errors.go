package scoring

import "errors"

// Sentinel errors returned by VisionScorer.
var (
	// ErrUpstream marks an unrecoverable failure talking to the inference service.
	ErrUpstream = errors.New("inference upstream failure")
	// ErrMalformedResponse marks a response without a decodable JSON object.
	ErrMalformedResponse = errors.New("malformed inference response")
)
