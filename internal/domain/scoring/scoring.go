// Package scoring turns a video thumbnail or its metadata into a
// normalized assessment. VisionScorer asks an external multimodal model and
// HeuristicScorer produces a bounded baseline when that is not possible.
package scoring

import (
	"context"

	"github.com/okian/talentscore/internal/domain/assessment"
)

// Scorer scores a resolved thumbnail. Implementations honor ctx for
// cancellation and return errors wrapping ErrUpstream or
// ErrMalformedResponse.
type Scorer interface {
	Score(ctx context.Context, thumbnail, categoryHint string) (assessment.Assessment, error)
}

// VisionRequest is one multimodal prompt.
type VisionRequest struct {
	System string
	Prompt string
	// ImageURL is either a public URL or a base64 data URL.
	ImageURL string
}

// InferenceClient sends a multimodal prompt and returns the model's raw text.
type InferenceClient interface {
	Describe(ctx context.Context, req VisionRequest) (string, error)
}

// ImageInliner fetches an image and returns it as a data URL.
type ImageInliner interface {
	DataURL(ctx context.Context, url string) (string, error)
}
