package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/talentscore/internal/domain/assessment"
)

const (
	defaultInlineTimeout = 10 * time.Second
	tracerName           = "github.com/okian/talentscore/internal/domain/scoring"
)

// systemPrompt fixes the scoring rubric so the model's output distribution
// stays comparable across calls.
const systemPrompt = `You are an expert talent scout reviewing short performance videos.
Score the performance shown in the image on a 0-100 scale.
Calibration: typical amateur performances score 60-85, professional quality
scores 85-95, and only rare exceptional talent scores above 95.
Reply with a single JSON object and nothing else:
{"performanceScore": number, "vocalScore": number|null, "expressionScore": number,
 "movementScore": number|null, "timingScore": number, "qualityScore": number,
 "categoryTags": [string], "feedback": string}
Use null for vocalScore or movementScore when that modality cannot be judged
from the image. categoryTags are lowercase talent categories such as singer,
actor, dancer, comedian, musician or voice-over.`

// VisionOption configures a VisionScorer.
type VisionOption func(*VisionScorer)

// WithInliner enables fetching the thumbnail and sending it inline as a data
// URL instead of by reference.
func WithInliner(in ImageInliner) VisionOption {
	return func(v *VisionScorer) {
		v.inliner = in
	}
}

// WithInlineTimeout bounds the thumbnail fetch.
func WithInlineTimeout(d time.Duration) VisionOption {
	return func(v *VisionScorer) {
		if d > 0 {
			v.inlineTimeout = d
		}
	}
}

// WithTracer sets the tracer used for spans.
func WithTracer(t trace.Tracer) VisionOption {
	return func(v *VisionScorer) {
		if t != nil {
			v.tracer = t
		}
	}
}

// VisionScorer scores a thumbnail with a multimodal inference service.
type VisionScorer struct {
	client        InferenceClient
	inliner       ImageInliner
	inlineTimeout time.Duration
	tracer        trace.Tracer
}

// NewVisionScorer creates a VisionScorer around client.
func NewVisionScorer(client InferenceClient, opts ...VisionOption) *VisionScorer {
	v := &VisionScorer{
		client:        client,
		inlineTimeout: defaultInlineTimeout,
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Score implements Scorer.
func (v *VisionScorer) Score(ctx context.Context, thumbnail, categoryHint string) (assessment.Assessment, error) {
	ctx, span := v.tracer.Start(ctx, "VisionScorer.Score")
	defer span.End()

	image, inlined := v.image(ctx, thumbnail)
	span.SetAttributes(attribute.Bool("image.inlined", inlined))

	text, err := v.client.Describe(ctx, VisionRequest{
		System:   systemPrompt,
		Prompt:   userPrompt(categoryHint),
		ImageURL: image,
	})
	if err != nil {
		if !errors.Is(err, ErrUpstream) {
			err = fmt.Errorf("%w: %w", ErrUpstream, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference failed")
		return assessment.Assessment{}, err
	}

	res := ParseResponse(text)
	span.SetAttributes(attribute.String("parse.outcome", res.Outcome.String()))
	if !res.OK() {
		err := res.Err()
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed response")
		return assessment.Assessment{}, err
	}
	return res.Assessment, nil
}

// image returns the image reference to send. A failed fetch falls back to
// the raw reference.
func (v *VisionScorer) image(ctx context.Context, thumbnail string) (string, bool) {
	if v.inliner == nil {
		return thumbnail, false
	}
	ctx, cancel := context.WithTimeout(ctx, v.inlineTimeout)
	defer cancel()
	data, err := v.inliner.DataURL(ctx, thumbnail)
	if err != nil || data == "" {
		return thumbnail, false
	}
	return data, true
}

func userPrompt(categoryHint string) string {
	var b strings.Builder
	b.WriteString("Analyze this frame from a talent performance video and score it.")
	if hint := strings.TrimSpace(categoryHint); hint != "" {
		fmt.Fprintf(&b, " The uploader categorised it as %q.", hint)
	}
	return b.String()
}
