// Package orchestrator picks a scoring strategy for each analysis request
// and guarantees a valid, normalized assessment regardless of upstream
// failures.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/talentscore/internal/domain/assessment"
	"github.com/okian/talentscore/internal/domain/scoring"
	"github.com/okian/talentscore/internal/domain/signal"
	"github.com/okian/talentscore/pkg/logger"
	"github.com/okian/talentscore/pkg/metrics"
)

const (
	defaultVisionTimeout = 10 * time.Second
	tracerName           = "github.com/okian/talentscore/internal/domain/orchestrator"
)

// Fallback reasons reported in logs and metrics.
const (
	ReasonNone         = ""
	ReasonNoThumbnail  = "no_thumbnail"
	ReasonUnconfigured = "vision_unconfigured"
	ReasonInitFailed   = "vision_init_failed"
	ReasonTimeout      = "timeout"
	ReasonCanceled     = "canceled"
	ReasonMalformed    = "malformed"
	ReasonUpstream     = "upstream"
)

// Signals holds the per-modality reports of one analysis. A nil report
// means the modality was not supplied.
type Signals struct {
	Audio      *signal.AudioReport      `json:"audio,omitempty"`
	Movement   *signal.MovementReport   `json:"movement,omitempty"`
	Expression *signal.ExpressionReport `json:"expression,omitempty"`
}

// Orchestrator routes requests to the vision or heuristic scorer. It holds
// no mutable per-call state and is safe for concurrent use.
type Orchestrator struct {
	provider      VisionProvider
	vision        func() (scoring.Scorer, error)
	visionTimeout time.Duration
	heuristic     *scoring.HeuristicScorer
	audio         *signal.AudioAnalyzer
	movement      *signal.MovementAnalyzer
	expression    *signal.ExpressionAnalyzer
	thumbnailFile string
	log           logger.Logger
	tracer        trace.Tracer
}

// New creates an Orchestrator. Without a vision option every request is
// scored heuristically.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		visionTimeout: defaultVisionTimeout,
		heuristic:     scoring.NewHeuristicScorer(),
		audio:         signal.NewAudioAnalyzer(),
		movement:      signal.NewMovementAnalyzer(),
		expression:    signal.NewExpressionAnalyzer(),
		thumbnailFile: DefaultThumbnailFile,
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Named("orchestrator")
	}
	provider := o.provider
	o.vision = sync.OnceValues(func() (scoring.Scorer, error) {
		if provider == nil {
			return nil, nil
		}
		return provider()
	})
	return o
}

// Analyze scores req. It never fails: any vision problem falls back to the
// heuristic scorer.
func (o *Orchestrator) Analyze(ctx context.Context, req assessment.Request) assessment.Assessment {
	a, _ := o.analyze(ctx, req, nil)
	return a
}

// AnalyzeWithSignals scores req and, concurrently, the supplied raw signals.
// Detected modalities are fused into the assessment.
func (o *Orchestrator) AnalyzeWithSignals(ctx context.Context, req assessment.Request, bundle signal.Bundle) (assessment.Assessment, Signals) {
	return o.analyze(ctx, req, &bundle)
}

func (o *Orchestrator) analyze(ctx context.Context, req assessment.Request, bundle *signal.Bundle) (assessment.Assessment, Signals) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Analyze", trace.WithAttributes(
		attribute.String("video.id", req.VideoID),
	))
	defer span.End()

	var (
		a       assessment.Assessment
		reason  string
		signals Signals
	)
	// Neither branch returns an error; errgroup only joins them.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, reason = o.score(gctx, req)
		return nil
	})
	if bundle != nil && !bundle.Empty() {
		g.Go(func() error {
			signals = o.AnalyzeSignals(gctx, *bundle)
			return nil
		})
	}
	_ = g.Wait()

	a = Fuse(a, signals)

	span.SetAttributes(
		attribute.String("strategy", string(a.Strategy)),
		attribute.Float64("performance_score", a.PerformanceScore),
	)
	took := time.Since(start)
	metrics.RecordAnalysis(string(a.Strategy), float64(took.Milliseconds()), a.PerformanceScore)

	fields := []logger.Field{
		logger.String("videoId", req.VideoID),
		logger.String("strategy", string(a.Strategy)),
		logger.Float64("performanceScore", a.PerformanceScore),
		logger.Duration("took", took),
	}
	if reason != ReasonNone {
		fields = append(fields, logger.String("fallbackReason", reason))
	}
	if sc := span.SpanContext(); sc.HasTraceID() {
		fields = append(fields, logger.String("traceId", sc.TraceID().String()))
	}
	o.log.Info(ctx, "analysis complete", fields...)
	return a, signals
}

// score runs the vision scorer when possible and the heuristic otherwise.
// The returned reason is empty when vision scoring succeeded.
func (o *Orchestrator) score(ctx context.Context, req assessment.Request) (assessment.Assessment, string) {
	fallback := func(reason string) (assessment.Assessment, string) {
		return o.heuristic.Score(req.Duration, req.CategoryHint), reason
	}

	thumbnail := req.ThumbnailLocator
	if thumbnail == "" {
		var ok bool
		if thumbnail, ok = ResolveThumbnail(req.VideoLocator, o.thumbnailFile); !ok {
			return fallback(ReasonNoThumbnail)
		}
	}

	scorer, err := o.vision()
	if err != nil {
		o.log.Error(ctx, "vision scorer unavailable", logger.Error(err))
		metrics.RecordVisionFailure(ReasonInitFailed)
		return fallback(ReasonInitFailed)
	}
	if scorer == nil {
		return fallback(ReasonUnconfigured)
	}

	vctx, cancel := context.WithTimeout(ctx, o.visionTimeout)
	defer cancel()
	start := time.Now()
	a, err := scorer.Score(vctx, thumbnail, req.CategoryHint)
	metrics.RecordVisionLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		reason := classify(err)
		metrics.RecordVisionFailure(reason)
		o.log.Warn(ctx, "vision scoring failed, using heuristic",
			logger.String("videoId", req.VideoID),
			logger.String("reason", reason),
			logger.Error(err),
		)
		return fallback(reason)
	}
	a.Strategy = assessment.StrategyVision
	return a.Normalized(), ReasonNone
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, scoring.ErrMalformedResponse):
		return ReasonMalformed
	default:
		return ReasonUpstream
	}
}

// AnalyzeSignals runs every supplied modality analyzer concurrently.
func (o *Orchestrator) AnalyzeSignals(ctx context.Context, b signal.Bundle) Signals {
	var out Signals
	g, _ := errgroup.WithContext(ctx)
	if b.Audio != nil {
		g.Go(func() error {
			r := o.audio.Analyze(*b.Audio)
			metrics.RecordSignalAnalysis("audio", r.Detected)
			out.Audio = &r
			return nil
		})
	}
	if len(b.Pose) > 0 {
		g.Go(func() error {
			r := o.movement.Analyze(b.Pose, 0)
			metrics.RecordSignalAnalysis("movement", r.Detected)
			out.Movement = &r
			return nil
		})
	}
	if len(b.Face) > 0 {
		g.Go(func() error {
			r := o.expression.Analyze(b.Face, 0)
			metrics.RecordSignalAnalysis("expression", r.Detected)
			out.Expression = &r
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Fuse folds detected modality reports into a. Vocal and movement scores
// are only filled when absent; expression is blended with the face report.
func Fuse(a assessment.Assessment, s Signals) assessment.Assessment {
	if s.Audio != nil && s.Audio.Detected && !a.VocalScore.IsSome() {
		a.VocalScore = assessment.Some(s.Audio.Composite())
	}
	if s.Movement != nil && s.Movement.Detected && !a.MovementScore.IsSome() {
		a.MovementScore = assessment.Some(s.Movement.Composite())
	}
	if s.Expression != nil && s.Expression.Detected {
		a.ExpressionScore = assessment.Mean(a.ExpressionScore, s.Expression.Composite())
	}
	return a.Normalized()
}
