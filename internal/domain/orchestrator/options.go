package orchestrator

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/okian/talentscore/internal/domain/scoring"
	"github.com/okian/talentscore/internal/domain/signal"
	"github.com/okian/talentscore/pkg/logger"
)

// VisionProvider builds the vision scorer. It runs at most once; a nil
// scorer means vision scoring is not configured.
type VisionProvider func() (scoring.Scorer, error)

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithVision uses an already constructed vision scorer.
func WithVision(s scoring.Scorer) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.provider = func() (scoring.Scorer, error) { return s, nil }
		}
	}
}

// WithVisionProvider defers building the vision scorer to first use.
func WithVisionProvider(p VisionProvider) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.provider = p
		}
	}
}

// WithVisionTimeout bounds each vision call.
func WithVisionTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.visionTimeout = d
		}
	}
}

// WithHeuristic sets the fallback scorer.
func WithHeuristic(h *scoring.HeuristicScorer) Option {
	return func(o *Orchestrator) {
		if h != nil {
			o.heuristic = h
		}
	}
}

// WithAudioAnalyzer sets the audio analyzer.
func WithAudioAnalyzer(a *signal.AudioAnalyzer) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.audio = a
		}
	}
}

// WithMovementAnalyzer sets the movement analyzer.
func WithMovementAnalyzer(m *signal.MovementAnalyzer) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.movement = m
		}
	}
}

// WithExpressionAnalyzer sets the expression analyzer.
func WithExpressionAnalyzer(e *signal.ExpressionAnalyzer) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.expression = e
		}
	}
}

// WithThumbnailFile sets the file name substituted for manifest names.
func WithThumbnailFile(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.thumbnailFile = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}
