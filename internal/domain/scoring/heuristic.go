package scoring

import (
	"math"
	"math/rand"
	"sync"

	"github.com/okian/talentscore/internal/domain/assessment"
)

// Heuristic defaults. The duration nudges and noise spreads are tuning
// constants; HeuristicConfig makes each of them configurable.
const (
	DefaultBaseline             = 72.0
	DefaultBaseNoise            = 8.0
	DefaultLongDurationSeconds  = 120.0
	DefaultLongDurationBonus    = 3.0
	DefaultShortDurationSeconds = 15.0
	DefaultShortDurationPenalty = 2.0
	DefaultExpressionNoise      = 5.0
	DefaultQualityNoiseMin      = 0.0
	DefaultQualityNoiseMax      = 8.0
	DefaultTimingNoiseMin       = -3.0
	DefaultTimingNoiseMax       = 5.0

	defaultRandomSeed = 42

	// HeuristicFeedback is attached to every heuristic assessment.
	HeuristicFeedback = "AI analysis unavailable; scores are heuristic estimates."
)

// NoiseSource draws a value from [lo, hi]. Implementations must be safe for
// concurrent use.
type NoiseSource interface {
	Uniform(lo, hi float64) float64
}

// RandNoise is a NoiseSource backed by math/rand.
type RandNoise struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandNoise creates a seeded RandNoise.
func NewRandNoise(seed int64) *RandNoise {
	return &RandNoise{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // scoring noise, not security sensitive
}

// Uniform implements NoiseSource.
func (n *RandNoise) Uniform(lo, hi float64) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return lo + n.rng.Float64()*(hi-lo)
}

// ZeroNoise pins every draw to zero, or to the nearest bound when zero is
// outside [lo, hi].
type ZeroNoise struct{}

// Uniform implements NoiseSource.
func (ZeroNoise) Uniform(lo, hi float64) float64 { return math.Max(lo, math.Min(hi, 0)) }

// HeuristicConfig holds the heuristic tuning constants.
type HeuristicConfig struct {
	Baseline             float64
	BaseNoise            float64
	LongDurationSeconds  float64
	LongDurationBonus    float64
	ShortDurationSeconds float64
	ShortDurationPenalty float64
	ExpressionNoise      float64
	QualityNoiseMin      float64
	QualityNoiseMax      float64
	TimingNoiseMin       float64
	TimingNoiseMax       float64
}

// DefaultHeuristicConfig returns the stock tuning constants.
func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{
		Baseline:             DefaultBaseline,
		BaseNoise:            DefaultBaseNoise,
		LongDurationSeconds:  DefaultLongDurationSeconds,
		LongDurationBonus:    DefaultLongDurationBonus,
		ShortDurationSeconds: DefaultShortDurationSeconds,
		ShortDurationPenalty: DefaultShortDurationPenalty,
		ExpressionNoise:      DefaultExpressionNoise,
		QualityNoiseMin:      DefaultQualityNoiseMin,
		QualityNoiseMax:      DefaultQualityNoiseMax,
		TimingNoiseMin:       DefaultTimingNoiseMin,
		TimingNoiseMax:       DefaultTimingNoiseMax,
	}
}

// HeuristicOption configures a HeuristicScorer.
type HeuristicOption func(*HeuristicScorer)

// WithNoise sets the noise source.
func WithNoise(n NoiseSource) HeuristicOption {
	return func(h *HeuristicScorer) {
		if n != nil {
			h.noise = n
		}
	}
}

// WithHeuristicConfig replaces the tuning constants.
func WithHeuristicConfig(cfg HeuristicConfig) HeuristicOption {
	return func(h *HeuristicScorer) {
		h.cfg = cfg
	}
}

// HeuristicScorer produces a bounded baseline assessment without any
// external dependency. It never fails.
type HeuristicScorer struct {
	cfg   HeuristicConfig
	noise NoiseSource
}

// NewHeuristicScorer creates a HeuristicScorer seeded deterministically.
func NewHeuristicScorer(opts ...HeuristicOption) *HeuristicScorer {
	h := &HeuristicScorer{
		cfg:   DefaultHeuristicConfig(),
		noise: NewRandNoise(defaultRandomSeed),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Score returns a heuristic assessment. Vocal and movement scores are
// always absent since no modality signal is available.
func (h *HeuristicScorer) Score(duration assessment.Optional[float64], categoryHint string) assessment.Assessment {
	c := h.cfg
	base := c.Baseline + h.noise.Uniform(-c.BaseNoise, c.BaseNoise)
	if d, ok := duration.Get(); ok {
		switch {
		case d > c.LongDurationSeconds:
			base += c.LongDurationBonus
		case d < c.ShortDurationSeconds:
			base -= c.ShortDurationPenalty
		}
	}

	return assessment.Assessment{
		PerformanceScore: base,
		ExpressionScore:  base + h.noise.Uniform(-c.ExpressionNoise, c.ExpressionNoise),
		QualityScore:     base + h.noise.Uniform(c.QualityNoiseMin, c.QualityNoiseMax),
		TimingScore:      base + h.noise.Uniform(c.TimingNoiseMin, c.TimingNoiseMax),
		VocalScore:       assessment.None[float64](),
		MovementScore:    assessment.None[float64](),
		CategoryTags:     assessment.TagsFromHint(categoryHint),
		Feedback:         HeuristicFeedback,
		Strategy:         assessment.StrategyHeuristic,
	}.Normalized()
}
