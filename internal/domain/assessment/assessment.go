// Package assessment holds the scoring contract shared by every scorer:
// the request, the normalized score record and the normalizer itself.
package assessment

// Strategy names the path that produced an Assessment.
type Strategy string

// Known strategies.
const (
	StrategyVision    Strategy = "vision"
	StrategyHeuristic Strategy = "heuristic"
)

// Request is one analysis request. Only VideoLocator is required.
type Request struct {
	VideoID          string
	VideoLocator     string
	Duration         Optional[float64]
	CategoryHint     string
	ThumbnailLocator string
}

// Assessment is the normalized result of an analysis. Every present numeric
// field lies in [0,100] with one decimal of precision.
type Assessment struct {
	PerformanceScore float64           `json:"performanceScore"`
	VocalScore       Optional[float64] `json:"vocalScore"`
	ExpressionScore  float64           `json:"expressionScore"`
	MovementScore    Optional[float64] `json:"movementScore"`
	TimingScore      float64           `json:"timingScore"`
	QualityScore     float64           `json:"qualityScore"`
	CategoryTags     []string          `json:"categoryTags"`
	Feedback         string            `json:"feedback,omitempty"`

	Strategy Strategy `json:"-"`
}

// Normalized returns a copy with every score normalized and tags cleaned.
func (a Assessment) Normalized() Assessment {
	a.PerformanceScore = Normalize(a.PerformanceScore)
	a.ExpressionScore = Normalize(a.ExpressionScore)
	a.TimingScore = Normalize(a.TimingScore)
	a.QualityScore = Normalize(a.QualityScore)
	a.VocalScore = NormalizeOptional(a.VocalScore)
	a.MovementScore = NormalizeOptional(a.MovementScore)
	a.CategoryTags = NormalizeTags(a.CategoryTags)
	return a
}
