package signal

import "math"

// Expression analysis constants.
const (
	DefaultExpressionFrameCap = 20

	// Face mesh indices of the inner lips and the left eye lids.
	DefaultUpperLipIndex  = 13
	DefaultLowerLipIndex  = 14
	DefaultEyeTopIndex    = 159
	DefaultEyeBottomIndex = 145

	intensityScale       = 100.0
	emotionRangeBase     = 50.0
	emotionRangeFactor   = 10.0
	authenticityBase     = 60.0
	authenticityFactor   = 2.0
	presenceBase         = 55.0
	presenceMeanFactor   = 1.5
	presenceSpreadFactor = 5.0
)

// DefaultExpressionReport is returned when no frame carries a face.
var DefaultExpressionReport = ExpressionReport{
	EmotionRange:   75,
	Authenticity:   78,
	CameraPresence: 75,
}

// FaceIndices names the landmark positions used to measure mouth and eye
// openness.
type FaceIndices struct {
	UpperLip  int
	LowerLip  int
	EyeTop    int
	EyeBottom int
}

func (f FaceIndices) maxIndex() int {
	return max(f.UpperLip, f.LowerLip, f.EyeTop, f.EyeBottom)
}

// ExpressionAnalyzer scores facial expressiveness from face landmark frames.
type ExpressionAnalyzer struct {
	frameCap int
	indices  FaceIndices
}

// ExpressionOption configures an ExpressionAnalyzer.
type ExpressionOption func(*ExpressionAnalyzer)

// WithExpressionFrameCap sets how many leading frames are analysed.
func WithExpressionFrameCap(n int) ExpressionOption {
	return func(e *ExpressionAnalyzer) {
		if n > 0 {
			e.frameCap = n
		}
	}
}

// WithFaceIndices overrides the landmark indices for a different face model.
func WithFaceIndices(idx FaceIndices) ExpressionOption {
	return func(e *ExpressionAnalyzer) {
		if idx.UpperLip >= 0 && idx.LowerLip >= 0 && idx.EyeTop >= 0 && idx.EyeBottom >= 0 {
			e.indices = idx
		}
	}
}

// NewExpressionAnalyzer creates an ExpressionAnalyzer with defaults.
func NewExpressionAnalyzer(opts ...ExpressionOption) *ExpressionAnalyzer {
	e := &ExpressionAnalyzer{
		frameCap: DefaultExpressionFrameCap,
		indices: FaceIndices{
			UpperLip:  DefaultUpperLipIndex,
			LowerLip:  DefaultLowerLipIndex,
			EyeTop:    DefaultEyeTopIndex,
			EyeBottom: DefaultEyeBottomIndex,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze scores the first capFrames frames in capture order. A capFrames
// of zero or less uses the analyzer's configured cap. Frames that do not
// reach the configured indices count as no face.
func (e *ExpressionAnalyzer) Analyze(frames []LandmarkFrame, capFrames int) ExpressionReport {
	if capFrames <= 0 {
		capFrames = e.frameCap
	}
	var intensities []float64
	for _, f := range truncate(frames, capFrames) {
		v, ok := e.intensity(f)
		if ok {
			intensities = append(intensities, v)
		}
	}
	if len(intensities) == 0 {
		return DefaultExpressionReport
	}

	avg, rng := mean(intensities), spread(intensities)
	return ExpressionReport{
		EmotionRange:   clamp(emotionRangeBase + rng*emotionRangeFactor),
		Authenticity:   clamp(authenticityBase + avg*authenticityFactor),
		CameraPresence: clamp(presenceBase + avg*presenceMeanFactor + rng*presenceSpreadFactor),
		Detected:       true,
	}
}

func (e *ExpressionAnalyzer) intensity(f LandmarkFrame) (float64, bool) {
	if len(f.Points) <= e.indices.maxIndex() {
		return 0, false
	}
	lipUp, lipDown := f.Points[e.indices.UpperLip], f.Points[e.indices.LowerLip]
	eyeUp, eyeDown := f.Points[e.indices.EyeTop], f.Points[e.indices.EyeBottom]
	for _, p := range []Point{lipUp, lipDown, eyeUp, eyeDown} {
		if !p.finite() {
			return 0, false
		}
	}
	mouth := math.Abs(lipUp.Y - lipDown.Y)
	eye := math.Abs(eyeUp.Y - eyeDown.Y)
	return (mouth + eye) * intensityScale, true
}
