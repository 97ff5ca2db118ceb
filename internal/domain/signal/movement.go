package signal

import (
	"fmt"
	"math"
)

// Movement analysis constants.
const (
	DefaultMovementFrameCap = 30

	fluidityBase        = 50.0
	fluidityFactor      = 500.0
	precisionStdFactor  = 1000.0
	creativityFluidity  = 0.8
	creativityStdFactor = 200.0
)

// DefaultMovementReport is returned when fewer than two frames carry a pose.
var DefaultMovementReport = MovementReport{
	Fluidity:   75,
	Precision:  75,
	RhythmSync: 75,
	Creativity: 70,
}

// MovementAnalyzer scores body movement from pose landmark frames.
type MovementAnalyzer struct {
	frameCap int
}

// MovementOption configures a MovementAnalyzer.
type MovementOption func(*MovementAnalyzer)

// WithMovementFrameCap sets how many leading frames are analysed.
func WithMovementFrameCap(n int) MovementOption {
	return func(m *MovementAnalyzer) {
		if n > 0 {
			m.frameCap = n
		}
	}
}

// NewMovementAnalyzer creates a MovementAnalyzer with defaults.
func NewMovementAnalyzer(opts ...MovementOption) *MovementAnalyzer {
	m := &MovementAnalyzer{frameCap: DefaultMovementFrameCap}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Analyze scores the first capFrames frames in capture order. A capFrames
// of zero or less uses the analyzer's configured cap.
func (m *MovementAnalyzer) Analyze(frames []LandmarkFrame, capFrames int) MovementReport {
	if capFrames <= 0 {
		capFrames = m.frameCap
	}
	deltas, err := frameDeltas(truncate(frames, capFrames))
	if err != nil {
		return DefaultMovementReport
	}

	avg, std := mean(deltas), popStd(deltas)
	fluidity := clamp(fluidityBase + avg*fluidityFactor)
	precision := clamp(100 - std*precisionStdFactor)
	return MovementReport{
		Fluidity:   fluidity,
		Precision:  precision,
		RhythmSync: clamp((fluidity + precision) / 2),
		Creativity: clamp(fluidity*creativityFluidity + std*creativityStdFactor),
		Detected:   true,
	}
}

func truncate(frames []LandmarkFrame, n int) []LandmarkFrame {
	if len(frames) > n {
		return frames[:n]
	}
	return frames
}

// frameDeltas returns, for each consecutive pair of detected frames, the
// mean absolute coordinate change across the points both frames track.
func frameDeltas(frames []LandmarkFrame) ([]float64, error) {
	var prev *LandmarkFrame
	var out []float64
	for i := range frames {
		cur := &frames[i]
		if !cur.Detected() {
			continue
		}
		if prev != nil {
			d, err := meanAbsDelta(prev.Points, cur.Points)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		prev = cur
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: fewer than two frames with landmarks", ErrSignalExtraction)
	}
	return out, nil
}

func meanAbsDelta(a, b []Point) (float64, error) {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		if !a[i].finite() || !b[i].finite() {
			return 0, fmt.Errorf("%w: non-finite landmark", ErrSignalExtraction)
		}
		sum += math.Abs(b[i].X-a[i].X) + math.Abs(b[i].Y-a[i].Y) + math.Abs(b[i].Z-a[i].Z)
	}
	return sum / float64(3*n), nil
}
