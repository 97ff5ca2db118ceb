package assessment

import "math"

// Score bounds shared by every numeric field of an Assessment.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Normalize clamps v into [0,100] and rounds to one decimal place.
// NaN collapses to 0 so downstream comparisons stay total.
func Normalize(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	v = math.Max(MinScore, math.Min(MaxScore, v))
	return math.Round(v*10) / 10
}

// NormalizeOptional normalizes a present value and keeps absence.
func NormalizeOptional(v Optional[float64]) Optional[float64] {
	f, ok := v.Get()
	if !ok {
		return v
	}
	return Some(Normalize(f))
}

// Mean returns the arithmetic mean of vals, or 0 for none.
func Mean(vals ...float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
