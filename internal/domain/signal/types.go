// Package signal derives deterministic sub-scores from raw performance
// signals: an audio waveform, a pose landmark sequence and a face landmark
// sequence. Analyzers never fail; unusable input yields a documented
// default report with Detected set to false.
package signal

import (
	"context"
	"math"
)

// Waveform is a mono PCM buffer with samples in [-1, 1].
type Waveform struct {
	Samples    []float64 `json:"samples"`
	SampleRate int       `json:"sampleRate"`
}

// Duration returns the length of the waveform in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// WaveformDecoder turns a media locator into a waveform resampled to
// sampleRate. Implementations must honor ctx cancellation.
type WaveformDecoder interface {
	Decode(ctx context.Context, locator string, sampleRate int) (Waveform, error)
}

// Point is one tracked landmark in normalized image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// LandmarkFrame holds the landmarks detected in one video frame. A frame
// without points means nothing was detected.
type LandmarkFrame struct {
	Points []Point `json:"points"`
}

// Detected reports whether the frame carries any landmark.
func (f LandmarkFrame) Detected() bool { return len(f.Points) > 0 }

// Bundle groups the optional raw signals that accompany a video.
type Bundle struct {
	Audio *Waveform       `json:"audio,omitempty"`
	Pose  []LandmarkFrame `json:"pose,omitempty"`
	Face  []LandmarkFrame `json:"face,omitempty"`
}

// Empty reports whether the bundle carries no signal at all.
func (b Bundle) Empty() bool {
	return b.Audio == nil && len(b.Pose) == 0 && len(b.Face) == 0
}

// AudioReport holds audio sub-scores.
type AudioReport struct {
	PitchAccuracy float64 `json:"pitchAccuracy"`
	RhythmScore   float64 `json:"rhythmScore"`
	Clarity       float64 `json:"clarity"`
	Dynamics      float64 `json:"dynamics"`
	Expression    float64 `json:"expression"`
	Detected      bool    `json:"detected"`
}

// Composite is the mean of all audio sub-scores.
func (r AudioReport) Composite() float64 {
	return mean([]float64{r.PitchAccuracy, r.RhythmScore, r.Clarity, r.Dynamics, r.Expression})
}

// MovementReport holds body movement sub-scores.
type MovementReport struct {
	Fluidity   float64 `json:"fluidity"`
	Precision  float64 `json:"precision"`
	RhythmSync float64 `json:"rhythmSync"`
	Creativity float64 `json:"creativity"`
	Detected   bool    `json:"detected"`
}

// Composite is the mean of all movement sub-scores.
func (r MovementReport) Composite() float64 {
	return mean([]float64{r.Fluidity, r.Precision, r.RhythmSync, r.Creativity})
}

// ExpressionReport holds facial expression sub-scores.
type ExpressionReport struct {
	EmotionRange   float64 `json:"emotionRange"`
	Authenticity   float64 `json:"authenticity"`
	CameraPresence float64 `json:"cameraPresence"`
	Detected       bool    `json:"detected"`
}

// Composite is the mean of all expression sub-scores.
func (r ExpressionReport) Composite() float64 {
	return mean([]float64{r.EmotionRange, r.Authenticity, r.CameraPresence})
}
