package signal

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Audio analysis defaults.
const (
	DefaultAudioWindowSeconds = 60
	DefaultAudioSampleRate    = 22050
	MaxAudioSampleRate        = 384000
	defaultFrameSize          = 2048
	defaultHopSize            = 512
	defaultMinPitchHz         = 60.0
	defaultMaxPitchHz         = 1000.0
	defaultVoicingThreshold   = 0.3

	neutralPitch  = 70.0
	neutralRhythm = 70.0

	pitchStdDivisor   = 10.0
	rhythmStdFactor   = 50.0
	clarityBase       = 50.0
	clarityDivisor    = 100.0
	dynamicsBase      = 50.0
	dynamicsStdFactor = 200.0
	onsetSensitivity  = 0.5
)

// DefaultAudioReport is returned when no features can be extracted.
var DefaultAudioReport = AudioReport{
	PitchAccuracy: 75,
	RhythmScore:   75,
	Clarity:       75,
	Dynamics:      70,
	Expression:    72.5,
}

// AudioOption configures an AudioAnalyzer.
type AudioOption func(*AudioAnalyzer)

// WithAudioWindow caps the analysed audio to the first seconds.
func WithAudioWindow(seconds int) AudioOption {
	return func(a *AudioAnalyzer) {
		if seconds > 0 {
			a.windowSeconds = seconds
		}
	}
}

// WithFraming sets the analysis frame and hop sizes in samples.
func WithFraming(frameSize, hopSize int) AudioOption {
	return func(a *AudioAnalyzer) {
		if frameSize > 0 && hopSize > 0 && hopSize <= frameSize {
			a.frameSize = frameSize
			a.hopSize = hopSize
		}
	}
}

// WithPitchRange bounds the fundamental frequency search in Hz.
func WithPitchRange(minHz, maxHz float64) AudioOption {
	return func(a *AudioAnalyzer) {
		if minHz > 0 && maxHz > minHz {
			a.minPitchHz = minHz
			a.maxPitchHz = maxHz
		}
	}
}

// WithDecodeSampleRate sets the sample rate requested from a WaveformDecoder.
func WithDecodeSampleRate(rate int) AudioOption {
	return func(a *AudioAnalyzer) {
		if rate > 0 {
			a.decodeRate = rate
		}
	}
}

// AudioAnalyzer scores pitch stability, rhythm regularity, clarity and
// dynamics of a waveform. It holds no per-call state and is safe for
// concurrent use.
type AudioAnalyzer struct {
	windowSeconds int
	frameSize     int
	hopSize       int
	minPitchHz    float64
	maxPitchHz    float64
	decodeRate    int
}

// NewAudioAnalyzer creates an AudioAnalyzer with defaults.
func NewAudioAnalyzer(opts ...AudioOption) *AudioAnalyzer {
	a := &AudioAnalyzer{
		windowSeconds: DefaultAudioWindowSeconds,
		frameSize:     defaultFrameSize,
		hopSize:       defaultHopSize,
		minPitchHz:    defaultMinPitchHz,
		maxPitchHz:    defaultMaxPitchHz,
		decodeRate:    DefaultAudioSampleRate,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores w. Unusable input yields DefaultAudioReport.
func (a *AudioAnalyzer) Analyze(w Waveform) AudioReport {
	report, err := a.analyze(w)
	if err != nil {
		return DefaultAudioReport
	}
	return report
}

// AnalyzeSource decodes locator with dec and scores the result. Decode
// failures yield DefaultAudioReport.
func (a *AudioAnalyzer) AnalyzeSource(ctx context.Context, dec WaveformDecoder, locator string) AudioReport {
	w, err := dec.Decode(ctx, locator, a.decodeRate)
	if err != nil {
		return DefaultAudioReport
	}
	return a.Analyze(w)
}

func (a *AudioAnalyzer) analyze(w Waveform) (AudioReport, error) {
	if w.SampleRate <= 0 || w.SampleRate > MaxAudioSampleRate {
		return AudioReport{}, fmt.Errorf("%w: sample rate %d", ErrSignalExtraction, w.SampleRate)
	}
	if len(w.Samples) == 0 {
		return AudioReport{}, fmt.Errorf("%w: %w", ErrSignalExtraction, ErrEmptySignal)
	}
	samples := w.Samples
	if len(samples)/w.SampleRate >= a.windowSeconds {
		samples = samples[:a.windowSeconds*w.SampleRate]
	}
	for _, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return AudioReport{}, fmt.Errorf("%w: non-finite sample", ErrSignalExtraction)
		}
	}

	frames := a.frames(samples)
	rms := make([]float64, len(frames))
	centroids := make([]float64, 0, len(frames))
	pitches := make([]float64, len(frames))
	voiced := make([]bool, len(frames))

	fft := fourier.NewFFT(a.frameSize)
	buf := make([]float64, a.frameSize)
	for i, f := range frames {
		rms[i] = frameRMS(f)
		pitches[i], voiced[i] = a.pitch(f, w.SampleRate)

		clear(buf)
		copy(buf, f)
		if c, ok := spectralCentroid(fft, window.Hann(buf), w.SampleRate); ok {
			centroids = append(centroids, c)
		}
	}

	// Only frames at least as loud as the median carry reliable pitch.
	gate := median(rms)
	reliable := make([]float64, 0, len(frames))
	for i := range frames {
		if voiced[i] && rms[i] >= gate {
			reliable = append(reliable, pitches[i])
		}
	}

	pitchAccuracy := neutralPitch
	if len(reliable) > 0 {
		pitchAccuracy = 100 - math.Min(100, popStd(reliable)/pitchStdDivisor)
	}

	rhythm := neutralRhythm
	if beats := a.beats(rms, w.SampleRate); len(beats) >= 2 {
		ibi := make([]float64, len(beats)-1)
		for i := 1; i < len(beats); i++ {
			ibi[i-1] = beats[i] - beats[i-1]
		}
		rhythm = 100 - math.Min(100, popStd(ibi)*rhythmStdFactor)
	}

	clarity := clarityBase + mean(centroids)/clarityDivisor
	dynamics := dynamicsBase + popStd(rms)*dynamicsStdFactor

	pitchAccuracy = clamp(pitchAccuracy)
	dynamics = clamp(dynamics)
	return AudioReport{
		PitchAccuracy: pitchAccuracy,
		RhythmScore:   clamp(rhythm),
		Clarity:       clamp(clarity),
		Dynamics:      dynamics,
		Expression:    clamp((pitchAccuracy + dynamics) / 2),
		Detected:      len(reliable) > 0,
	}, nil
}

// frames splits samples into overlapping frames. A buffer shorter than one
// frame is analysed as a single frame.
func (a *AudioAnalyzer) frames(samples []float64) [][]float64 {
	if len(samples) <= a.frameSize {
		return [][]float64{samples}
	}
	out := make([][]float64, 0, (len(samples)-a.frameSize)/a.hopSize+1)
	for start := 0; start+a.frameSize <= len(samples); start += a.hopSize {
		out = append(out, samples[start:start+a.frameSize])
	}
	return out
}

func frameRMS(f []float64) float64 {
	if len(f) == 0 {
		return 0
	}
	var sum float64
	for _, s := range f {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(f)))
}

// pitch estimates the fundamental frequency of f by autocorrelation.
func (a *AudioAnalyzer) pitch(f []float64, sampleRate int) (float64, bool) {
	minLag := int(float64(sampleRate) / a.maxPitchHz)
	maxLag := int(float64(sampleRate) / a.minPitchHz)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(f) {
		maxLag = len(f) - 1
	}
	if minLag > maxLag {
		return 0, false
	}

	var energy float64
	for _, s := range f {
		energy += s * s
	}
	if energy == 0 {
		return 0, false
	}

	bestLag, best := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var r float64
		for i := 0; i+lag < len(f); i++ {
			r += f[i] * f[i+lag]
		}
		if r > best {
			best, bestLag = r, lag
		}
	}
	if bestLag == 0 || best/energy < defaultVoicingThreshold {
		return 0, false
	}
	return float64(sampleRate) / float64(bestLag), true
}

// spectralCentroid returns the magnitude weighted mean frequency in Hz.
func spectralCentroid(fft *fourier.FFT, frame []float64, sampleRate int) (float64, bool) {
	coeffs := fft.Coefficients(nil, frame)
	var num, den float64
	for i, c := range coeffs {
		mag := cmplx.Abs(c)
		num += fft.Freq(i) * float64(sampleRate) * mag
		den += mag
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// beats picks onset peaks from the positive flux of the RMS envelope and
// returns their times in seconds.
func (a *AudioAnalyzer) beats(rms []float64, sampleRate int) []float64 {
	if len(rms) < 3 {
		return nil
	}
	flux := make([]float64, len(rms))
	for i := 1; i < len(rms); i++ {
		flux[i] = math.Max(0, rms[i]-rms[i-1])
	}
	threshold := mean(flux) + onsetSensitivity*popStd(flux)
	hop := float64(a.hopSize) / float64(sampleRate)

	var out []float64
	for i := 1; i < len(flux)-1; i++ {
		if flux[i] > 0 && flux[i] > threshold && flux[i] > flux[i-1] && flux[i] >= flux[i+1] {
			out = append(out, float64(i)*hop)
		}
	}
	return out
}
