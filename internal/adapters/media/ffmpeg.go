package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/talentscore/internal/domain/signal"
)

const pcmFullScale = 32768.0

// NetworkProtocols limits ffmpeg to fetching remote media.
var NetworkProtocols = []string{"http", "https", "tcp", "tls"}

// DecoderOption configures an FFmpegDecoder.
type DecoderOption func(*FFmpegDecoder)

// WithProtocols restricts the protocols ffmpeg may open for input.
func WithProtocols(protocols ...string) DecoderOption {
	return func(d *FFmpegDecoder) {
		d.protocols = slices.Clone(protocols)
	}
}

// FFmpegDecoder extracts mono PCM audio with the ffmpeg binary.
type FFmpegDecoder struct {
	binary     string
	maxSeconds int
	protocols  []string
}

// NewFFmpegDecoder creates a decoder. An empty binary means "ffmpeg" on
// PATH; maxSeconds limits how much audio is decoded. Without WithProtocols
// ffmpeg may open any input, including local files.
func NewFFmpegDecoder(binary string, maxSeconds int, opts ...DecoderOption) *FFmpegDecoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if maxSeconds <= 0 {
		maxSeconds = signal.DefaultAudioWindowSeconds
	}
	d := &FFmpegDecoder{binary: binary, maxSeconds: maxSeconds}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode implements signal.WaveformDecoder.
func (d *FFmpegDecoder) Decode(ctx context.Context, locator string, sampleRate int) (signal.Waveform, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return signal.Waveform{}, fmt.Errorf("%w: empty locator", ErrDecode)
	}
	if sampleRate <= 0 {
		sampleRate = signal.DefaultAudioSampleRate
	}
	cmd := exec.CommandContext(ctx, d.binary, d.args(locator, sampleRate)...) //nolint:gosec // binary comes from config
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return signal.Waveform{}, fmt.Errorf("%w: ffmpeg: %w: %s", ErrDecode, err, strings.TrimSpace(stderr.String()))
	}
	return signal.Waveform{Samples: DecodePCM16(stdout.Bytes()), SampleRate: sampleRate}, nil
}

func (d *FFmpegDecoder) args(locator string, sampleRate int) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if len(d.protocols) > 0 {
		args = append(args, "-protocol_whitelist", strings.Join(d.protocols, ","))
	}
	return append(args,
		"-t", strconv.Itoa(d.maxSeconds),
		"-i", locator,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	)
}

// DecodePCM16 converts little-endian signed 16-bit PCM to samples in
// [-1, 1). A trailing odd byte is ignored.
func DecodePCM16(raw []byte) []float64 {
	out := make([]float64, len(raw)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		out[i] = float64(v) / pcmFullScale
	}
	return out
}
