// Package config defines service configuration and its loading layers.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/talentscore/internal/domain/scoring"
	"github.com/okian/talentscore/internal/domain/signal"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Vision inference.
	VisionEnabled      bool   `koanf:"vision_enabled"`
	VisionBaseURL      string `koanf:"vision_base_url"`
	VisionAPIKey       string `koanf:"vision_api_key"`
	VisionModel        string `koanf:"vision_model"`
	VisionReferer      string `koanf:"vision_referer"`
	VisionTitle        string `koanf:"vision_title"`
	VisionTimeoutMS    int    `koanf:"vision_timeout_ms"`
	VisionMaxTokens    int    `koanf:"vision_max_tokens"`
	VisionImageDetail  string `koanf:"vision_image_detail"`
	VisionInlineImages bool   `koanf:"vision_inline_images"`

	// Circuit breaker in front of the inference service.
	BreakerFailures      int `koanf:"breaker_failures"`
	BreakerOpenTimeoutMS int `koanf:"breaker_open_timeout_ms"`
	BreakerHalfOpenCalls int `koanf:"breaker_half_open_calls"`

	// Media access.
	MediaFetchTimeoutMS int    `koanf:"media_fetch_timeout_ms"`
	MaxImageBytes       int64  `koanf:"max_image_bytes"`
	ThumbnailFile       string `koanf:"thumbnail_file"`
	FFmpegBinary        string `koanf:"ffmpeg_binary"`

	// Signal analysis caps.
	AudioWindowSeconds int `koanf:"audio_window_seconds"`
	AudioSampleRate    int `koanf:"audio_sample_rate"`
	MovementFrameCap   int `koanf:"movement_frame_cap"`
	FaceFrameCap       int `koanf:"face_frame_cap"`

	// Heuristic tuning.
	HeuristicBaseline        float64 `koanf:"heuristic_baseline"`
	HeuristicBaseNoise       float64 `koanf:"heuristic_base_noise"`
	HeuristicLongSeconds     float64 `koanf:"heuristic_long_seconds"`
	HeuristicLongBonus       float64 `koanf:"heuristic_long_bonus"`
	HeuristicShortSeconds    float64 `koanf:"heuristic_short_seconds"`
	HeuristicShortPenalty    float64 `koanf:"heuristic_short_penalty"`
	HeuristicExpressionNoise float64 `koanf:"heuristic_expression_noise"`
	HeuristicSeed            int64   `koanf:"heuristic_seed"`

	// Batch processing.
	QueueSize   int `koanf:"queue_size"`
	WorkerCount int `koanf:"worker_count"`
	DedupeSize  int `koanf:"dedupe_size"`

	// TracingEnabled installs an SDK tracer provider exporting to
	// TracingEndpoint at startup.
	TracingEnabled  bool   `koanf:"tracing_enabled"`
	TracingEndpoint string `koanf:"tracing_endpoint"`
}

// New creates a Config populated with defaults.
func New() *Config {
	h := scoring.DefaultHeuristicConfig()
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		VisionEnabled:        true,
		VisionModel:          "openai/gpt-4o-mini",
		VisionTimeoutMS:      10_000,
		VisionMaxTokens:      600,
		VisionImageDetail:    "low",
		VisionInlineImages:   true,
		BreakerFailures:      5,
		BreakerOpenTimeoutMS: 30_000,
		BreakerHalfOpenCalls: 1,
		MediaFetchTimeoutMS:  10_000,
		MaxImageBytes:        8 << 20,
		ThumbnailFile:        "thumbnail.jpg",
		FFmpegBinary:         "ffmpeg",
		AudioWindowSeconds:   signal.DefaultAudioWindowSeconds,
		AudioSampleRate:      signal.DefaultAudioSampleRate,
		MovementFrameCap:     signal.DefaultMovementFrameCap,
		FaceFrameCap:         signal.DefaultExpressionFrameCap,

		HeuristicBaseline:        h.Baseline,
		HeuristicBaseNoise:       h.BaseNoise,
		HeuristicLongSeconds:     h.LongDurationSeconds,
		HeuristicLongBonus:       h.LongDurationBonus,
		HeuristicShortSeconds:    h.ShortDurationSeconds,
		HeuristicShortPenalty:    h.ShortDurationPenalty,
		HeuristicExpressionNoise: h.ExpressionNoise,
		HeuristicSeed:            42,

		QueueSize:   10_000,
		WorkerCount: runtime.NumCPU() * 2,
		DedupeSize:  100_000,

		TracingEndpoint: "http://localhost:14268/api/traces",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.VisionTimeoutMS <= 0:
		return fmt.Errorf("%w: vision_timeout_ms must be positive", ErrInvalidConfig)
	case c.MediaFetchTimeoutMS <= 0:
		return fmt.Errorf("%w: media_fetch_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxImageBytes <= 0:
		return fmt.Errorf("%w: max_image_bytes must be positive", ErrInvalidConfig)
	case c.MovementFrameCap <= 0 || c.FaceFrameCap <= 0 || c.AudioWindowSeconds <= 0:
		return fmt.Errorf("%w: signal caps must be positive", ErrInvalidConfig)
	case c.HeuristicBaseNoise < 0 || c.HeuristicExpressionNoise < 0:
		return fmt.Errorf("%w: heuristic noise must not be negative", ErrInvalidConfig)
	case c.QueueSize <= 0 || c.WorkerCount <= 0 || c.DedupeSize <= 0:
		return fmt.Errorf("%w: queue_size, worker_count and dedupe_size must be positive", ErrInvalidConfig)
	case c.TracingEnabled && strings.TrimSpace(c.TracingEndpoint) == "":
		return fmt.Errorf("%w: tracing_endpoint required when tracing is enabled", ErrInvalidConfig)
	}
	return nil
}

// VisionTimeout returns the inference deadline.
func (c *Config) VisionTimeout() time.Duration {
	return time.Duration(c.VisionTimeoutMS) * time.Millisecond
}

// MediaFetchTimeout returns the thumbnail fetch deadline.
func (c *Config) MediaFetchTimeout() time.Duration {
	return time.Duration(c.MediaFetchTimeoutMS) * time.Millisecond
}

// BreakerOpenTimeout returns how long the breaker stays open.
func (c *Config) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.BreakerOpenTimeoutMS) * time.Millisecond
}

// VisionConfigured reports whether vision scoring can be attempted.
func (c *Config) VisionConfigured() bool {
	return c.VisionEnabled && strings.TrimSpace(c.VisionAPIKey) != ""
}

// Heuristic maps the heuristic settings onto scoring.HeuristicConfig. The
// quality and timing spreads keep their stock values.
func (c *Config) Heuristic() scoring.HeuristicConfig {
	h := scoring.DefaultHeuristicConfig()
	h.Baseline = c.HeuristicBaseline
	h.BaseNoise = c.HeuristicBaseNoise
	h.LongDurationSeconds = c.HeuristicLongSeconds
	h.LongDurationBonus = c.HeuristicLongBonus
	h.ShortDurationSeconds = c.HeuristicShortSeconds
	h.ShortDurationPenalty = c.HeuristicShortPenalty
	h.ExpressionNoise = c.HeuristicExpressionNoise
	return h
}
