// Package loadtest drives concurrent analysis traffic against a running
// service and summarizes latency and score distributions.
package loadtest

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid load test config")

// Config holds configuration for a load test run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumVideos   int           // Number of synthetic videos
	Workers     int           // Concurrent /analyze/video clients
	Timeout     time.Duration // Per-request timeout
	BatchSize   int           // Videos per /analyze/batch call; 0 skips the batch phase
	WithSignals bool          // Attach synthetic pose and face frames
	Seed        uint64        // Generator seed
	OutputFile  string        // Where to save generated requests; empty skips
	Verbose     bool          // Log every failed request
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("%w: base URL is empty", ErrInvalidConfig)
	case c.NumVideos <= 0:
		return fmt.Errorf("%w: videos must be positive", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	case c.BatchSize < 0:
		return fmt.Errorf("%w: batch size must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Point is one landmark coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Frame is one landmark frame.
type Frame struct {
	Points []Point `json:"points"`
}

// Signals carries optional raw signals for a video.
type Signals struct {
	Pose []Frame `json:"pose,omitempty"`
	Face []Frame `json:"face,omitempty"`
}

// Video is one synthetic /analyze/video request.
type Video struct {
	VideoID    string   `json:"videoId"`
	VideoURL   string   `json:"videoUrl"`
	Duration   float64  `json:"duration"`
	CategoryID string   `json:"categoryId"`
	Signals    *Signals `json:"signals,omitempty"`
}

// Assessment is the subset of the analysis response the load test reads.
type Assessment struct {
	PerformanceScore float64  `json:"performanceScore"`
	CategoryTags     []string `json:"categoryTags"`
}

// QueuedJob is one accepted batch entry.
type QueuedJob struct {
	JobID   string `json:"jobId"`
	VideoID string `json:"videoId"`
}

// Rejection is one refused batch entry.
type Rejection struct {
	Index   int    `json:"index"`
	VideoID string `json:"videoId"`
	Reason  string `json:"reason"`
}

// BatchReceipt is the /analyze/batch response.
type BatchReceipt struct {
	Queued     []QueuedJob `json:"queued"`
	Duplicates []string    `json:"duplicates"`
	Rejected   []Rejection `json:"rejected"`
}
