package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/talentscore/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes the complete load test and renders the summary to out.
func Run(ctx context.Context, cfg Config, out io.Writer) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	log := logger.Named("loadtest")
	log.Info(ctx, "starting load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("videos", cfg.NumVideos),
		logger.Int("workers", cfg.Workers),
		logger.Int("batchSize", cfg.BatchSize),
		logger.Bool("signals", cfg.WithSignals))

	client := newHTTPClient(cfg.Timeout)
	if err := checkServiceHealth(ctx, client, cfg.BaseURL); err != nil {
		return Summary{}, fmt.Errorf("service health check failed: %w", err)
	}

	videos := NewGenerator(cfg.Seed, cfg.WithSignals).Videos(cfg.NumVideos)
	if cfg.OutputFile != "" {
		if err := saveVideos(cfg.OutputFile, videos); err != nil {
			log.Warn(ctx, "failed to save generated videos", logger.Error(err))
		}
	}

	start := time.Now()
	col := submitVideos(ctx, cfg, client, videos)
	elapsed := time.Since(start)

	var batch batchTotals
	if cfg.BatchSize > 0 {
		batch = submitBatches(ctx, cfg, client, videos)
	}

	summary := summarize(col, batch, elapsed)
	if out != nil {
		summary.Render(out)
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	log.Info(ctx, "load test completed",
		logger.Float64("successRate", summary.SuccessRate()),
		logger.Float64("throughput", summary.Throughput))
	return summary, nil
}

// checkServiceHealth verifies the service answers /health.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	resp, err := client.Get(ctx, baseURL+"/health")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	var health struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode health: %w", err)
	}
	logger.Named("loadtest").Info(ctx, "service health",
		logger.String("status", health.Status),
		logger.Any("services", health.Services))
	return nil
}

// saveVideos writes the generated requests as a JSON array.
func saveVideos(filename string, videos []Video) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal videos: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}
