package loadtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/talentscore/pkg/logger"
)

// WorkerChannelMultiplier sizes the request channel per worker.
const WorkerChannelMultiplier = 2

// collector accumulates per-request observations from concurrent workers.
type collector struct {
	mu        sync.Mutex
	latencies []time.Duration
	scores    []float64

	submitted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

func (c *collector) success(latency time.Duration, score float64) {
	c.submitted.Add(1)
	c.succeeded.Add(1)
	c.mu.Lock()
	c.latencies = append(c.latencies, latency)
	c.scores = append(c.scores, score)
	c.mu.Unlock()
}

func (c *collector) failure() {
	c.submitted.Add(1)
	c.failed.Add(1)
}

// submitVideos posts every video to /analyze/video with cfg.Workers
// concurrent clients.
func submitVideos(ctx context.Context, cfg Config, client *HTTPClient, videos []Video) *collector {
	log := logger.Named("loadtest")
	log.Info(ctx, "submitting videos", logger.Int("videos", len(videos)), logger.Int("workers", cfg.Workers))

	url := cfg.BaseURL + "/analyze/video"
	col := &collector{
		latencies: make([]time.Duration, 0, len(videos)),
		scores:    make([]float64, 0, len(videos)),
	}

	videoChan := make(chan Video, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range videoChan {
				start := time.Now()
				var a Assessment
				status, err := client.PostJSON(ctx, url, v, &a)
				if err != nil {
					col.failure()
					if cfg.Verbose {
						log.Warn(ctx, "analysis failed",
							logger.String("videoId", v.VideoID),
							logger.Int("status", status),
							logger.Error(err))
					}
					continue
				}
				col.success(time.Since(start), a.PerformanceScore)
			}
		}()
	}

	go func() {
		defer close(videoChan)
		for _, v := range videos {
			select {
			case <-ctx.Done():
				return
			case videoChan <- v:
			}
		}
	}()

	wg.Wait()
	log.Info(ctx, "video submission completed",
		logger.Int64("succeeded", col.succeeded.Load()),
		logger.Int64("failed", col.failed.Load()))
	return col
}

// batchTotals counts batch receipt entries.
type batchTotals struct {
	Calls      int
	Failed     int
	Queued     int
	Duplicates int
	Rejected   int
}

// submitBatches posts videos to /analyze/batch in chunks of size.
func submitBatches(ctx context.Context, cfg Config, client *HTTPClient, videos []Video) batchTotals {
	log := logger.Named("loadtest")
	url := cfg.BaseURL + "/analyze/batch"

	var totals batchTotals
	for start := 0; start < len(videos); start += cfg.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+cfg.BatchSize, len(videos))
		var receipt BatchReceipt
		totals.Calls++
		if _, err := client.PostJSON(ctx, url, map[string]any{"videos": videos[start:end]}, &receipt); err != nil {
			totals.Failed++
			log.Warn(ctx, "batch submission failed", logger.Int("offset", start), logger.Error(err))
			continue
		}
		totals.Queued += len(receipt.Queued)
		totals.Duplicates += len(receipt.Duplicates)
		totals.Rejected += len(receipt.Rejected)
	}
	log.Info(ctx, "batch submission completed",
		logger.Int("calls", totals.Calls),
		logger.Int("queued", totals.Queued),
		logger.Int("duplicates", totals.Duplicates),
		logger.Int("rejected", totals.Rejected))
	return totals
}
