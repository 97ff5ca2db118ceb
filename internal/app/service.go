// Package service wires the analysis pipeline together and implements the
// dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/okian/talentscore/internal/adapters/inference"
	"github.com/okian/talentscore/internal/adapters/media"
	"github.com/okian/talentscore/internal/adapters/mq/queue"
	"github.com/okian/talentscore/internal/adapters/mq/worker"
	"github.com/okian/talentscore/internal/config"
	"github.com/okian/talentscore/internal/domain/assessment"
	"github.com/okian/talentscore/internal/domain/dedupe"
	"github.com/okian/talentscore/internal/domain/model"
	"github.com/okian/talentscore/internal/domain/orchestrator"
	"github.com/okian/talentscore/internal/domain/scoring"
	"github.com/okian/talentscore/internal/domain/signal"
	"github.com/okian/talentscore/pkg/logger"
	"github.com/okian/talentscore/pkg/metrics"
)

// Sentinel errors returned to the request layer.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotStarted     = errors.New("service not started")
)

// Health statuses.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusReady    = "ready"
)

// VideoRequest is one video analysis, optionally with raw signals.
type VideoRequest struct {
	assessment.Request
	// AudioLocator is decoded with ffmpeg when set and no waveform is given.
	AudioLocator string
	Bundle       signal.Bundle
}

// Validate checks the required identifiers.
func (r VideoRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.VideoID) == "":
		return fmt.Errorf("%w: videoId is required", ErrInvalidRequest)
	case strings.TrimSpace(r.VideoLocator) == "":
		return fmt.Errorf("%w: videoUrl is required", ErrInvalidRequest)
	}
	if d, ok := r.Duration.Get(); ok && d < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidRequest)
	}
	return nil
}

// VideoResult is the outcome of AnalyzeVideo.
type VideoResult struct {
	Assessment assessment.Assessment
	Signals    orchestrator.Signals
}

// QueuedJob identifies an accepted batch entry.
type QueuedJob struct {
	JobID   string `json:"jobId"`
	VideoID string `json:"videoId"`
}

// Rejection explains why a batch entry was not queued.
type Rejection struct {
	Index   int    `json:"index"`
	VideoID string `json:"videoId,omitempty"`
	Reason  string `json:"reason"`
}

// BatchReceipt summarizes a batch submission.
type BatchReceipt struct {
	Queued     []QueuedJob `json:"queued"`
	Duplicates []string    `json:"duplicates"`
	Rejected   []Rejection `json:"rejected"`
}

// Service owns the orchestrator, the analyzers and the batch pipeline.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	orch       *orchestrator.Orchestrator
	audio      *signal.AudioAnalyzer
	movement   *signal.MovementAnalyzer
	expression *signal.ExpressionAnalyzer
	decoder    signal.WaveformDecoder

	clientMu sync.Mutex
	client   *inference.Client

	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	// Injected collaborators.
	inferenceClient scoring.InferenceClient
	noise           scoring.NoiseSource
	sink            worker.Sink

	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithInferenceClient replaces the HTTP inference client. Vision scoring is
// then enabled regardless of the configured API key.
func WithInferenceClient(c scoring.InferenceClient) Option {
	return func(s *Service) {
		s.inferenceClient = c
	}
}

// WithDecoder replaces the ffmpeg waveform decoder.
func WithDecoder(d signal.WaveformDecoder) Option {
	return func(s *Service) {
		if d != nil {
			s.decoder = d
		}
	}
}

// WithNoise sets the heuristic noise source.
func WithNoise(n scoring.NoiseSource) Option {
	return func(s *Service) {
		s.noise = n
	}
}

// WithSink sets where batch results are delivered.
func WithSink(sink worker.Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// New constructs a Service. A nil cfg uses config defaults.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.decoder == nil {
		s.decoder = media.NewFFmpegDecoder(cfg.FFmpegBinary, cfg.AudioWindowSeconds, media.WithProtocols(media.NetworkProtocols...))
	}
	if s.noise == nil {
		s.noise = scoring.NewRandNoise(cfg.HeuristicSeed)
	}

	s.audio = signal.NewAudioAnalyzer(
		signal.WithAudioWindow(cfg.AudioWindowSeconds),
		signal.WithDecodeSampleRate(cfg.AudioSampleRate),
	)
	s.movement = signal.NewMovementAnalyzer(signal.WithMovementFrameCap(cfg.MovementFrameCap))
	s.expression = signal.NewExpressionAnalyzer(signal.WithExpressionFrameCap(cfg.FaceFrameCap))
	s.orch = orchestrator.New(
		orchestrator.WithVisionProvider(s.buildVision),
		orchestrator.WithVisionTimeout(cfg.VisionTimeout()),
		orchestrator.WithHeuristic(scoring.NewHeuristicScorer(
			scoring.WithHeuristicConfig(cfg.Heuristic()),
			scoring.WithNoise(s.noise),
		)),
		orchestrator.WithAudioAnalyzer(s.audio),
		orchestrator.WithMovementAnalyzer(s.movement),
		orchestrator.WithExpressionAnalyzer(s.expression),
		orchestrator.WithThumbnailFile(cfg.ThumbnailFile),
	)
	return s
}

// buildVision runs once, on the first request that has a thumbnail.
func (s *Service) buildVision() (scoring.Scorer, error) {
	client := s.inferenceClient
	if client == nil {
		if !s.cfg.VisionConfigured() {
			s.logger.Info(context.Background(), "vision scoring disabled, using heuristic scores")
			return nil, nil
		}
		c := inference.NewClient(inference.Config{
			APIKey:      s.cfg.VisionAPIKey,
			BaseURL:     s.cfg.VisionBaseURL,
			Model:       s.cfg.VisionModel,
			Referer:     s.cfg.VisionReferer,
			Title:       s.cfg.VisionTitle,
			Timeout:     s.cfg.VisionTimeout(),
			MaxTokens:   s.cfg.VisionMaxTokens,
			ImageDetail: s.cfg.VisionImageDetail,
		}, inference.WithBreaker(inference.BreakerSettings{
			ConsecutiveFailures: uint32(max(s.cfg.BreakerFailures, 0)),       //nolint:gosec // bounded by config validation
			OpenTimeout:         s.cfg.BreakerOpenTimeout(),
			HalfOpenRequests:    uint32(max(s.cfg.BreakerHalfOpenCalls, 0)), //nolint:gosec // bounded by config validation
		}))
		s.clientMu.Lock()
		s.client = c
		s.clientMu.Unlock()
		client = c
	}

	var opts []scoring.VisionOption
	if s.cfg.VisionInlineImages {
		opts = append(opts,
			scoring.WithInliner(media.NewFetcher(
				media.WithMaxBytes(s.cfg.MaxImageBytes),
				media.WithFetchTimeout(s.cfg.MediaFetchTimeout()),
			)),
			scoring.WithInlineTimeout(s.cfg.MediaFetchTimeout()),
		)
	}
	s.logger.Info(context.Background(), "vision scoring enabled", logger.String("model", s.cfg.VisionModel))
	return scoring.NewVisionScorer(client, opts...), nil
}

// Start initializes and starts the batch pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.queue, s.orch, s.sink)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("queueSize", s.cfg.QueueSize),
		logger.Int("dedupeSize", s.cfg.DedupeSize),
		logger.Bool("visionConfigured", s.visionConfigured()),
	)
	return nil
}

// Stop drains queued jobs until ctx expires.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping analysis service...")
	err := s.pool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "analysis service stopped")
	return err
}

// AnalyzeVideo scores one video. It fails only on invalid input; every
// upstream problem degrades to a heuristic assessment.
func (s *Service) AnalyzeVideo(ctx context.Context, req VideoRequest) (VideoResult, error) {
	if err := req.Validate(); err != nil {
		return VideoResult{}, err
	}
	bundle := req.Bundle
	if bundle.Audio == nil && strings.TrimSpace(req.AudioLocator) != "" {
		w, err := s.decoder.Decode(ctx, req.AudioLocator, s.cfg.AudioSampleRate)
		if err != nil {
			s.logger.Warn(ctx, "audio decode failed, skipping audio signal",
				logger.String("videoId", req.VideoID),
				logger.Error(err),
			)
			metrics.RecordErrorByComponent("media", "decode_error")
		} else {
			bundle.Audio = &w
		}
	}
	if bundle.Empty() {
		return VideoResult{Assessment: s.orch.Analyze(ctx, req.Request)}, nil
	}
	a, sig := s.orch.AnalyzeWithSignals(ctx, req.Request, bundle)
	return VideoResult{Assessment: a, Signals: sig}, nil
}

// AnalyzeAudio scores a waveform.
func (s *Service) AnalyzeAudio(_ context.Context, w signal.Waveform) signal.AudioReport {
	r := s.audio.Analyze(w)
	metrics.RecordSignalAnalysis("audio", r.Detected)
	return r
}

// AnalyzeAudioSource decodes locator and scores it.
func (s *Service) AnalyzeAudioSource(ctx context.Context, locator string) signal.AudioReport {
	r := s.audio.AnalyzeSource(ctx, s.decoder, locator)
	metrics.RecordSignalAnalysis("audio", r.Detected)
	return r
}

// AnalyzeMovement scores pose frames. capFrames <= 0 uses the configured cap.
func (s *Service) AnalyzeMovement(_ context.Context, frames []signal.LandmarkFrame, capFrames int) signal.MovementReport {
	r := s.movement.Analyze(frames, capFrames)
	metrics.RecordSignalAnalysis("movement", r.Detected)
	return r
}

// AnalyzeExpression scores face frames. capFrames <= 0 uses the configured cap.
func (s *Service) AnalyzeExpression(_ context.Context, frames []signal.LandmarkFrame, capFrames int) signal.ExpressionReport {
	r := s.expression.Analyze(frames, capFrames)
	metrics.RecordSignalAnalysis("expression", r.Detected)
	return r
}

// SubmitBatch queues every valid, unseen request for background analysis.
func (s *Service) SubmitBatch(ctx context.Context, reqs []assessment.Request) (BatchReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return BatchReceipt{}, ErrNotStarted
	}

	receipt := BatchReceipt{
		Queued:     []QueuedJob{},
		Duplicates: []string{},
		Rejected:   []Rejection{},
	}
	for i, req := range reqs {
		if err := (VideoRequest{Request: req}).Validate(); err != nil {
			receipt.Rejected = append(receipt.Rejected, Rejection{Index: i, VideoID: req.VideoID, Reason: err.Error()})
			continue
		}
		if s.deduper.SeenAndRecord(ctx, req.VideoID) {
			metrics.RecordBatchDuplicate()
			receipt.Duplicates = append(receipt.Duplicates, req.VideoID)
			continue
		}
		job := model.NewJob(req)
		if err := s.queue.TryEnqueue(ctx, job); err != nil {
			s.deduper.Unrecord(ctx, req.VideoID)
			receipt.Rejected = append(receipt.Rejected, Rejection{Index: i, VideoID: req.VideoID, Reason: err.Error()})
			continue
		}
		receipt.Queued = append(receipt.Queued, QueuedJob{JobID: job.ID, VideoID: req.VideoID})
	}
	s.logger.Debug(ctx, "batch submitted",
		logger.Int("queued", len(receipt.Queued)),
		logger.Int("duplicates", len(receipt.Duplicates)),
		logger.Int("rejected", len(receipt.Rejected)),
	)
	return receipt, nil
}

// Health reports per-dependency status.
func (s *Service) Health(_ context.Context) (string, map[string]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	services := map[string]string{
		"heuristic": StatusReady,
		"vision":    "unconfigured",
		"queue":     "stopped",
		"ffmpeg":    "unavailable",
	}
	status := StatusHealthy
	if s.visionConfigured() {
		services["vision"] = StatusReady
		if c := s.visionClient(); c != nil {
			if state := c.State(); state != "closed" {
				services["vision"] = "breaker-" + state
				status = StatusDegraded
			}
		}
	}
	if s.started {
		services["queue"] = StatusReady
	} else {
		status = StatusDegraded
	}
	if _, err := exec.LookPath(s.cfg.FFmpegBinary); err == nil {
		services["ffmpeg"] = StatusReady
	}
	return status, services
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":          s.started,
		"visionConfigured": s.visionConfigured(),
		"workerCount":      s.cfg.WorkerCount,
		"queueCapacity":    s.cfg.QueueSize,
		"dedupeCapacity":   s.cfg.DedupeSize,
	}
	if s.started {
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		stats["queueLength"] = s.queue.Len()
		stats["dedupeSize"] = s.deduper.Size()
		stats["workers"] = s.pool.Stats()
	}
	return stats
}

func (s *Service) visionClient() *inference.Client {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client
}

func (s *Service) visionConfigured() bool {
	return s.inferenceClient != nil || s.cfg.VisionConfigured()
}
