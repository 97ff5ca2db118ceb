package worker

import (
	"context"

	"github.com/okian/talentscore/internal/domain/model"
	"github.com/okian/talentscore/pkg/logger"
)

// LogSink writes every batch result as one structured log line.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a LogSink. A nil logger uses the "batch" logger.
func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.Named("batch")
	}
	return &LogSink{log: l}
}

// Deliver implements Sink.
func (s *LogSink) Deliver(ctx context.Context, r model.Result) error {
	a := r.Assessment
	fields := []logger.Field{
		logger.String("jobId", r.JobID),
		logger.String("videoId", r.VideoID),
		logger.String("strategy", string(r.Strategy)),
		logger.Float64("performanceScore", a.PerformanceScore),
		logger.Any("categoryTags", a.CategoryTags),
		logger.Duration("queuedFor", r.QueuedFor),
		logger.Duration("took", r.Took),
	}
	if v, ok := a.VocalScore.Get(); ok {
		fields = append(fields, logger.Float64("vocalScore", v))
	}
	if v, ok := a.MovementScore.Get(); ok {
		fields = append(fields, logger.Float64("movementScore", v))
	}
	s.log.Info(ctx, "batch result", fields...)
	return nil
}
