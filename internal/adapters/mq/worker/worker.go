// Package worker drains queued analysis jobs.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/talentscore/internal/domain/assessment"
	"github.com/okian/talentscore/internal/domain/model"
	"github.com/okian/talentscore/pkg/logger"
	"github.com/okian/talentscore/pkg/metrics"
)

const defaultWorkerMultiplier = 2

// Analyzer scores one video. It never fails; degradation shows up in the
// returned assessment.
type Analyzer interface {
	Analyze(ctx context.Context, req assessment.Request) assessment.Assessment
}

// Sink receives finished results.
type Sink interface {
	Deliver(ctx context.Context, r model.Result) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// InMemoryWorker runs jobs from a Queue through an Analyzer.
type InMemoryWorker struct {
	queue    Queue
	analyzer Analyzer
	sink     Sink
	name     string
	stats    *poolStats

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(q Queue, analyzer Analyzer, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		analyzer: analyzer,
		sink:     sink,
		name:     "worker",
		stats:    &poolStats{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.sink == nil {
		w.sink = NewLogSink(nil)
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run processes jobs until the queue drains, ctx is canceled or the worker
// is stopped.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing job", logger.String("jobId", j.ID), logger.Error(err))
			}
		}
	}
}

// Stop asks the worker to return after its current job.
func (w *InMemoryWorker) Stop() {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, j model.Job) error {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.stats.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.stats.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	a := w.analyzer.Analyze(ctx, j.Request)
	result := model.Result{
		JobID:      j.ID,
		VideoID:    j.Request.VideoID,
		Assessment: a,
		Strategy:   a.Strategy,
		QueuedFor:  start.Sub(j.EnqueuedAt),
		Took:       time.Since(start),
	}
	w.stats.processed.Add(1)

	if err := w.sink.Deliver(ctx, result); err != nil {
		w.stats.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "sink_error")
		return fmt.Errorf("deliver result for %s: %w", j.Request.VideoID, err)
	}
	return nil
}

type poolStats struct {
	active    atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

// Stats is a snapshot of pool activity.
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int64 `json:"active"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	stats   *poolStats
	once    sync.Once
	cancel  context.CancelFunc
	logger  logger.Logger
}

// NewPool creates a worker pool. A count below one defaults to twice the
// CPU count.
func NewPool(workerCount int, q Queue, analyzer Analyzer, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	if sink == nil {
		sink = NewLogSink(nil)
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		stats:   &poolStats{},
		logger:  logger.Named("worker-pool"),
	}
	for i := range p.workers {
		w := NewInMemoryWorker(q, analyzer, sink, WithName("worker-"+strconv.Itoa(i)))
		w.stats = p.stats
		p.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start launches every worker. Workers and their queue readers run until
// Shutdown finishes, even when ctx carries no cancellation.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stats returns a snapshot of pool activity.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Active:    p.stats.active.Load(),
		Processed: p.stats.processed.Load(),
		Failed:    p.stats.failed.Load(),
	}
}

// Shutdown closes the queue and lets workers drain it. Workers still busy
// when ctx expires are told to stop after their current job.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		if p.cancel != nil {
			defer p.cancel()
		}
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}
		for i, w := range p.workers {
			select {
			case <-w.Done():
			case <-ctx.Done():
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				for _, rest := range p.workers {
					rest.Stop()
				}
				err = fmt.Errorf("worker pool shutdown: %w", ctx.Err())
				return
			}
		}
		p.logger.Info(ctx, "worker pool stopped", logger.Int64("processed", p.stats.processed.Load()))
	})
	return err
}
