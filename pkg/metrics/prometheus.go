// Package metrics provides Prometheus metrics for the talent scoring service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Scoring
	analysesTotal    *prometheus.CounterVec
	analysisLatency  *prometheus.HistogramVec
	performanceScore *prometheus.HistogramVec
	visionFailures   *prometheus.CounterVec
	visionLatency    prometheus.Histogram
	signalAnalyses   *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec

	// Media
	mediaFetches *prometheus.CounterVec
	mediaBytes   prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Batch queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	batchDuplicates    prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "talentscore",
		subsystem:        "analyzer",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: buckets, ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	scoreBuckets := prometheus.LinearBuckets(10, 10, 10)

	m.analysesTotal = auto.NewCounterVec(
		m.counterOpts("analyses_total", "Analyses completed, by scoring strategy"),
		[]string{"strategy"},
	)
	m.analysisLatency = auto.NewHistogramVec(
		m.histogramOpts("analysis_latency_milliseconds", "End to end analysis latency", m.histogramBuckets),
		[]string{"strategy"},
	)
	m.performanceScore = auto.NewHistogramVec(
		m.histogramOpts("performance_score", "Distribution of returned performance scores", scoreBuckets),
		[]string{"strategy"},
	)
	m.visionFailures = auto.NewCounterVec(
		m.counterOpts("vision_failures_total", "Vision scoring failures that fell back to heuristics"),
		[]string{"reason"},
	)
	m.visionLatency = auto.NewHistogram(
		m.histogramOpts("vision_latency_milliseconds", "Latency of vision inference calls", m.histogramBuckets),
	)
	m.signalAnalyses = auto.NewCounterVec(
		m.counterOpts("signal_analyses_total", "Signal analyses, by modality and detection"),
		[]string{"modality", "detected"},
	)
	m.breakerState = auto.NewGaugeVec(
		m.gaugeOpts("circuit_breaker_state", "Circuit breaker state (0 closed, 1 half-open, 2 open)"),
		[]string{"name"},
	)

	m.mediaFetches = auto.NewCounterVec(
		m.counterOpts("media_fetches_total", "Thumbnail fetches, by outcome"),
		[]string{"outcome"},
	)
	m.mediaBytes = auto.NewHistogram(
		m.histogramOpts("media_fetch_bytes", "Size of fetched thumbnails in bytes",
			prometheus.ExponentialBuckets(1024, 4, 8)),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Jobs waiting in the batch queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Capacity of the batch queue"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Batch queue fill ratio"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Jobs rejected by the queue"))
	m.batchDuplicates = auto.NewCounter(m.counterOpts("batch_duplicates_total", "Batch videos skipped as duplicates"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured batch workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently analysing a job"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Per job processing latency", m.histogramBuckets),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Jobs whose result could not be delivered"))

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordAnalysis records a completed analysis.
func RecordAnalysis(strategy string, latencyMs, performanceScore float64) {
	globalManager.analysesTotal.WithLabelValues(strategy).Inc()
	globalManager.analysisLatency.WithLabelValues(strategy).Observe(latencyMs)
	globalManager.performanceScore.WithLabelValues(strategy).Observe(performanceScore)
}

// RecordVisionFailure counts a vision failure that triggered the fallback.
func RecordVisionFailure(reason string) {
	globalManager.visionFailures.WithLabelValues(reason).Inc()
}

// RecordVisionLatency records an inference call latency in milliseconds.
func RecordVisionLatency(latencyMs float64) {
	globalManager.visionLatency.Observe(latencyMs)
}

// RecordSignalAnalysis counts one modality analysis.
func RecordSignalAnalysis(modality string, detected bool) {
	globalManager.signalAnalyses.WithLabelValues(modality, fmt.Sprint(detected)).Inc()
}

// Breaker states as exported by UpdateBreakerState.
const (
	BreakerClosed   = "closed"
	BreakerHalfOpen = "half-open"
	BreakerOpen     = "open"
)

// UpdateBreakerState exports a circuit breaker state.
func UpdateBreakerState(name, state string) error {
	var v float64
	switch state {
	case BreakerClosed:
		v = 0
	case BreakerHalfOpen:
		v = 1
	case BreakerOpen:
		v = 2
	default:
		return fmt.Errorf("%w: unknown breaker state %q", ErrObserveFailed, state)
	}
	globalManager.breakerState.WithLabelValues(name).Set(v)
	return nil
}

// RecordMediaFetch counts a thumbnail fetch and, on success, its size.
func RecordMediaFetch(outcome string, bytes int) {
	globalManager.mediaFetches.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		globalManager.mediaBytes.Observe(float64(bytes))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordBatchDuplicate counts a batch video skipped as a duplicate.
func RecordBatchDuplicate() {
	globalManager.batchDuplicates.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records per job latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
