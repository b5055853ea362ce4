// Package metrics provides Prometheus metrics for the podium ceremony service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the podium service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ceremony metrics
	ceremoniesStarted   *prometheus.CounterVec
	ceremoniesCompleted *prometheus.CounterVec
	activeCeremonies    prometheus.Gauge
	revealSteps         *prometheus.CounterVec
	advanceRejected     *prometheus.CounterVec
	eligibilityPulses   *prometheus.GaugeVec

	// Standings and narration
	standingsLatency   *prometheus.HistogramVec
	narrationLatency   prometheus.Histogram
	narrationFallbacks prometheus.Counter

	// Viewed-flag persistence
	viewedWrites       *prometheus.CounterVec
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge
	workerLatency      prometheus.Histogram
	workerRetries      prometheus.Counter
	repositoryLatency  *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "podium",
		subsystem:        "ceremony",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)
	msBuckets := []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

	m.ceremoniesStarted = auto.NewCounterVec(m.counterOpts("started_total", "Ceremonies started by kind"), []string{"kind"})
	m.ceremoniesCompleted = auto.NewCounterVec(m.counterOpts("completed_total", "Ceremonies completed by kind"), []string{"kind"})
	m.activeCeremonies = auto.NewGauge(m.gaugeOpts("active", "Whether a ceremony is currently active"))
	m.revealSteps = auto.NewCounterVec(m.counterOpts("steps_total", "Reveal steps by kind of step"), []string{"step"})
	m.advanceRejected = auto.NewCounterVec(m.counterOpts("advance_rejected_total", "Advance or skip calls that were ignored"), []string{"reason"})
	m.eligibilityPulses = auto.NewGaugeVec(m.gaugeOpts("eligibility_pulses", "Unviewed ceremonies available by kind"), []string{"kind"})

	m.standingsLatency = auto.NewHistogramVec(
		m.histogramOpts("standings_latency_milliseconds", "Time to fetch and aggregate standings", msBuckets),
		[]string{"kind"},
	)
	m.narrationLatency = auto.NewHistogram(m.histogramOpts("narration_latency_milliseconds", "Narration generation latency", msBuckets))
	m.narrationFallbacks = auto.NewCounter(m.counterOpts("narration_fallbacks_total", "Narrations replaced by the template line"))

	m.viewedWrites = auto.NewCounterVec(m.counterOpts("viewed_writes_total", "Viewed-flag writes by result"), []string{"result"})
	m.queueSize = auto.NewGauge(m.gaugeOpts("viewed_queue_size", "Pending viewed-flag writes"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("viewed_queue_capacity", "Capacity of the viewed-flag queue"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("viewed_queue_enqueued_total", "Viewed-flag writes accepted by the queue"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("viewed_queue_enqueue_errors_total", "Viewed-flag writes rejected by the queue"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("viewed_workers", "Running viewed-flag workers"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("viewed_worker_latency_milliseconds", "Time to persist one viewed flag", msBuckets))
	m.workerRetries = auto.NewCounter(m.counterOpts("viewed_worker_retries_total", "Viewed-flag write retries"))
	m.repositoryLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_latency_milliseconds", "Repository query latency", msBuckets),
		[]string{"backend", "operation"},
	)

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_seconds", "HTTP request duration in seconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_total", "Errors by component and type"), []string{"component", "error_type"})
}

// RecordCeremonyStarted counts a started ceremony.
func RecordCeremonyStarted(kind string) {
	globalManager.ceremoniesStarted.WithLabelValues(kind).Inc()
}

// RecordCeremonyCompleted counts a completed ceremony.
func RecordCeremonyCompleted(kind string) {
	globalManager.ceremoniesCompleted.WithLabelValues(kind).Inc()
}

// UpdateActiveCeremonies sets the active ceremony gauge.
func UpdateActiveCeremonies(n int) {
	globalManager.activeCeremonies.Set(float64(n))
}

// RecordRevealStep counts a reveal step.
func RecordRevealStep(step string) {
	globalManager.revealSteps.WithLabelValues(step).Inc()
}

// RecordAdvanceRejected counts an ignored advance or skip.
func RecordAdvanceRejected(reason string) {
	globalManager.advanceRejected.WithLabelValues(reason).Inc()
}

// UpdateEligibilityPulses sets how many unviewed ceremonies exist for a kind.
func UpdateEligibilityPulses(kind string, n int) {
	globalManager.eligibilityPulses.WithLabelValues(kind).Set(float64(n))
}

// RecordStandingsLatency records standings aggregation latency in milliseconds.
func RecordStandingsLatency(kind string, latencyMs float64) {
	globalManager.standingsLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordNarrationLatency records narration latency in milliseconds.
func RecordNarrationLatency(latencyMs float64) {
	globalManager.narrationLatency.Observe(latencyMs)
}

// RecordNarrationFallback counts a template fallback.
func RecordNarrationFallback() {
	globalManager.narrationFallbacks.Inc()
}

// RecordViewedWrite counts a viewed-flag write by result.
func RecordViewedWrite(result string) {
	globalManager.viewedWrites.WithLabelValues(result).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerRetry counts a retried write.
func RecordWorkerRetry() {
	globalManager.workerRetries.Inc()
}

// RecordRepositoryLatency records a repository operation latency.
func RecordRepositoryLatency(backend, operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(backend, operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordError records an error with component and type labels.
func RecordError(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
