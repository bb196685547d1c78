// Package metrics provides Prometheus metrics for the Veristep validation engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Submission and idempotency
	evidenceSubmitted prometheus.Counter
	duplicateReplays  prometheus.Counter
	tokensSwept       prometheus.Counter
	tokenTableSize    prometheus.Gauge

	// Lifecycle
	lifecycleTransitions *prometheus.CounterVec
	invalidTransitions   prometheus.Counter
	pendingEvidence      prometheus.Gauge

	// Assignments
	assignmentsCreated   *prometheus.CounterVec
	assignmentsFinished  *prometheus.CounterVec
	assignmentsExpired   prometheus.Counter
	reassignmentAttempts prometheus.Counter
	escalations          prometheus.Counter
	activeAssignments    prometheus.Gauge

	// Scoring
	scoringLatency *prometheus.HistogramVec
	scoringErrors  *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors by component/reason
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "veristep",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)
	ns := m.namespace

	m.evidenceSubmitted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "evidence_submitted_total",
		Help: "Evidence submissions accepted by the engine.",
	})
	m.duplicateReplays = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "idempotent_replays_total",
		Help: "Mutations answered from a cached idempotency token result.",
	})
	m.tokensSwept = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "idempotency_tokens_swept_total",
		Help: "Expired idempotency tokens removed by the sweeper.",
	})
	m.tokenTableSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "idempotency_tokens",
		Help: "Idempotency tokens currently tracked.",
	})

	m.lifecycleTransitions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "evidence_transitions_total",
		Help: "Evidence lifecycle transitions by target status.",
	}, []string{"to"})
	m.invalidTransitions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "evidence_invalid_transitions_total",
		Help: "Rejected evidence state transitions.",
	})
	m.pendingEvidence = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "evidence_pending",
		Help: "Evidence currently awaiting validation.",
	})

	m.assignmentsCreated = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "assignments_created_total",
		Help: "Validator assignments created by priority.",
	}, []string{"priority"})
	m.assignmentsFinished = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "assignments_finished_total",
		Help: "Validator assignments reaching a terminal status.",
	}, []string{"status"})
	m.assignmentsExpired = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "assignments_expired_total",
		Help: "Assignments expired past their SLA deadline.",
	})
	m.reassignmentAttempts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "reassignment_attempts_total",
		Help: "Re-assignment attempts after expiry.",
	})
	m.escalations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "escalations_total",
		Help: "Evidence flagged for manual escalation.",
	})
	m.activeAssignments = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "assignments_active",
		Help: "Assignments currently pending, accepted, or in progress.",
	})

	m.scoringLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: "scoring_latency_ms",
		Help:    "Score computation latency in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"scorer"})
	m.scoringErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "scoring_errors_total",
		Help: "Score computations that failed.",
	}, []string{"scorer"})

	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "reassign_queue_size",
		Help: "Re-assignment jobs currently queued.",
	})
	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "reassign_queue_capacity",
		Help: "Configured re-assignment queue capacity.",
	})
	m.queueUtilization = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "reassign_queue_utilization",
		Help: "Re-assignment queue fill ratio.",
	})
	m.queueEnqueues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "reassign_queue_enqueues_total",
		Help: "Jobs enqueued for re-assignment.",
	})
	m.queueDequeues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "reassign_queue_dequeues_total",
		Help: "Jobs consumed from the re-assignment queue.",
	})
	m.queueEnqueueErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "reassign_queue_enqueue_errors_total",
		Help: "Enqueue attempts rejected by the re-assignment queue.",
	})

	m.workerActiveCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "workers_active",
		Help: "Re-assignment workers currently running.",
	})
	m.workerProcessingLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Name: "worker_processing_latency_ms",
		Help:    "Re-assignment job processing latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.workerErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "worker_errors_total",
		Help: "Re-assignment jobs that failed.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method, and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: "http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.errorsByComponent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "errors_total",
		Help: "Errors by component and reason.",
	}, []string{"component", "reason"})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "system_memory_bytes",
		Help: "Allocated heap bytes.",
	})
	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "system_goroutines",
		Help: "Current goroutine count.",
	})

	return m
}

// Handler exposes the custom registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Package-level recording functions delegating to the global manager.

func RecordEvidenceSubmitted()  { globalManager.evidenceSubmitted.Inc() }
func RecordDuplicateReplay()    { globalManager.duplicateReplays.Inc() }
func RecordTokensSwept(n int)   { globalManager.tokensSwept.Add(float64(n)) }
func UpdateTokenTableSize(n int64) {
	globalManager.tokenTableSize.Set(float64(n))
}

func RecordLifecycleTransition(to string) {
	globalManager.lifecycleTransitions.WithLabelValues(to).Inc()
}
func RecordInvalidTransition()    { globalManager.invalidTransitions.Inc() }
func UpdatePendingEvidence(n int) { globalManager.pendingEvidence.Set(float64(n)) }

func RecordAssignmentCreated(priority string) {
	globalManager.assignmentsCreated.WithLabelValues(priority).Inc()
}
func RecordAssignmentFinished(status string) {
	globalManager.assignmentsFinished.WithLabelValues(status).Inc()
}
func RecordAssignmentExpired()      { globalManager.assignmentsExpired.Inc() }
func RecordReassignmentAttempt()    { globalManager.reassignmentAttempts.Inc() }
func RecordEscalation()             { globalManager.escalations.Inc() }
func UpdateActiveAssignments(n int) { globalManager.activeAssignments.Set(float64(n)) }

func RecordScoringLatency(scorer string, ms float64) {
	globalManager.scoringLatency.WithLabelValues(scorer).Observe(ms)
}
func RecordScoringError(scorer string) {
	globalManager.scoringErrors.WithLabelValues(scorer).Inc()
}

func UpdateQueueSize(n int)      { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int)  { globalManager.queueCapacity.Set(float64(n)) }
func UpdateQueueUtilization(r float64) {
	globalManager.queueUtilization.Set(r)
}
func RecordQueueEnqueue()      { globalManager.queueEnqueues.Inc() }
func RecordQueueDequeue()      { globalManager.queueDequeues.Inc() }
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

func UpdateWorkerActiveCount(n int) { globalManager.workerActiveCount.Set(float64(n)) }
func RecordWorkerProcessingLatency(ms float64) {
	globalManager.workerProcessingLatency.Observe(ms)
}
func RecordWorkerError() { globalManager.workerErrors.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}
func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

func RecordErrorByComponent(component, reason string) {
	globalManager.errorsByComponent.WithLabelValues(component, reason).Inc()
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}
