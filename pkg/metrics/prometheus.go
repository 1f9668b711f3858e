// Package metrics provides Prometheus metrics for the fairplay engine.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Engine metrics
	shotsRecorded      *prometheus.CounterVec
	shotsRejected      *prometheus.CounterVec
	batchFlushes       *prometheus.CounterVec
	outliersExcluded   prometheus.Counter
	calibrations       prometheus.Counter
	calibrationLatency prometheus.Histogram
	calibrationStalls  prometheus.Counter
	ceilingRateLimited prometheus.Counter
	anomalyReports     *prometheus.CounterVec
	profiles           prometheus.Gauge

	// Repository metrics
	repositoryShardCount      prometheus.Gauge
	repositoryRecordsPerShard *prometheus.GaugeVec

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerActiveCount       prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Venue metrics
	sessionsCompleted prometheus.Counter
	sessionRTP        prometheus.Histogram

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram

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
		namespace:        "fairplay",
		subsystem:        "engine",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.shotsRecorded = m.counterVec("shots_recorded_total", "Shots accepted into a player's history", "category")
	m.shotsRejected = m.counterVec("shots_rejected_total", "Shots rejected at the engine boundary", "reason")
	m.batchFlushes = m.counterVec("batch_flushes_total", "Pending batches fed to an estimator", "trigger")
	m.outliersExcluded = m.counter("outliers_excluded_total", "Observations screened out of a batch measurement")
	m.calibrations = m.counter("calibrations_total", "Ceiling calibrations performed")
	m.calibrationLatency = m.histogram("calibration_latency_milliseconds", "Ceiling calibration latency in milliseconds", m.histogramBuckets)
	m.calibrationStalls = m.counter("calibration_stalls_total", "Calibrations that did not converge within budget")
	m.ceilingRateLimited = m.counter("ceiling_rate_limited_total", "Published ceilings clamped by the rate limiter")
	m.anomalyReports = m.counterVec("anomaly_reports_total", "Anomaly reports produced", "kind", "flagged")
	m.profiles = m.gauge("profiles", "Player profiles held by the engine")

	m.repositoryShardCount = m.gauge("repository_shard_count", "Number of profile store shards")
	m.repositoryRecordsPerShard = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "repository_records_per_shard", Help: "Profiles per store shard",
	}, []string{"shard"})

	m.queueSize = m.gauge("queue_size", "Session jobs waiting in the venue queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the venue queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Venue queue fill ratio")
	m.queueEnqueueTotal = m.counter("queue_enqueue_total", "Session jobs enqueued")
	m.queueDequeueTotal = m.counter("queue_dequeue_total", "Session jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Session jobs refused by the queue")

	m.workerActiveCount = m.gauge("worker_active_count", "Venue workers running")
	m.workerMessagesPerSecond = m.gauge("worker_jobs_per_second", "Session jobs processed per second")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Session job processing latency in milliseconds",
		[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000})
	m.workerErrors = m.counter("worker_errors_total", "Session jobs that failed")

	m.sessionsCompleted = m.counter("sessions_completed_total", "Sessions run to completion")
	m.sessionRTP = m.histogram("session_rtp_ratio", "Realized return to player per session",
		[]float64{0.25, 0.5, 0.7, 0.8, 0.85, 0.9, 1, 1.25, 1.5, 2, 4})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Goroutines running")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
}

// RecordShot counts an accepted shot.
func (m *Manager) RecordShot(category string) { m.shotsRecorded.WithLabelValues(category).Inc() }

// RecordShotRejected counts a rejected shot.
func (m *Manager) RecordShotRejected(reason string) { m.shotsRejected.WithLabelValues(reason).Inc() }

// RecordFlush counts a batch flush by trigger.
func (m *Manager) RecordFlush(trigger string) { m.batchFlushes.WithLabelValues(trigger).Inc() }

// RecordOutliersExcluded adds screened-out observations.
func (m *Manager) RecordOutliersExcluded(n int) {
	if n > 0 {
		m.outliersExcluded.Add(float64(n))
	}
}

// RecordCalibration records one calibration and its latency.
func (m *Manager) RecordCalibration(latencyMs float64) {
	m.calibrations.Inc()
	m.calibrationLatency.Observe(latencyMs)
}

// RecordCalibrationStall counts a stalled calibration.
func (m *Manager) RecordCalibrationStall() { m.calibrationStalls.Inc() }

// RecordRateLimited counts a clamped ceiling.
func (m *Manager) RecordRateLimited() { m.ceilingRateLimited.Inc() }

// RecordAnomalyReport counts a detector report.
func (m *Manager) RecordAnomalyReport(kind string, flagged bool) {
	m.anomalyReports.WithLabelValues(kind, strconv.FormatBool(flagged)).Inc()
}

// UpdateProfiles sets the profile count.
func (m *Manager) UpdateProfiles(n int) { m.profiles.Set(float64(n)) }

// UpdateRepositoryShardCount sets the shard count.
func (m *Manager) UpdateRepositoryShardCount(n int) { m.repositoryShardCount.Set(float64(n)) }

// UpdateRepositoryRecordsPerShard sets the profile count of one shard.
func (m *Manager) UpdateRepositoryRecordsPerShard(shard string, n int) {
	m.repositoryRecordsPerShard.WithLabelValues(shard).Set(float64(n))
}

// UpdateQueue sets queue size, capacity and utilization together.
func (m *Manager) UpdateQueue(size, capacity int) {
	m.queueSize.Set(float64(size))
	m.queueCapacity.Set(float64(capacity))
	if capacity > 0 {
		m.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// RecordQueueEnqueue counts an enqueue.
func (m *Manager) RecordQueueEnqueue() { m.queueEnqueueTotal.Inc() }

// RecordQueueDequeue counts a dequeue.
func (m *Manager) RecordQueueDequeue() { m.queueDequeueTotal.Inc() }

// RecordQueueEnqueueError counts a refused enqueue.
func (m *Manager) RecordQueueEnqueueError() { m.queueEnqueueErrors.Inc() }

// UpdateWorkerActiveCount sets the number of running workers.
func (m *Manager) UpdateWorkerActiveCount(n int) { m.workerActiveCount.Set(float64(n)) }

// UpdateWorkerMessagesPerSecond sets the job throughput.
func (m *Manager) UpdateWorkerMessagesPerSecond(rate float64) { m.workerMessagesPerSecond.Set(rate) }

// RecordWorkerProcessingLatency records one job's latency.
func (m *Manager) RecordWorkerProcessingLatency(ms float64) { m.workerProcessingLatency.Observe(ms) }

// RecordWorkerError counts a failed job.
func (m *Manager) RecordWorkerError() { m.workerErrors.Inc() }

// RecordSessionCompleted counts a session and its realized RTP.
func (m *Manager) RecordSessionCompleted(rtp float64) {
	m.sessionsCompleted.Inc()
	m.sessionRTP.Observe(rtp)
}

// UpdateSystemMemoryUsage sets the heap bytes allocated.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) { m.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func (m *Manager) UpdateSystemGoroutineCount(n int) { m.systemGoroutineCount.Set(float64(n)) }

// RecordSystemGCPauseTime records the average GC pause in milliseconds.
func (m *Manager) RecordSystemGCPauseTime(ms float64) { m.systemGCPauseTime.Observe(ms) }

// RecordErrorByComponent counts an error by component and type.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// Package-level helpers that write to the global manager.

func RecordShot(category string)                 { globalManager.RecordShot(category) }
func RecordShotRejected(reason string)           { globalManager.RecordShotRejected(reason) }
func RecordFlush(trigger string)                 { globalManager.RecordFlush(trigger) }
func RecordOutliersExcluded(n int)               { globalManager.RecordOutliersExcluded(n) }
func RecordCalibration(latencyMs float64)        { globalManager.RecordCalibration(latencyMs) }
func RecordCalibrationStall()                    { globalManager.RecordCalibrationStall() }
func RecordRateLimited()                         { globalManager.RecordRateLimited() }
func RecordAnomalyReport(kind string, flag bool) { globalManager.RecordAnomalyReport(kind, flag) }
func UpdateProfiles(n int)                       { globalManager.UpdateProfiles(n) }
func UpdateRepositoryShardCount(n int)           { globalManager.UpdateRepositoryShardCount(n) }
func UpdateRepositoryRecordsPerShard(shard string, n int) {
	globalManager.UpdateRepositoryRecordsPerShard(shard, n)
}
func UpdateQueue(size, capacity int)               { globalManager.UpdateQueue(size, capacity) }
func RecordQueueEnqueue()                          { globalManager.RecordQueueEnqueue() }
func RecordQueueDequeue()                          { globalManager.RecordQueueDequeue() }
func RecordQueueEnqueueError()                     { globalManager.RecordQueueEnqueueError() }
func UpdateWorkerActiveCount(n int)                { globalManager.UpdateWorkerActiveCount(n) }
func UpdateWorkerMessagesPerSecond(rate float64)   { globalManager.UpdateWorkerMessagesPerSecond(rate) }
func RecordWorkerProcessingLatency(ms float64)     { globalManager.RecordWorkerProcessingLatency(ms) }
func RecordWorkerError()                           { globalManager.RecordWorkerError() }
func RecordSessionCompleted(rtp float64)           { globalManager.RecordSessionCompleted(rtp) }
func RecordErrorByComponent(component, typ string) { globalManager.RecordErrorByComponent(component, typ) }
func UpdateSystemMemoryUsage(bytes uint64)         { globalManager.UpdateSystemMemoryUsage(bytes) }
func UpdateSystemGoroutineCount(n int)             { globalManager.UpdateSystemGoroutineCount(n) }
func RecordSystemGCPauseTime(ms float64)           { globalManager.RecordSystemGCPauseTime(ms) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
