// Package metrics provides Prometheus metrics for the fraud risk service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Probability and score buckets line up with the decision thresholds so that
// tier boundaries are visible in the histograms.
var (
	probabilityBuckets = []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}
	riskScoreBuckets   = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	batchSizeBuckets   = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Scoring metrics
	assessments        *prometheus.CounterVec
	fraudProbability   prometheus.Histogram
	riskScore          prometheus.Histogram
	scoringLatency     prometheus.Histogram
	numericAnomalies   *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	batchSize          prometheus.Histogram
	modelInfo          *prometheus.GaugeVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fraudrisk",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is the cadence for gauge updaters.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.assessments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "assessments_total",
		Help:        "Total number of risk assessments by risk level",
		ConstLabels: labels,
	}, []string{"risk_level"})

	m.fraudProbability = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fraud_probability",
		Help:        "Distribution of model fraud probabilities",
		Buckets:     probabilityBuckets,
		ConstLabels: labels,
	})

	m.riskScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "risk_score",
		Help:        "Distribution of risk scores (0-100)",
		Buckets:     riskScoreBuckets,
		ConstLabels: labels,
	})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "latency_milliseconds",
		Help:        "Latency of the derive-normalize-predict pipeline in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.numericAnomalies = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "numeric_anomalies_total",
		Help:        "Non-finite values clamped to zero, by pipeline stage",
		ConstLabels: labels,
	}, []string{"stage"})

	m.validationFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "validation_failures_total",
		Help:        "Requests rejected by input validation, by field",
		ConstLabels: labels,
	}, []string{"field"})

	m.batchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_size",
		Help:        "Number of inputs per batch assessment",
		Buckets:     batchSizeBuckets,
		ConstLabels: labels,
	})

	m.modelInfo = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "model_info",
		Help:        "Loaded model artifact version (value is always 1)",
		ConstLabels: labels,
	}, []string{"version"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.rateLimited = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "rate_limited_total",
		Help:        "Requests rejected by the rate limiter",
		ConstLabels: labels,
	}, []string{"endpoint"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "by_type_total",
		Help:        "Errors by type and severity",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "by_endpoint_total",
		Help:        "Errors by endpoint, method and type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "latency_milliseconds",
		Help:        "Latency of operations that ended in an error",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_bytes",
		Help:        "Allocated heap memory in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_milliseconds",
		Help:        "Average GC pause in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})
}

// Scoring metric recorders.

// RecordAssessment records one completed assessment.
func (m *Manager) RecordAssessment(riskLevel string, probability, score, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.assessments.WithLabelValues(riskLevel).Inc()
	m.fraudProbability.Observe(probability)
	m.riskScore.Observe(score)
	m.scoringLatency.Observe(latencyMs)
}

// RecordNumericAnomaly counts n clamped values at a pipeline stage.
func (m *Manager) RecordNumericAnomaly(stage string, n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.numericAnomalies.WithLabelValues(stage).Add(float64(n))
}

// RecordValidationFailure counts a rejected input field.
func (m *Manager) RecordValidationFailure(field string) {
	if !m.enabled {
		return
	}
	m.validationFailures.WithLabelValues(field).Inc()
}

// RecordBatchSize observes a batch length.
func (m *Manager) RecordBatchSize(n int) {
	if !m.enabled {
		return
	}
	m.batchSize.Observe(float64(n))
}

// SetModelInfo publishes the loaded model version.
func (m *Manager) SetModelInfo(version string) {
	m.modelInfo.Reset()
	m.modelInfo.WithLabelValues(version).Set(1)
}

// HTTP metric recorders.

// RecordHTTPRequest records one request with its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordRateLimited counts a throttled request.
func (m *Manager) RecordRateLimited(endpoint string) {
	if !m.enabled {
		return
	}
	m.rateLimited.WithLabelValues(endpoint).Inc()
}

// RecordError records an error against its endpoint and type.
func (m *Manager) RecordError(endpoint, method, errorType, severity string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
	m.errorLatency.WithLabelValues("http", errorType).Observe(latencyMs)
}

// System metric recorders.

// UpdateSystem sets memory and goroutine gauges and observes GC pause.
func (m *Manager) UpdateSystem(memBytes uint64, goroutines int, avgGCPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if avgGCPauseMs > 0 {
		m.systemGCPauseTime.Observe(avgGCPauseMs)
	}
}

// Package-level helpers forward to the global manager.

// RecordAssessment records one completed assessment on the global manager.
func RecordAssessment(riskLevel string, probability, score, latencyMs float64) {
	globalManager.RecordAssessment(riskLevel, probability, score, latencyMs)
}

// RecordNumericAnomaly counts clamped values on the global manager.
func RecordNumericAnomaly(stage string, n int) {
	globalManager.RecordNumericAnomaly(stage, n)
}

// RecordValidationFailure counts a rejected field on the global manager.
func RecordValidationFailure(field string) {
	globalManager.RecordValidationFailure(field)
}

// RecordBatchSize observes a batch length on the global manager.
func RecordBatchSize(n int) {
	globalManager.RecordBatchSize(n)
}

// SetModelInfo publishes the model version on the global manager.
func SetModelInfo(version string) {
	globalManager.SetModelInfo(version)
}

// RecordHTTPRequest records a request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordRateLimited counts a throttled request on the global manager.
func RecordRateLimited(endpoint string) {
	globalManager.RecordRateLimited(endpoint)
}

// RecordError records an HTTP error on the global manager.
func RecordError(endpoint, method, errorType, severity string, latencyMs float64) {
	globalManager.RecordError(endpoint, method, errorType, severity, latencyMs)
}

// UpdateSystem updates system gauges on the global manager.
func UpdateSystem(memBytes uint64, goroutines int, avgGCPauseMs float64) {
	globalManager.UpdateSystem(memBytes, goroutines, avgGCPauseMs)
}

// SetRefreshInterval applies WithRefreshInterval to the global manager.
// Call it before starting gauge updaters.
func SetRefreshInterval(interval time.Duration) {
	WithRefreshInterval(interval)(globalManager)
}

// RefreshInterval returns the global manager's gauge refresh cadence.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
