// Package metrics provides Prometheus metrics for the checkpoint scoring service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Prediction outcome label values.
const (
	OutcomeSuspicious = "suspicious"
	OutcomeClear      = "clear"
	OutcomeNotReady   = "not_ready"
	OutcomeError      = "error"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Prediction metrics
	predictions        *prometheus.CounterVec
	predictionProb     prometheus.Histogram
	predictionLatency  prometheus.Histogram
	featureConversions prometheus.Counter
	modelReady         prometheus.Gauge
	modelLoads         *prometheus.CounterVec

	// Event store metrics
	eventsStored   prometheus.Gauge
	eventsRecorded prometheus.Counter
	eventsEvicted  prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// global pairs the package-level manager with the registry it writes to.
type global struct {
	manager  *Manager
	registry *prometheus.Registry
}

var active atomic.Pointer[global] //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	Configure()
}

// Configure replaces the package-level manager with one built from opts on
// a fresh registry without default Go collectors. Call it at startup, before
// handlers capture GetRegistry.
func Configure(opts ...Option) *Manager {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts[:len(opts):len(opts)], WithPrometheusRegistry(registry))...)
	active.Store(&global{manager: m, registry: registry})
	return m
}

// current returns the package-level manager, or nil when recording is off.
func current() *Manager {
	m := active.Load().manager
	if !m.enabled {
		return nil
	}
	return m
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "checkpoint",
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

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("predictions_total"),
		Help:        "Predictions served, by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.predictionProb = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("prediction_probability"),
		Help:        "Distribution of positive-class probabilities",
		Buckets:     prometheus.LinearBuckets(0.1, 0.1, 10),
		ConstLabels: constLabels,
	})

	m.predictionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("prediction_latency_milliseconds"),
		Help:        "Time spent assembling features and scoring, in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.featureConversions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("feature_conversion_errors_total"),
		Help:        "Feature mappings rejected because a value was not numeric",
		ConstLabels: constLabels,
	})

	m.modelReady = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("model_ready"),
		Help:        "1 when a scoring model is loaded, 0 otherwise",
		ConstLabels: constLabels,
	})

	m.modelLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("model_loads_total"),
		Help:        "Model load attempts, by result",
		ConstLabels: constLabels,
	}, []string{"result"})

	m.eventsStored = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("events_stored"),
		Help:        "Checkpoint events currently held in memory",
		ConstLabels: constLabels,
	})

	m.eventsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("events_recorded_total"),
		Help:        "Checkpoint events recorded since start",
		ConstLabels: constLabels,
	})

	m.eventsEvicted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("events_evicted_total"),
		Help:        "Checkpoint events dropped because the store was full",
		ConstLabels: constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_component_total"),
		Help:        "Errors by component and type",
		ConstLabels: constLabels,
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_type_total"),
		Help:        "Errors by type and severity",
		ConstLabels: constLabels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Errors by endpoint, method and type",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "Heap bytes allocated",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: constLabels,
	})
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// RecordPrediction counts one prediction with the given outcome label.
func (m *Manager) RecordPrediction(outcome string) {
	if !m.enabled {
		return
	}
	m.predictions.WithLabelValues(outcome).Inc()
}

// ObserveProbability records a positive-class probability.
func (m *Manager) ObserveProbability(p float64) {
	if !m.enabled {
		return
	}
	m.predictionProb.Observe(p)
}

// Package-level recorders operate on the global manager.

// RecordPrediction counts one prediction with the given outcome label.
func RecordPrediction(outcome string) { active.Load().manager.RecordPrediction(outcome) }

// ObserveProbability records a positive-class probability.
func ObserveProbability(p float64) { active.Load().manager.ObserveProbability(p) }

// RecordPredictionLatency records scoring latency in milliseconds.
func RecordPredictionLatency(latencyMs float64) {
	if m := current(); m != nil {
		m.predictionLatency.Observe(latencyMs)
	}
}

// RecordFeatureConversionError counts a rejected feature mapping.
func RecordFeatureConversionError() {
	if m := current(); m != nil {
		m.featureConversions.Inc()
	}
}

// SetModelReady sets the model readiness gauge.
func SetModelReady(ready bool) {
	m := current()
	if m == nil {
		return
	}
	if ready {
		m.modelReady.Set(1)
		return
	}
	m.modelReady.Set(0)
}

// RecordModelLoad counts a model load attempt; result is "loaded", "missing" or "failed".
func RecordModelLoad(result string) {
	if m := current(); m != nil {
		m.modelLoads.WithLabelValues(result).Inc()
	}
}

// UpdateEventsStored sets the number of events held by the store.
func UpdateEventsStored(n int) {
	if m := current(); m != nil {
		m.eventsStored.Set(float64(n))
	}
}

// RecordEventRecorded counts a stored event.
func RecordEventRecorded() {
	if m := current(); m != nil {
		m.eventsRecorded.Inc()
	}
}

// RecordEventEvicted counts an event dropped from a full store.
func RecordEventEvicted() {
	if m := current(); m != nil {
		m.eventsEvicted.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := current(); m != nil {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if m := current(); m != nil {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if m := current(); m != nil {
		m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if m := current(); m != nil {
		m.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m := current(); m != nil {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := current(); m != nil {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if m := current(); m != nil {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if m := current(); m != nil {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry backing the package-level recorders.
func GetRegistry() *prometheus.Registry {
	return active.Load().registry
}

// RefreshInterval returns how often the package-level gauges should be refreshed.
func RefreshInterval() time.Duration {
	return active.Load().manager.RefreshInterval()
}
