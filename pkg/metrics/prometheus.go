// Package metrics provides Prometheus metrics for the taixiu prediction service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// confidenceBuckets cover the ensemble confidence percentage, which is never
// below 50 when any vote carries weight.
var confidenceBuckets = []float64{50, 55, 60, 65, 70, 75, 80, 85, 90, 95, 100} //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Prediction metrics
	predictionsTotal     *prometheus.CounterVec
	predictionConfidence prometheus.Histogram
	predictionLatency    prometheus.Histogram
	modelVotes           *prometheus.CounterVec
	emptyHistory         prometheus.Counter

	// Upstream history metrics
	fetchLatency     prometheus.Histogram
	fetchErrors      *prometheus.CounterVec
	fetchRetries     prometheus.Counter
	historySessions  prometheus.Gauge
	historyRefreshes prometheus.Counter
	skippedSessions  prometheus.Counter

	// Ledger metrics
	ledgerRecorded prometheus.Counter
	ledgerSettled  *prometheus.CounterVec
	ledgerAccuracy prometheus.Gauge
	ledgerPending  prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "taixiu",
		subsystem:        "predictor",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.predictionsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("predictions_total"),
		Help:        "Total number of ensemble predictions by predicted outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.predictionConfidence = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("prediction_confidence_percent"),
		Help:        "Distribution of ensemble confidence percentages",
		Buckets:     confidenceBuckets,
		ConstLabels: constLabels,
	})

	m.predictionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("prediction_latency_milliseconds"),
		Help:        "Time spent running the models and aggregating votes",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.modelVotes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("model_votes_total"),
		Help:        "Votes cast by each model, by predicted symbol",
		ConstLabels: constLabels,
	}, []string{"model", "symbol"})

	m.emptyHistory = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("empty_history_total"),
		Help:        "Prediction requests rejected because no session history was available",
		ConstLabels: constLabels,
	})

	m.fetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("history_fetch_latency_milliseconds"),
		Help:        "Upstream session history fetch latency, retries included",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.fetchErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("history_fetch_errors_total"),
		Help:        "Failed upstream history fetches by reason",
		ConstLabels: constLabels,
	}, []string{"reason"})

	m.fetchRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("history_fetch_retries_total"),
		Help:        "Upstream fetch attempts that were retried",
		ConstLabels: constLabels,
	})

	m.historySessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("history_sessions"),
		Help:        "Number of sessions in the current history snapshot",
		ConstLabels: constLabels,
	})

	m.historyRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("history_refreshes_total"),
		Help:        "Successful history snapshot refreshes",
		ConstLabels: constLabels,
	})

	m.skippedSessions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("history_skipped_sessions_total"),
		Help:        "Upstream sessions dropped because their outcome label was not recognized",
		ConstLabels: constLabels,
	})

	m.ledgerRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("ledger_recorded_total"),
		Help:        "Predictions recorded in the ledger",
		ConstLabels: constLabels,
	})

	m.ledgerSettled = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("ledger_settled_total"),
		Help:        "Ledger predictions settled against the real outcome",
		ConstLabels: constLabels,
	}, []string{"result"})

	m.ledgerAccuracy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("ledger_accuracy_ratio"),
		Help:        "Share of settled predictions that matched the real outcome",
		ConstLabels: constLabels,
	})

	m.ledgerPending = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("ledger_pending"),
		Help:        "Recorded predictions whose session has not been observed yet",
		ConstLabels: constLabels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_component_total"),
			Help:        "Total number of errors by component",
			ConstLabels: constLabels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_type_total"),
			Help:        "Total number of errors by type",
			ConstLabels: constLabels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Total number of errors by endpoint",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("error_latency_milliseconds"),
			Help:        "Latency of operations that resulted in errors",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
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
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: constLabels,
	})
}

// Prediction Metrics Functions.

// RecordPrediction counts an ensemble prediction and observes its confidence.
func RecordPrediction(outcome string, confidencePct float64) {
	globalManager.predictionsTotal.WithLabelValues(outcome).Inc()
	globalManager.predictionConfidence.Observe(confidencePct)
}

// RecordPredictionLatency records how long the ensemble took in milliseconds.
func RecordPredictionLatency(latencyMs float64) {
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordModelVote counts a single model vote.
func RecordModelVote(model, symbol string) {
	globalManager.modelVotes.WithLabelValues(model, symbol).Inc()
}

// RecordEmptyHistory counts a prediction rejected for lack of history.
func RecordEmptyHistory() {
	globalManager.emptyHistory.Inc()
}

// Upstream Metrics Functions.

// RecordFetchLatency records the upstream history fetch latency.
func RecordFetchLatency(latencyMs float64) {
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordFetchError counts a failed upstream fetch.
func RecordFetchError(reason string) {
	globalManager.fetchErrors.WithLabelValues(reason).Inc()
}

// RecordFetchRetry counts a retried upstream attempt.
func RecordFetchRetry() {
	globalManager.fetchRetries.Inc()
}

// UpdateHistorySessions sets the size of the current history snapshot.
func UpdateHistorySessions(count int) {
	globalManager.historySessions.Set(float64(count))
}

// RecordHistoryRefresh counts a successful snapshot refresh.
func RecordHistoryRefresh() {
	globalManager.historyRefreshes.Inc()
}

// RecordSkippedSessions counts upstream sessions dropped while decoding.
func RecordSkippedSessions(count int) {
	globalManager.skippedSessions.Add(float64(count))
}

// Ledger Metrics Functions.

// RecordLedgerRecorded counts a prediction written to the ledger.
func RecordLedgerRecorded() {
	globalManager.ledgerRecorded.Inc()
}

// RecordLedgerSettled counts a settled prediction; hit reports whether it
// matched the real outcome.
func RecordLedgerSettled(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.ledgerSettled.WithLabelValues(result).Inc()
}

// UpdateLedgerAccuracy sets the hit ratio of settled predictions.
func UpdateLedgerAccuracy(ratio float64) {
	globalManager.ledgerAccuracy.Set(ratio)
}

// UpdateLedgerPending sets the number of unsettled predictions.
func UpdateLedgerPending(count int) {
	globalManager.ledgerPending.Set(float64(count))
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
