// Package metrics provides Prometheus metrics for the stamping dashboard service.
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

// Query outcomes.
const (
	OutcomeShortCircuit = "short_circuit"
	OutcomeNoMatch      = "no_match"
	OutcomeMatched      = "matched"
)

// Query stages timed per request.
const (
	StageFilterAttributes   = "filter_attributes"
	StageFilterMeasurements = "filter_measurements"
	StageAggregate          = "aggregate"
	StageAssemble           = "assemble"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	rowBuckets       []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Dataset Metrics - shape and cost of the startup load
	datasetRows         *prometheus.GaugeVec
	datasetColumns      *prometheus.GaugeVec
	datasetLoadDuration *prometheus.HistogramVec
	datasetLoadErrors   *prometheus.CounterVec
	datasetLoadedUnix   prometheus.Gauge

	// Query Metrics - filter and aggregation pipeline
	queries              *prometheus.CounterVec
	queryStageLatency    *prometheus.HistogramVec
	matchedAttributes    prometheus.Histogram
	matchedMeasurements  prometheus.Histogram
	returnedRows         prometheus.Histogram
	seriesPoints         prometheus.Histogram
	filterValuesRequests *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stampview",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		rowBuckets:       prometheus.ExponentialBuckets(1, 4, 12),
		refreshInterval:  defaultRefreshInterval,
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

// RefreshInterval is how often periodically sampled gauges should be updated.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) name(n string) string { return m.metricPrefix + n }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.datasetRows = auto.NewGaugeVec(
		m.gaugeOpts("dataset_rows", "Rows held in memory per dataset"),
		[]string{"dataset"},
	)
	m.datasetColumns = auto.NewGaugeVec(
		m.gaugeOpts("dataset_columns", "Columns per dataset"),
		[]string{"dataset"},
	)
	m.datasetLoadDuration = auto.NewHistogramVec(
		m.histogramOpts("dataset_load_duration_milliseconds", "Time to read and decode a dataset file",
			[]float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000}),
		[]string{"dataset"},
	)
	m.datasetLoadErrors = auto.NewCounterVec(
		m.counterOpts("dataset_load_errors_total", "Dataset files that failed to load"),
		[]string{"dataset"},
	)
	m.datasetLoadedUnix = auto.NewGauge(
		m.gaugeOpts("dataset_loaded_timestamp_seconds", "Unix time the datasets were loaded"),
	)

	m.queries = auto.NewCounterVec(
		m.counterOpts("queries_total", "Data queries by outcome"),
		[]string{"outcome"},
	)
	m.queryStageLatency = auto.NewHistogramVec(
		m.histogramOpts("query_stage_duration_milliseconds", "Per-stage latency of the query pipeline",
			[]float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
		[]string{"stage"},
	)
	m.matchedAttributes = auto.NewHistogram(
		m.histogramOpts("matched_attribute_rows", "Attribute rows matched per query", m.rowBuckets),
	)
	m.matchedMeasurements = auto.NewHistogram(
		m.histogramOpts("matched_measurement_rows", "Measurement rows matched per query", m.rowBuckets),
	)
	m.returnedRows = auto.NewHistogram(
		m.histogramOpts("returned_rows", "Rows returned per query after the row limit", m.rowBuckets),
	)
	m.seriesPoints = auto.NewHistogram(
		m.histogramOpts("series_points", "Average series points returned per query", m.rowBuckets),
	)
	m.filterValuesRequests = auto.NewCounterVec(
		m.counterOpts("filter_values_requests_total", "Filter value lookups by result"),
		[]string{"result"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Dataset Metrics Functions.

// RecordDatasetLoaded records the shape and load time of a dataset.
func (m *Manager) RecordDatasetLoaded(dataset string, rows, columns int, latencyMs float64) {
	m.datasetRows.WithLabelValues(dataset).Set(float64(rows))
	m.datasetColumns.WithLabelValues(dataset).Set(float64(columns))
	m.datasetLoadDuration.WithLabelValues(dataset).Observe(latencyMs)
}

// RecordDatasetLoadError counts a failed dataset load.
func (m *Manager) RecordDatasetLoadError(dataset string) {
	m.datasetLoadErrors.WithLabelValues(dataset).Inc()
}

// UpdateDatasetLoadedAt sets the time the store was populated.
func (m *Manager) UpdateDatasetLoadedAt(at time.Time) {
	m.datasetLoadedUnix.Set(float64(at.Unix()))
}

// Query Metrics Functions.

// RecordQuery counts a query by outcome.
func (m *Manager) RecordQuery(outcome string) {
	m.queries.WithLabelValues(outcome).Inc()
}

// RecordQueryStage records the latency of one pipeline stage.
func (m *Manager) RecordQueryStage(stage string, latencyMs float64) {
	m.queryStageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordQueryResult records the sizes produced by a query.
func (m *Manager) RecordQueryResult(attributes, measurements, returned, points int) {
	m.matchedAttributes.Observe(float64(attributes))
	m.matchedMeasurements.Observe(float64(measurements))
	m.returnedRows.Observe(float64(returned))
	m.seriesPoints.Observe(float64(points))
}

// RecordFilterValuesRequest counts a filter value lookup.
func (m *Manager) RecordFilterValuesRequest(result string) {
	m.filterValuesRequests.WithLabelValues(result).Inc()
}

// HTTP and Error Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a component.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error for an endpoint.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	m.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func (m *Manager) UpdateSystemGoroutineCount(count int) {
	m.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func (m *Manager) RecordSystemGCPauseTime(pauseMs float64) {
	m.systemGCPauseTime.Observe(pauseMs)
}

// Package-level helpers for the global manager.

// RecordDatasetLoaded records the shape and load time of a dataset.
func RecordDatasetLoaded(dataset string, rows, columns int, latencyMs float64) {
	globalManager.RecordDatasetLoaded(dataset, rows, columns, latencyMs)
}

// RecordDatasetLoadError counts a failed dataset load.
func RecordDatasetLoadError(dataset string) { globalManager.RecordDatasetLoadError(dataset) }

// UpdateDatasetLoadedAt sets the time the store was populated.
func UpdateDatasetLoadedAt(at time.Time) { globalManager.UpdateDatasetLoadedAt(at) }

// RecordQuery counts a query by outcome.
func RecordQuery(outcome string) { globalManager.RecordQuery(outcome) }

// RecordQueryStage records the latency of one pipeline stage.
func RecordQueryStage(stage string, latencyMs float64) {
	globalManager.RecordQueryStage(stage, latencyMs)
}

// RecordQueryResult records the sizes produced by a query.
func RecordQueryResult(attributes, measurements, returned, points int) {
	globalManager.RecordQueryResult(attributes, measurements, returned, points)
}

// RecordFilterValuesRequest counts a filter value lookup.
func RecordFilterValuesRequest(result string) { globalManager.RecordFilterValuesRequest(result) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode)
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.RecordHTTPRequestDuration(endpoint, method, statusCode, duration)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// RecordErrorByEndpoint records an error for an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.UpdateSystemGoroutineCount(count) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.RecordSystemGCPauseTime(pauseMs) }

// RefreshInterval returns the global manager's refresh interval.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
