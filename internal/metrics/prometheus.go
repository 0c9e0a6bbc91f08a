package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the ingestion API
type PrometheusMetrics struct {
	// Ingestion metrics
	ReadingsIngestedTotal *prometheus.CounterVec
	APILogWritesTotal     *prometheus.CounterVec

	// Storage metrics
	DatabaseOperationsTotal   *prometheus.CounterVec
	DatabaseOperationDuration *prometheus.HistogramVec
	StoreConnectAttemptsTotal *prometheus.CounterVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates all metrics and registers them with reg. A nil
// reg uses the default Prometheus registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		ReadingsIngestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iot_readings_ingested_total",
				Help: "Total number of readings received, by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		APILogWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iot_api_log_writes_total",
				Help: "Total number of API log writes, by status",
			},
			[]string{"status"},
		),

		DatabaseOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iot_database_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "collection", "status"},
		),

		DatabaseOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "iot_database_operation_duration_seconds",
				Help:    "Duration of database operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "collection"},
		),

		StoreConnectAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iot_store_connect_attempts_total",
				Help: "Total number of store connection attempts, by outcome",
			},
			[]string{"outcome"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iot_http_requests_total",
				Help: "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "iot_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ApplicationUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "iot_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "iot_component_health",
				Help: "Health status of application components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "iot_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		GoroutineCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "iot_goroutines",
				Help: "Number of running goroutines",
			},
		),
	}
}

// RecordReadingIngested records the outcome of one ingestion attempt
func (m *PrometheusMetrics) RecordReadingIngested(source, outcome string) {
	m.ReadingsIngestedTotal.WithLabelValues(source, outcome).Inc()
}

// RecordAPILogWrite records the result of an API log write, "success" or
// "error"
func (m *PrometheusMetrics) RecordAPILogWrite(status string) {
	m.APILogWritesTotal.WithLabelValues(status).Inc()
}

// RecordDatabaseOperation records a database operation
func (m *PrometheusMetrics) RecordDatabaseOperation(operation, collection, status string, duration time.Duration) {
	m.DatabaseOperationsTotal.WithLabelValues(operation, collection, status).Inc()
	m.DatabaseOperationDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
}

// RecordStoreConnectAttempt records a single startup connection attempt
func (m *PrometheusMetrics) RecordStoreConnectAttempt(outcome string) {
	m.StoreConnectAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateApplicationUptime updates the application uptime metric
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates the health status of a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateMemoryUsage updates the memory usage metric
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates the goroutine count metric
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}
