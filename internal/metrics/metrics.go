package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	// HTTP request metrics
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Record validation metrics
	RecordValidationTotal      *prometheus.CounterVec
	DocumentValidationDuration *prometheus.HistogramVec

	// Report store operation metrics
	ReportStoreTotal    *prometheus.CounterVec
	ReportStoreDuration *prometheus.HistogramVec

	// Schema check metrics
	SchemaCheckTotal    *prometheus.CounterVec
	SchemaCheckDuration *prometheus.HistogramVec

	// Content fetch metrics
	ContentFetchTotal *prometheus.CounterVec
}

// Global metrics instance with mutex for thread safety
var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// NewMetrics creates a new Metrics instance with all required metrics
func NewMetrics() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	// Return existing instance if already created
	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		RecordValidationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "record_validation_total",
			Help: "Total number of validated records",
		}, []string{"data_type", "conformance"}),

		DocumentValidationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "document_validation_duration_seconds",
			Help:    "Document validation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),

		ReportStoreTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_store_operations_total",
			Help: "Total number of report store operations",
		}, []string{"operation", "status"}),

		ReportStoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "report_store_operation_duration_seconds",
			Help:    "Report store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),

		SchemaCheckTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schema_check_total",
			Help: "Total number of schema checks",
		}, []string{"outcome"}),

		SchemaCheckDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schema_check_duration_seconds",
			Help:    "Schema check duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),

		ContentFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_fetch_total",
			Help: "Total number of link content fetches",
		}, []string{"status"}),
	}

	// Register metrics with the default registry
	registerMetrics(m)

	// Store as global instance
	globalMetrics = m

	return m
}

// registerMetrics registers all metrics with the default registry
func registerMetrics(m *Metrics) {
	// Try to register each metric, ignore if already registered
	registerOrGet(m.HTTPRequestTotal)
	registerOrGet(m.HTTPRequestDuration)
	registerOrGet(m.RecordValidationTotal)
	registerOrGet(m.DocumentValidationDuration)
	registerOrGet(m.ReportStoreTotal)
	registerOrGet(m.ReportStoreDuration)
	registerOrGet(m.SchemaCheckTotal)
	registerOrGet(m.SchemaCheckDuration)
	registerOrGet(m.ContentFetchTotal)
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		// If already registered, return the existing collector
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
