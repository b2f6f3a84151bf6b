// Package metrics provides Prometheus metrics for docsim
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for docsim
type Metrics struct {
	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Batch operation metrics
	BatchOperationsTotal   *prometheus.CounterVec
	BatchOperationDuration *prometheus.HistogramVec
	BatchRecordsAffected   *prometheus.CounterVec

	// Transition metrics
	TransitionsTotal *prometheus.CounterVec

	// Record registry metrics
	RecordsByStatus      *prometheus.GaugeVec
	RecordQueriesTotal   prometheus.Counter
	FragmentQueriesTotal prometheus.Counter

	// Ingestion metrics
	SyncRunsTotal         prometheus.Counter
	SyncRecordsAddedTotal prometheus.Counter

	// Pipeline simulator metrics
	PipelineTicksTotal       prometheus.Counter
	PipelineTransitionsTotal *prometheus.CounterVec

	// Server metrics
	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates and registers all metrics on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates and registers all metrics on the given
// registerer. Tests pass a fresh registry to avoid duplicate registration.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	// HTTP request metrics
	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsim_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docsim_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "docsim_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Batch operation metrics
	m.BatchOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsim_batch_operations_total",
			Help: "Total number of batch transition runs",
		},
		[]string{"operation", "status"},
	)

	m.BatchOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docsim_batch_operation_duration_seconds",
			Help:    "Duration of batch transition runs in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	m.BatchRecordsAffected = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsim_batch_records_affected_total",
			Help: "Total number of records forced back to Pending by batch runs",
		},
		[]string{"operation"},
	)

	// Transition metrics
	m.TransitionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsim_transitions_total",
			Help: "Total number of per-record transition attempts by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Record registry metrics
	m.RecordsByStatus = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docsim_records_by_status",
			Help: "Number of records currently in each status",
		},
		[]string{"status"},
	)

	m.RecordQueriesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docsim_record_queries_total",
			Help: "Total number of record list queries",
		},
	)

	m.FragmentQueriesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docsim_fragment_queries_total",
			Help: "Total number of fragment list queries",
		},
	)

	// Ingestion metrics
	m.SyncRunsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docsim_sync_runs_total",
			Help: "Total number of ingestion refresh runs",
		},
	)

	m.SyncRecordsAddedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docsim_sync_records_added_total",
			Help: "Total number of records added by ingestion refreshes",
		},
	)

	// Pipeline simulator metrics
	m.PipelineTicksTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docsim_pipeline_ticks_total",
			Help: "Total number of pipeline simulator ticks",
		},
	)

	m.PipelineTransitionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsim_pipeline_transitions_total",
			Help: "Total number of pipeline-driven status transitions",
		},
		[]string{"transition"},
	)

	// Server metrics
	m.ServerUptimeSeconds = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "docsim_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
	)

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime periodically updates the server uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
	}
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordBatchOperation records one batch transition run
func (m *Metrics) RecordBatchOperation(operation string, affected int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.BatchOperationsTotal.WithLabelValues(operation, status).Inc()
	m.BatchOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.BatchRecordsAffected.WithLabelValues(operation).Add(float64(affected))
}

// RecordTransitions records a batch of per-record transition attempts
// sharing the same outcome
func (m *Metrics) RecordTransitions(operation, outcome string, count int) {
	if count <= 0 {
		return
	}
	m.TransitionsTotal.WithLabelValues(operation, outcome).Add(float64(count))
}

// RecordSync records one ingestion refresh run
func (m *Metrics) RecordSync(added int) {
	m.SyncRunsTotal.Inc()
	m.SyncRecordsAddedTotal.Add(float64(added))
}

// RecordPipelineTransition records one pipeline-driven transition
func (m *Metrics) RecordPipelineTransition(transition string) {
	m.PipelineTransitionsTotal.WithLabelValues(transition).Inc()
}

// UpdateRecordCounts updates the records-by-status gauges
func (m *Metrics) UpdateRecordCounts(pending, processing, completed, rejected int) {
	m.RecordsByStatus.WithLabelValues("Pending").Set(float64(pending))
	m.RecordsByStatus.WithLabelValues("Processing").Set(float64(processing))
	m.RecordsByStatus.WithLabelValues("Completed").Set(float64(completed))
	m.RecordsByStatus.WithLabelValues("Rejected").Set(float64(rejected))
}
