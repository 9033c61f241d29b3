package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the scanner
type PrometheusMetrics struct {
	// Cycle metrics
	CyclesTotal        prometheus.Counter
	CycleDuration      prometheus.Histogram
	LastCycleTimestamp prometheus.Gauge

	// Fetch metrics
	FetchRequestsTotal       *prometheus.CounterVec
	FetchDuration            *prometheus.HistogramVec
	TransactionsFetchedTotal *prometheus.CounterVec

	// Detection metrics
	DetectionsTotal   *prometheus.CounterVec
	SeenMints         prometheus.Gauge
	SinkFailuresTotal *prometheus.CounterVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime  prometheus.Gauge
	GoroutineCount     prometheus.Gauge
	MonitoredAddresses prometheus.Gauge
}

// NewPrometheusMetrics creates all metrics and registers them with reg
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		// Cycle metrics
		CyclesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "solscanner_cycles_total",
				Help: "Total number of completed scan cycles",
			},
		),

		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "solscanner_cycle_duration_seconds",
				Help:    "Time spent on a full scan cycle",
				Buckets: prometheus.DefBuckets,
			},
		),

		LastCycleTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "solscanner_last_cycle_timestamp_seconds",
				Help: "Unix time at which the last scan cycle completed",
			},
		),

		// Fetch metrics
		FetchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solscanner_fetch_requests_total",
				Help: "Total number of transaction history requests",
			},
			[]string{"label", "status"},
		),

		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solscanner_fetch_duration_seconds",
				Help:    "Duration of transaction history requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"label"},
		),

		TransactionsFetchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solscanner_transactions_fetched_total",
				Help: "Total number of transactions retrieved",
			},
			[]string{"label"},
		),

		// Detection metrics
		DetectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solscanner_detections_total",
				Help: "Total number of newly detected token mints",
			},
			[]string{"source"},
		),

		SeenMints: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "solscanner_seen_mints",
				Help: "Number of distinct mint addresses reported so far",
			},
		),

		SinkFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solscanner_sink_failures_total",
				Help: "Total number of detections a sink failed to accept",
			},
			[]string{"sink"},
		),

		// API metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solscanner_http_requests_total",
				Help: "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solscanner_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Application health metrics
		ApplicationUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "solscanner_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		GoroutineCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "solscanner_goroutines",
				Help: "Number of running goroutines",
			},
		),

		MonitoredAddresses: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "solscanner_monitored_addresses",
				Help: "Number of program addresses polled every cycle",
			},
		),
	}
}

// RecordCycle records a completed scan cycle
func (m *PrometheusMetrics) RecordCycle(duration time.Duration, completedAt time.Time) {
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(duration.Seconds())
	m.LastCycleTimestamp.Set(float64(completedAt.Unix()))
}

// RecordFetch records one transaction history request
func (m *PrometheusMetrics) RecordFetch(label, status string, transactions int, duration time.Duration) {
	m.FetchRequestsTotal.WithLabelValues(label, status).Inc()
	m.FetchDuration.WithLabelValues(label).Observe(duration.Seconds())
	if transactions > 0 {
		m.TransactionsFetchedTotal.WithLabelValues(label).Add(float64(transactions))
	}
}

// RecordDetection records a newly reported mint
func (m *PrometheusMetrics) RecordDetection(source string) {
	m.DetectionsTotal.WithLabelValues(source).Inc()
}

// UpdateSeenMints updates the seen set size
func (m *PrometheusMetrics) UpdateSeenMints(count int) {
	m.SeenMints.Set(float64(count))
}

// RecordSinkFailure records a sink rejecting a detection
func (m *PrometheusMetrics) RecordSinkFailure(sink string) {
	m.SinkFailuresTotal.WithLabelValues(sink).Inc()
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

// UpdateGoroutineCount updates the goroutine count metric
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}

// UpdateMonitoredAddresses updates the number of monitored addresses
func (m *PrometheusMetrics) UpdateMonitoredAddresses(count int) {
	m.MonitoredAddresses.Set(float64(count))
}
