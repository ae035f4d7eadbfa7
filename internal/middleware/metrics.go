package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	HttpResponseSize    *prometheus.HistogramVec

	// Backend call metrics
	BackendCallsTotal   *prometheus.CounterVec
	BackendCallDuration *prometheus.HistogramVec

	// Response parsing metrics
	ParseOutcomes *prometheus.CounterVec

	// Console session metrics
	ActiveSessions prometheus.Gauge
	RejectedCalls  *prometheus.CounterVec

	// Data source metrics
	DataSourceUp *prometheus.GaugeVec
}

var (
	metrics     *PrometheusMetrics
	metricsOnce sync.Once
)

// InitMetrics registers all Prometheus metrics with the default registry.
// Calling it more than once is a no-op.
func InitMetrics() {
	metricsOnce.Do(func() {
		metrics = newPrometheusMetrics(promauto.With(prometheus.DefaultRegisterer))
	})
}

func newPrometheusMetrics(factory promauto.Factory) *PrometheusMetrics {
	return &PrometheusMetrics{
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlconsole_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlconsole_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HttpResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlconsole_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "endpoint"},
		),

		BackendCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlconsole_backend_calls_total",
				Help: "Total number of calls to the text-to-SQL backend",
			},
			[]string{"endpoint", "outcome"},
		),
		BackendCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlconsole_backend_call_duration_seconds",
				Help:    "Latency of calls to the text-to-SQL backend in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"endpoint"},
		),

		ParseOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlconsole_parse_outcomes_total",
				Help: "Backend responses parsed, by parser and whether anything was extracted",
			},
			[]string{"parser", "outcome"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sqlconsole_active_sessions",
				Help: "Number of live console sessions",
			},
		),
		RejectedCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlconsole_session_rejected_total",
				Help: "Session operations rejected before reaching the backend",
			},
			[]string{"operation", "code"},
		),

		DataSourceUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sqlconsole_datasource_up",
				Help: "Whether the data source answered its last connection check (1=up, 0=down)",
			},
			[]string{"datasource_id"},
		),
	}
}

// PrometheusMiddleware is a Gin middleware that records HTTP metrics
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		endpoint := c.FullPath()

		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.HttpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		metrics.HttpRequestDuration.WithLabelValues(method, endpoint).Observe(duration)

		if c.Writer.Size() > 0 {
			metrics.HttpResponseSize.WithLabelValues(method, endpoint).Observe(float64(c.Writer.Size()))
		}
	}
}

// RecordBackendCall records one backend round trip. outcome is "ok",
// "rejected" or "unavailable".
func RecordBackendCall(endpoint, outcome string, duration time.Duration) {
	if metrics == nil {
		return
	}

	metrics.BackendCallsTotal.WithLabelValues(endpoint, outcome).Inc()
	metrics.BackendCallDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordParseOutcome records whether a parser extracted anything.
func RecordParseOutcome(parser string, extracted bool) {
	if metrics == nil {
		return
	}

	outcome := "empty"
	if extracted {
		outcome = "extracted"
	}
	metrics.ParseOutcomes.WithLabelValues(parser, outcome).Inc()
}

// SetActiveSessions updates the live session gauge
func SetActiveSessions(n int) {
	if metrics == nil {
		return
	}

	metrics.ActiveSessions.Set(float64(n))
}

// RecordRejectedCall records a session operation refused locally
func RecordRejectedCall(operation, code string) {
	if metrics == nil {
		return
	}

	metrics.RejectedCalls.WithLabelValues(operation, code).Inc()
}

// UpdateDataSourceUp updates data source connectivity
func UpdateDataSourceUp(datasourceID string, up bool) {
	if metrics == nil {
		return
	}

	upValue := 0.0
	if up {
		upValue = 1.0
	}
	metrics.DataSourceUp.WithLabelValues(datasourceID).Set(upValue)
}
