// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sleepwise"

// 插入结果（insight_submissions_total 的 outcome 标签）
const (
	OutcomeCreated    = "created"
	OutcomeInvalid    = "invalid"
	OutcomeNotFound   = "not_found"
	OutcomeUpstream   = "upstream_error"
	OutcomeStorage    = "storage_error"
	OutcomeReplayed   = "replayed"
	OutcomeUnexpected = "error"
)

// Metrics 每个实例持有独立的 Registry
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	predictionDuration *prometheus.HistogramVec
	insightSubmissions *prometheus.CounterVec
	eventPublishErrors prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms ~ 5s
		}, []string{"method", "route"}),
		predictionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "call_duration_seconds",
			Help:      "Duration of prediction service calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms ~ 20s
		}, []string{"success"}),
		insightSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "insights",
			Name:      "submissions_total",
			Help:      "Insight submissions by outcome.",
		}, []string{"outcome"}),
		eventPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "publish_errors_total",
			Help:      "insight.created events that could not be published.",
		}),
	}
	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.predictionDuration,
		m.insightSubmissions,
		m.eventPublishErrors,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncInFlight() { m.httpInFlight.Inc() }
func (m *Metrics) DecInFlight() { m.httpInFlight.Dec() }

// RecordHTTPRequest route 为路由模板（如 /insights），不是原始路径
func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) RecordPrediction(d time.Duration, success bool) {
	result := "false"
	if success {
		result = "true"
	}
	m.predictionDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) RecordSubmission(outcome string) {
	m.insightSubmissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordPublishError() { m.eventPublishErrors.Inc() }

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
