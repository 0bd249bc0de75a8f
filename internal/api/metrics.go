package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRequestMetrics counts API requests and their latency.
type PrometheusRequestMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var _ MetricsCollector = (*PrometheusRequestMetrics)(nil)

// NewPrometheusRequestMetrics registers the collectors with reg.
func NewPrometheusRequestMetrics(reg prometheus.Registerer) *PrometheusRequestMetrics {
	factory := promauto.With(reg)
	return &PrometheusRequestMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "starnotify_http_requests_total",
			Help: "API requests by method, route and status",
		}, []string{"method", "route", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "starnotify_http_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *PrometheusRequestMetrics) RecordRequest(method, route, status string, duration time.Duration) {
	m.requests.WithLabelValues(method, route, status).Inc()
	m.latency.WithLabelValues(method, route).Observe(duration.Seconds())
}
