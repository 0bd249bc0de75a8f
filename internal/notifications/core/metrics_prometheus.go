package core

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"starnotify/internal/types"
)

// PrometheusNotificationMetrics exposes notification telemetry for scraping.
type PrometheusNotificationMetrics struct {
	deliveries  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	evaluations *prometheus.CounterVec
}

var _ NotificationMetrics = (*PrometheusNotificationMetrics)(nil)

// NewPrometheusNotificationMetrics registers the collectors with reg.
func NewPrometheusNotificationMetrics(reg prometheus.Registerer) *PrometheusNotificationMetrics {
	factory := promauto.With(reg)
	return &PrometheusNotificationMetrics{
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starnotify_deliveries_total",
				Help: "Notification dispatch attempts by channel and result",
			},
			[]string{"channel", "result"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "starnotify_delivery_duration_seconds",
				Help:    "Time spent sending a notification",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
			},
			[]string{"channel"},
		),
		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starnotify_condition_evaluations_total",
				Help: "Condition set evaluations by trigger and outcome",
			},
			[]string{"trigger", "fulfilled"},
		),
	}
}

func (m *PrometheusNotificationMetrics) RecordDelivery(_ context.Context, channel types.ChannelType, result MetricResult) {
	m.deliveries.WithLabelValues(string(channel), string(result)).Inc()
}

func (m *PrometheusNotificationMetrics) RecordLatency(_ context.Context, channel types.ChannelType, duration time.Duration) {
	m.latency.WithLabelValues(string(channel)).Observe(duration.Seconds())
}

func (m *PrometheusNotificationMetrics) RecordEvaluation(_ context.Context, trigger types.TriggerID, fulfilled bool) {
	m.evaluations.WithLabelValues(string(trigger), strconv.FormatBool(fulfilled)).Inc()
}
