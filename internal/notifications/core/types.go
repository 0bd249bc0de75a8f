// Package core holds the transport-independent notification machinery:
// duplicate suppression, message rendering, timed dispatch to a Notifier,
// delivery bookkeeping and metrics.
package core

import (
	"context"
	"time"

	"starnotify/internal/types"
)

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
	MetricTimeout MetricResult = "timeout"
	MetricSkipped MetricResult = "skipped"
)

// Metric names and dimensions shared by the metrics backends.
const (
	DefaultMetricNamespace    = "StarNotify"
	MetricDeliveryAttempt     = "DeliveryAttempt"
	MetricConditionEvaluation = "ConditionEvaluation"
	DimChannel                = "Channel"
	DimResult                 = "Result"
	DimTrigger                = "Trigger"
)

// NotificationMetrics records delivery and evaluation telemetry.
type NotificationMetrics interface {
	RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult)
	RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration)
	RecordEvaluation(ctx context.Context, trigger types.TriggerID, fulfilled bool)
}

// NoopMetrics discards all telemetry.
type NoopMetrics struct{}

var _ NotificationMetrics = NoopMetrics{}

func (NoopMetrics) RecordDelivery(context.Context, types.ChannelType, MetricResult) {}

func (NoopMetrics) RecordLatency(context.Context, types.ChannelType, time.Duration) {}

func (NoopMetrics) RecordEvaluation(context.Context, types.TriggerID, bool) {}

// Canceler stops work that a timed-out send no longer needs. The measurement
// poller satisfies it.
type Canceler interface {
	Skip()
}

// DeliveryRecord is one dispatch attempt.
type DeliveryRecord struct {
	ID         string              `json:"id"`
	TriggerID  types.TriggerID     `json:"trigger_id"`
	Channel    types.ChannelType   `json:"channel"`
	Source     types.TriggerSource `json:"source"`
	Result     MetricResult        `json:"result"`
	Error      string              `json:"error,omitempty"`
	Body       string              `json:"body"`
	AttemptAt  time.Time           `json:"attempt_at"`
	DurationMS int64               `json:"duration_ms"`
}

// DeliveryLog persists dispatch attempts.
type DeliveryLog interface {
	Record(ctx context.Context, rec DeliveryRecord) error
	Recent(ctx context.Context, limit int) ([]DeliveryRecord, error)
}
