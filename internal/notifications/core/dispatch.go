package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"starnotify/internal/types"
)

// DefaultDispatchTimeout bounds a single send.
const DefaultDispatchTimeout = 40 * time.Second

// Dispatcher sends a message through a Notifier under a deadline. Transport
// failures are logged and reported as not sent; only timeouts are returned
// as errors.
type Dispatcher struct {
	timeout  time.Duration
	canceler Canceler
	metrics  NotificationMetrics
	log      DeliveryLog
	clock    types.Clock
	logger   types.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout overrides DefaultDispatchTimeout.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d > 0 {
			x.timeout = d
		}
	}
}

// WithCanceler sets what is told to stop when a send times out.
func WithCanceler(c Canceler) DispatcherOption {
	return func(x *Dispatcher) { x.canceler = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m NotificationMetrics) DispatcherOption {
	return func(x *Dispatcher) { x.metrics = m }
}

// WithDeliveryLog sets where attempts are recorded.
func WithDeliveryLog(l DeliveryLog) DispatcherOption {
	return func(x *Dispatcher) { x.log = l }
}

// WithClock overrides the clock used for attempt timestamps.
func WithClock(c types.Clock) DispatcherOption {
	return func(x *Dispatcher) { x.clock = c }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(logger types.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		timeout: DefaultDispatchTimeout,
		metrics: NoopMetrics{},
		clock:   types.RealClock{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch races n.Send against the dispatch timeout. On timeout the send's
// context is cancelled, the canceler is told to skip, and an AppError with
// ErrCodeDispatchTimeout is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, n types.Notifier, msg types.Message) (bool, error) {
	channel := n.Channel()
	logger := d.logger.With("trigger_id", string(msg.TriggerID), "channel", string(channel))
	start := time.Now()

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("notifier panicked: %v", r)
			}
		}()
		done <- n.Send(sendCtx, msg)
	}()

	// A send that fails because its deadline passed is a timeout.
	if completed, err := awaitSend(sendCtx, done); completed && (err == nil || sendCtx.Err() == nil) {
		elapsed := time.Since(start)
		if err != nil {
			logger.Error("notification delivery failed", "error", err, "duration_ms", elapsed.Milliseconds())
			d.record(ctx, channel, msg, MetricFailed, err, elapsed)
			return false, nil
		}
		logger.Info("notification delivered", "duration_ms", elapsed.Milliseconds())
		d.record(ctx, channel, msg, MetricSuccess, nil, elapsed)
		return true, nil
	}

	elapsed := time.Since(start)
	if d.canceler != nil {
		d.canceler.Skip()
	}
	if ctx.Err() != nil {
		d.record(ctx, channel, msg, MetricFailed, ctx.Err(), elapsed)
		return false, ctx.Err()
	}
	err := types.NewAppError(types.ErrCodeDispatchTimeout,
		fmt.Sprintf("sending via %s exceeded %s", channel, d.timeout), sendCtx.Err())
	logger.Error("notification delivery timed out", "timeout", d.timeout)
	d.record(ctx, channel, msg, MetricTimeout, err, elapsed)
	return false, err
}

// awaitSend waits for the send result or the end of sendCtx. A result that is
// already available once sendCtx is done still counts as completed.
func awaitSend(sendCtx context.Context, done <-chan error) (bool, error) {
	select {
	case err := <-done:
		return true, err
	case <-sendCtx.Done():
		select {
		case err := <-done:
			return true, err
		default:
			return false, nil
		}
	}
}

// RecordSkipped notes a send that was suppressed before dispatch.
func (d *Dispatcher) RecordSkipped(ctx context.Context, channel types.ChannelType, msg types.Message) {
	d.record(ctx, channel, msg, MetricSkipped, nil, 0)
}

func (d *Dispatcher) record(ctx context.Context, channel types.ChannelType, msg types.Message, result MetricResult, cause error, elapsed time.Duration) {
	ctx = context.WithoutCancel(ctx)
	d.metrics.RecordDelivery(ctx, channel, result)
	if result != MetricSkipped {
		d.metrics.RecordLatency(ctx, channel, elapsed)
	}
	if d.log == nil {
		return
	}

	rec := DeliveryRecord{
		ID:         uuid.NewString(),
		TriggerID:  msg.TriggerID,
		Channel:    channel,
		Source:     msg.Source,
		Result:     result,
		Body:       msg.Body,
		AttemptAt:  d.clock.Now(),
		DurationMS: elapsed.Milliseconds(),
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := d.log.Record(ctx, rec); err != nil {
		d.logger.Warn("failed to record delivery", "error", err, "trigger_id", string(msg.TriggerID))
	}
}
