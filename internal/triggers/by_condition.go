package triggers

import (
	"context"
	"sync"

	"starnotify/internal/conditions"
	"starnotify/internal/measurement"
	"starnotify/internal/types"
)

// ByCondition notifies when at least one of its conditions is fulfilled by the
// latest light measurement. Each measurement is notified on at most once.
type ByCondition struct {
	id       types.TriggerID
	notifier types.Notifier
	registry *measurement.Registry
	deps     Deps

	// Sound and Priority are passed through to the transport.
	Sound    string
	Priority types.Priority

	mu    sync.RWMutex
	conds []*conditions.Condition
}

var _ Trigger = (*ByCondition)(nil)

// NewByCondition creates a condition-driven trigger.
func NewByCondition(id types.TriggerID, conds []*conditions.Condition, notifier types.Notifier, reg *measurement.Registry, deps Deps) *ByCondition {
	return &ByCondition{
		id:       id,
		notifier: notifier,
		registry: reg,
		deps:     deps.withDefaults(),
		conds:    conds,
	}
}

func (t *ByCondition) ID() types.TriggerID        { return t.id }
func (t *ByCondition) Channel() types.ChannelType { return t.notifier.Channel() }

// Conditions returns the trigger's conditions.
func (t *ByCondition) Conditions() []*conditions.Condition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*conditions.Condition(nil), t.conds...)
}

// ShouldTrigger reports whether any light exposure has completed.
func (t *ByCondition) ShouldTrigger(exp types.Exposure) bool {
	return exp.LightCount > 0
}

// Execute evaluates the conditions against the latest measurement and sends a
// notification when one is fulfilled. A measurement already notified on is
// not evaluated again. A missing measurement is not an error.
func (t *ByCondition) Execute(ctx context.Context, exp types.Exposure) error {
	logger := t.deps.Logger.With("trigger_id", string(t.id), "light_count", exp.LightCount)

	snap, ok := t.deps.Acquirer.Acquire(ctx, t.deps.MaxWait)
	if !ok {
		logger.InfoContext(ctx, "no measurement available, skipping evaluation")
		return nil
	}

	if t.deps.Suppressor.ShouldSkip(t.id, snap.Timestamp, false) {
		logger.DebugContext(ctx, "measurement already notified", "timestamp", snap.Timestamp)
		t.deps.Dispatcher.RecordSkipped(ctx, t.Channel(), types.Message{TriggerID: t.id, Source: types.SourceByCondition})
		return nil
	}

	fulfilled := t.deps.Evaluator.EvaluateAll(ctx, t.id, t.Conditions(), snap)
	t.deps.Metrics.RecordEvaluation(ctx, t.id, fulfilled)
	if !fulfilled {
		return nil
	}

	if t.deps.Suppressor.ShouldSkip(t.id, snap.Timestamp, true) {
		// Another execution committed this measurement first.
		return nil
	}

	msg := t.deps.Renderer.Render(t.id, types.SourceByCondition, snap)
	msg.Sound = t.Sound
	msg.Priority = t.Priority

	logger.InfoContext(ctx, "conditions fulfilled, sending notification", "channel", string(t.Channel()))
	_, err := t.deps.Dispatcher.Dispatch(ctx, t.notifier, msg)
	return err
}

// Status reports each condition's counter and validation issues.
func (t *ByCondition) Status() Status {
	conds := t.Conditions()
	st := Status{
		ID:         t.id,
		Channel:    t.Channel(),
		Mode:       types.SourceByCondition,
		Conditions: make([]ConditionStatus, 0, len(conds)),
	}
	if ts, ok := t.deps.Suppressor.Last(t.id); ok {
		last := ts
		st.LastNotified = &last
	}
	for _, c := range conds {
		st.Conditions = append(st.Conditions, ConditionStatus{
			Property:      c.Property,
			Operator:      c.Operator,
			Threshold:     c.Threshold,
			RequiredCount: c.RequiredCount,
			State:         c.Status(),
			Issues:        c.Validate(t.registry),
		})
	}
	return st
}

// Clone copies the trigger under a new id. Conditions are cloned with fresh
// counters.
func (t *ByCondition) Clone(id types.TriggerID) *ByCondition {
	conds := t.Conditions()
	cloned := make([]*conditions.Condition, len(conds))
	for i, c := range conds {
		cloned[i] = c.Clone()
	}
	out := NewByCondition(id, cloned, t.notifier, t.registry, t.deps)
	out.Sound = t.Sound
	out.Priority = t.Priority
	return out
}
