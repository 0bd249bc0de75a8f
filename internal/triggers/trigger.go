package triggers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"starnotify/internal/conditions"
	"starnotify/internal/measurement"
	"starnotify/internal/notifications/core"
	"starnotify/internal/types"
)

// Trigger decides, per completed light exposure, whether to notify and then
// performs the notification.
type Trigger interface {
	ID() types.TriggerID
	Channel() types.ChannelType
	ShouldTrigger(exp types.Exposure) bool
	Execute(ctx context.Context, exp types.Exposure) error
	Status() Status
}

// Acquirer waits a bounded time for a complete measurement.
// *measurement.Poller implements it.
type Acquirer interface {
	Acquire(ctx context.Context, maxWait time.Duration) (*types.Snapshot, bool)
}

// Deps are the collaborators shared by all triggers.
type Deps struct {
	Acquirer   Acquirer
	MaxWait    time.Duration
	Evaluator  *conditions.Evaluator
	Renderer   *core.Renderer
	Dispatcher *core.Dispatcher
	Suppressor *core.DuplicateSuppressor
	Metrics    core.NotificationMetrics
	Logger     *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.MaxWait <= 0 {
		d.MaxWait = measurement.DefaultMaxWait
	}
	if d.Suppressor == nil {
		d.Suppressor = core.NewDuplicateSuppressor()
	}
	if d.Metrics == nil {
		d.Metrics = core.NoopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// ConditionStatus reports one condition of a by-condition trigger.
type ConditionStatus struct {
	Property      string             `json:"property"`
	Operator      types.Operator     `json:"operator"`
	Threshold     string             `json:"threshold"`
	RequiredCount string             `json:"required_count,omitempty"`
	State         conditions.Status  `json:"state"`
	Issues        []conditions.Issue `json:"issues,omitempty"`
}

// Status is a point-in-time view of a trigger.
type Status struct {
	ID             types.TriggerID     `json:"id"`
	Channel        types.ChannelType   `json:"channel"`
	Mode           types.TriggerSource `json:"mode"`
	AfterExposures int                 `json:"after_exposures,omitempty"`
	Session        uint64              `json:"session,omitempty"`
	LastFired      int                 `json:"last_fired_exposure,omitempty"`
	LastNotified   *time.Time          `json:"last_notified_image,omitempty"`
	Conditions     []ConditionStatus   `json:"conditions,omitempty"`
}

// Build creates triggers from definitions. Each definition's channel must have
// a notifier. Conditions with blocking validation issues are rejected.
func Build(defs []Definition, notifiers map[types.ChannelType]types.Notifier, reg *measurement.Registry, deps Deps) ([]Trigger, error) {
	deps = deps.withDefaults()
	out := make([]Trigger, 0, len(defs))

	for _, def := range defs {
		n, ok := notifiers[def.Channel]
		if !ok {
			return nil, types.NewAppError(types.ErrCodeNotFoundChannel,
				fmt.Sprintf("trigger %q: channel %s is not configured", def.ID, def.Channel), nil)
		}

		switch def.Mode {
		case types.SourceAfterExposures:
			t := NewAfterExposures(def.ID, def.AfterExposures, n, deps)
			t.Sound = def.Sound
			t.Priority = def.Priority
			out = append(out, t)
		case types.SourceByCondition:
			conds := make([]*conditions.Condition, 0, len(def.Conditions))
			for i, cd := range def.Conditions {
				op, _ := types.ParseOperator(cd.Operator)
				c := conditions.New(cd.Property, op, string(cd.Threshold), string(cd.RequiredCount))
				if issues := conditions.Blocking(c.Validate(reg)); len(issues) > 0 {
					return nil, types.NewAppError(types.ErrCodeValidationInvalidTrigger,
						fmt.Sprintf("trigger %q: condition %d: %s", def.ID, i+1, issues[0].Message), nil).
						WithDetails(map[string]any{"trigger_id": def.ID, "issues": issues})
				}
				conds = append(conds, c)
			}
			t := NewByCondition(def.ID, conds, n, reg, deps)
			t.Sound = def.Sound
			t.Priority = def.Priority
			out = append(out, t)
		default:
			return nil, types.NewAppError(types.ErrCodeValidationInvalidTrigger,
				fmt.Sprintf("trigger %q: unknown mode %q", def.ID, def.Mode), nil)
		}
	}
	return out, nil
}

// Find returns the trigger with id.
func Find(ts []Trigger, id types.TriggerID) (Trigger, bool) {
	for _, t := range ts {
		if t.ID() == id {
			return t, true
		}
	}
	return nil, false
}
