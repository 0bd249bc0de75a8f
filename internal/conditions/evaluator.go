package conditions

import (
	"context"
	"log/slog"
	"strings"

	"starnotify/internal/measurement"
	"starnotify/internal/types"
)

// Evaluator runs conditions against snapshots using the properties in a
// registry.
type Evaluator struct {
	registry *measurement.Registry
	logger   *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(registry *measurement.Registry, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{registry: registry, logger: logger}
}

// Evaluate compares the condition's property in snap against its threshold
// and updates the condition's consecutive-hit counter. Conditions that cannot
// be evaluated are skipped without touching the counter.
func (e *Evaluator) Evaluate(ctx context.Context, c *Condition, snap *types.Snapshot) bool {
	if c == nil || c.Property == "" || strings.TrimSpace(c.Threshold) == "" {
		return false
	}

	logger := e.logger.With("property", c.Property, "operator", string(c.Operator))

	prop, ok := e.registry.Lookup(c.Property)
	if !ok {
		logger.WarnContext(ctx, "condition references unknown property")
		return false
	}
	if !prop.Enabled() {
		logger.InfoContext(ctx, "condition skipped, property disabled")
		return false
	}

	actual, ok := prop.Value(snap)
	if !ok {
		logger.DebugContext(ctx, "condition skipped, value not present in measurement")
		return false
	}

	a, b, ok := measurement.Parse(prop.Type, actual.String(), c.Threshold)
	if !ok {
		logger.WarnContext(ctx, "condition skipped, value not parseable",
			"actual", actual.String(), "threshold", c.Threshold, "value_type", string(prop.Type))
		return false
	}

	hit, ok := Compare(c.Operator, a, b)
	if !ok {
		logger.WarnContext(ctx, "condition skipped, operator not applicable", "value_type", string(prop.Type))
		return false
	}

	return c.record(hit)
}

// EvaluateAll evaluates every condition and reports whether at least one is
// fulfilled. Fulfillment flags for id are cleared first and then set for each
// fulfilled condition's property. All conditions are evaluated so every
// counter advances.
func (e *Evaluator) EvaluateAll(ctx context.Context, id types.TriggerID, conds []*Condition, snap *types.Snapshot) bool {
	e.registry.ResetFulfilled(id)
	if len(conds) == 0 {
		return false
	}

	fulfilled := false
	for _, c := range conds {
		if e.Evaluate(ctx, c, snap) {
			e.registry.MarkFulfilled(id, c.Property)
			fulfilled = true
		}
	}
	return fulfilled
}
