// Package triggers turns user trigger definitions into executable triggers:
// every-N-exposures notifications and condition-driven notifications.
package triggers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"starnotify/internal/notifications/pushover"
	"starnotify/internal/types"
)

// FlexString accepts either a JSON string or a JSON number and keeps the text.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// ConditionDefinition is the stored form of one condition.
type ConditionDefinition struct {
	Property      string     `json:"property" validate:"required"`
	Operator      string     `json:"operator" validate:"required"`
	Threshold     FlexString `json:"threshold"`
	RequiredCount FlexString `json:"required_count,omitempty"`
}

// Definition is the stored form of a trigger.
type Definition struct {
	ID             types.TriggerID       `json:"id" validate:"required"`
	Channel        types.ChannelType     `json:"channel" validate:"required,oneof=pushover ntfy email"`
	Mode           types.TriggerSource   `json:"mode" validate:"required,oneof=by_condition after_exposures"`
	AfterExposures int                   `json:"after_exposures,omitempty" validate:"gte=0"`
	Sound          string                `json:"sound,omitempty"`
	Priority       types.Priority        `json:"priority,omitempty"`
	Conditions     []ConditionDefinition `json:"conditions,omitempty" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseDefinitions decodes and validates a JSON array of trigger definitions.
func ParseDefinitions(raw []byte) ([]Definition, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var defs []Definition
	if err := dec.Decode(&defs); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidTrigger, "trigger definitions are not valid JSON", err)
	}

	seen := make(map[types.TriggerID]struct{}, len(defs))
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[defs[i].ID]; dup {
			return nil, types.NewAppError(types.ErrCodeValidationInvalidTrigger,
				fmt.Sprintf("duplicate trigger id %q", defs[i].ID), nil)
		}
		seen[defs[i].ID] = struct{}{}
	}
	return defs, nil
}

// Validate checks the definition's structure. Condition properties are
// checked against the registry when the trigger is built.
func (d *Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		details := map[string]any{"trigger_id": d.ID}
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s:%s", fe.Namespace(), fe.Tag()))
			}
			details["fields"] = fields
		}
		return types.NewAppError(types.ErrCodeValidationInvalidTrigger, "invalid trigger definition", err).WithDetails(details)
	}

	fail := func(format string, args ...any) error {
		return types.NewAppError(types.ErrCodeValidationInvalidTrigger, fmt.Sprintf(format, args...), nil).
			WithDetails(map[string]any{"trigger_id": d.ID})
	}

	switch d.Mode {
	case types.SourceAfterExposures:
		if d.AfterExposures < 1 {
			return fail("trigger %q: after_exposures must be at least 1", d.ID)
		}
	case types.SourceByCondition:
		if len(d.Conditions) == 0 {
			return fail("trigger %q: at least one condition is required", d.ID)
		}
		for _, c := range d.Conditions {
			if _, ok := types.ParseOperator(c.Operator); !ok {
				return fail("trigger %q: unknown operator %q", d.ID, c.Operator)
			}
		}
	}

	if !d.Priority.Valid() {
		return fail("trigger %q: unknown priority %q", d.ID, d.Priority)
	}
	if d.Sound != "" {
		if d.Channel != types.ChannelPushover {
			return fail("trigger %q: sound is only supported for pushover", d.ID)
		}
		if !pushover.ValidSound(d.Sound) {
			return fail("trigger %q: unknown pushover sound %q", d.ID, d.Sound)
		}
	}
	return nil
}
