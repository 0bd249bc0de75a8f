package measurement

import (
	"fmt"
	"math"

	"starnotify/internal/types"
)

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func number(f *float64, round bool) (types.Value, bool) {
	if f == nil {
		return types.Value{}, false
	}
	if round {
		return types.NumberValue(round2(*f)), true
	}
	return types.NumberValue(*f), true
}

func integer(i *int) (types.Value, bool) {
	if i == nil {
		return types.Value{}, false
	}
	return types.IntegerValue(int64(*i)), true
}

func rmsScale(r *types.RMS) float64 {
	if r.Scale <= 0 {
		return 1
	}
	return r.Scale
}

// DefaultDefinitions returns the imaging properties in the order they appear
// in rendered messages. All are enabled.
func DefaultDefinitions() []Definition {
	defs := []Definition{
		{Name: "Time", DisplayName: "Time", Type: types.ValueTimestamp, Accessor: func(s *types.Snapshot) (types.Value, bool) {
			if s.Timestamp.IsZero() {
				return types.Value{}, false
			}
			return types.TimestampValue(s.Timestamp), true
		}},
		{Name: "RMSTotal", DisplayName: "RMS total", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) {
			if s.RMS == nil {
				return types.Value{}, false
			}
			return types.NumberValue(round2(s.RMS.Total)), true
		}},
		{Name: "RMSDec", DisplayName: "RMS DEC", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) {
			if s.RMS == nil {
				return types.Value{}, false
			}
			return types.NumberValue(round2(s.RMS.Dec * rmsScale(s.RMS))), true
		}},
		{Name: "RMSRa", DisplayName: "RMS RA", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) {
			if s.RMS == nil {
				return types.Value{}, false
			}
			return types.NumberValue(round2(s.RMS.RA * rmsScale(s.RMS))), true
		}},
		{Name: "HFR", DisplayName: "HFR", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) { return number(s.HFR, true) }},
		{Name: "Mean", DisplayName: "Mean", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) { return number(s.Mean, true) }},
		{Name: "Median", DisplayName: "Median", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) { return number(s.Median, true) }},
		{Name: "Min", DisplayName: "Min", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) { return number(s.Min, true) }},
		{Name: "Max", DisplayName: "Max", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) { return number(s.Max, true) }},
		{Name: "Temperature", DisplayName: "Temperature", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) { return number(s.Temperature, true) }},
		{Name: "FocuserPosition", DisplayName: "Focuser position", Type: types.ValueInteger, Accessor: func(s *types.Snapshot) (types.Value, bool) { return integer(s.FocuserPosition) }},
		{Name: "Filter", DisplayName: "Filter", Type: types.ValueText, Accessor: func(s *types.Snapshot) (types.Value, bool) {
			if s.Filter == "" {
				return types.Value{}, false
			}
			return types.TextValue(s.Filter), true
		}},
		{Name: "RotatorMechanicalPosition", DisplayName: "Rotator mechanical position", Type: types.ValueInteger, Accessor: func(s *types.Snapshot) (types.Value, bool) {
			return integer(s.RotatorMechanicalPosition)
		}},
		{Name: "StDev", DisplayName: "StDev", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) { return number(s.StDev, true) }},
		{Name: "RotatorPosition", DisplayName: "Rotator position", Type: types.ValueInteger, Accessor: func(s *types.Snapshot) (types.Value, bool) { return integer(s.RotatorPosition) }},
		{Name: "Stars", DisplayName: "Stars", Type: types.ValueInteger, Accessor: func(s *types.Snapshot) (types.Value, bool) { return integer(s.Stars) }},
		{Name: "Duration", DisplayName: "Duration", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) { return number(s.Duration, false) }},
		{Name: "MAD", DisplayName: "MAD", Type: types.ValueNumber, Accessor: func(s *types.Snapshot) (types.Value, bool) { return number(s.MAD, false) }},
		{Name: "Target", DisplayName: "Target", Type: types.ValueText, Accessor: func(s *types.Snapshot) (types.Value, bool) {
			if s.Target == nil || s.Target.Name == "" {
				return types.Value{}, false
			}
			return types.TextValue(fmt.Sprintf("%s  DEC: %s RA: %s", s.Target.Name, s.Target.Dec, s.Target.RA)), true
		}},
	}
	for i := range defs {
		defs[i].Enabled = true
	}
	return defs
}

// RegisterDefaults registers DefaultDefinitions, leaving the named
// properties disabled.
func RegisterDefaults(r *Registry, disabled []string) error {
	off := make(map[string]struct{}, len(disabled))
	for _, name := range disabled {
		off[name] = struct{}{}
	}

	defs := DefaultDefinitions()
	known := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		known[def.Name] = struct{}{}
		if _, skip := off[def.Name]; skip {
			def.Enabled = false
		}
		if _, err := r.Register(def); err != nil {
			return err
		}
	}
	for name := range off {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("cannot disable unknown property %q", name)
		}
	}
	return nil
}
