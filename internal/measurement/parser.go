package measurement

import (
	"math"
	"strconv"
	"strings"
	"time"

	"starnotify/internal/types"
)

// EqualityTolerance is the absolute difference under which two numeric values
// compare equal. Upstream values are rounded to two decimals.
const EqualityTolerance = 0.01

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// Parse converts the measured text and the threshold text into values of
// type vt. It reports false when either side does not parse; text values
// must contain something other than whitespace.
func Parse(vt types.ValueType, actual, threshold string) (types.Value, types.Value, bool) {
	a, ok := ParseValue(vt, actual)
	if !ok {
		return types.Value{}, types.Value{}, false
	}
	b, ok := ParseValue(vt, threshold)
	if !ok {
		return types.Value{}, types.Value{}, false
	}
	return a, b, true
}

// ParseValue converts a single text value.
func ParseValue(vt types.ValueType, text string) (types.Value, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return types.Value{}, false
	}

	switch vt {
	case types.ValueNumber:
		f, ok := parseFloat(trimmed)
		if !ok {
			return types.Value{}, false
		}
		return types.NumberValue(f), true
	case types.ValueInteger:
		i, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return types.Value{}, false
		}
		return types.IntegerValue(i), true
	case types.ValueTimestamp:
		t, ok := parseTimestamp(trimmed)
		if !ok {
			return types.Value{}, false
		}
		return types.TimestampValue(t), true
	case types.ValueText:
		return types.TextValue(text), true
	}
	return types.Value{}, false
}

// parseFloat accepts a single comma as the decimal separator when no dot is
// present.
func parseFloat(s string) (float64, bool) {
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseTimestamp tries each known layout. Layouts without a zone are read in
// time.Local, which the config loader pins to UTC.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
