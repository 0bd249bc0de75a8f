package measurement

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starnotify/internal/types"
)

func TestParse_Number(t *testing.T) {
	a, b, ok := Parse(types.ValueNumber, "10.004", " 10.00 ")
	require.True(t, ok)
	assert.Equal(t, 10.004, a.Float())
	assert.Equal(t, 10.0, b.Float())

	a, _, ok = Parse(types.ValueNumber, "2,5", "1")
	require.True(t, ok)
	assert.Equal(t, 2.5, a.Float())
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name      string
		vt        types.ValueType
		actual    string
		threshold string
	}{
		{"number garbage", types.ValueNumber, "abc", "1"},
		{"number NaN", types.ValueNumber, "NaN", "1"},
		{"number Inf", types.ValueNumber, "1", "+Inf"},
		{"integer with decimals", types.ValueInteger, "12.5", "3"},
		{"timestamp garbage", types.ValueTimestamp, "yesterday", "2024-01-01"},
		{"text empty threshold", types.ValueText, "Ha", ""},
		{"text whitespace actual", types.ValueText, "   ", "Ha"},
		{"unknown type", types.ValueType("bool"), "true", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := Parse(tt.vt, tt.actual, tt.threshold)
			assert.False(t, ok)
		})
	}
}

func TestParse_TimestampLayouts(t *testing.T) {
	want := time.Date(2024, 3, 1, 22, 15, 0, 0, time.UTC).Unix()
	inputs := []string{
		"2024-03-01T22:15:00Z",
		"2024-03-01T23:15:00+01:00",
		"2024-03-01T22:15:00",
		"2024-03-01 22:15:00",
		"2024-03-01 22:15",
		"03/01/2024 22:15:00",
	}

	prev := time.Local
	time.Local = time.UTC
	t.Cleanup(func() { time.Local = prev })

	for _, in := range inputs {
		v, ok := ParseValue(types.ValueTimestamp, in)
		require.True(t, ok, in)
		assert.Equal(t, want, v.Int(), in)
	}
}

func TestParse_TextKeepsRawValue(t *testing.T) {
	a, b, ok := Parse(types.ValueText, "Filter1", "Filter 1")
	require.True(t, ok)
	assert.Equal(t, "Filter1", a.Text())
	assert.Equal(t, "Filter 1", b.Text())
}

func TestParse_TwoDecimalRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 0.005, 1.234, -17.999, 1234.5678, 99.995} {
		text := strconv.FormatFloat(f, 'f', 2, 64)
		v, ok := ParseValue(types.ValueNumber, text)
		require.True(t, ok, text)
		assert.Less(t, math.Abs(v.Float()-f), EqualityTolerance, text)
	}
}
