package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// ValueType is the declared type of a measurement property.
type ValueType string

const (
	ValueNumber    ValueType = "number"
	ValueInteger   ValueType = "integer"
	ValueTimestamp ValueType = "timestamp"
	ValueText      ValueType = "text"
)

// Valid reports whether t is one of the known value types.
func (t ValueType) Valid() bool {
	switch t {
	case ValueNumber, ValueInteger, ValueTimestamp, ValueText:
		return true
	}
	return false
}

// Numeric reports whether values of this type are compared with <, > and =.
func (t ValueType) Numeric() bool {
	return t == ValueNumber || t == ValueInteger || t == ValueTimestamp
}

// Value is a tagged measurement value. Only the payload selected by Type is
// meaningful; timestamps are held as whole seconds since the Unix epoch (UTC).
type Value struct {
	Type ValueType
	num  float64
	i    int64
	text string
}

// NumberValue returns a floating point Value.
func NumberValue(f float64) Value { return Value{Type: ValueNumber, num: f} }

// IntegerValue returns an integer Value.
func IntegerValue(i int64) Value { return Value{Type: ValueInteger, i: i} }

// TextValue returns a text Value.
func TextValue(s string) Value { return Value{Type: ValueText, text: s} }

// TimestampValue returns a timestamp Value truncated to whole seconds.
func TimestampValue(t time.Time) Value { return Value{Type: ValueTimestamp, i: t.Unix()} }

// Float projects numeric values onto float64. Text yields 0.
func (v Value) Float() float64 {
	switch v.Type {
	case ValueNumber:
		return v.num
	case ValueInteger, ValueTimestamp:
		return float64(v.i)
	}
	return 0
}

// Int returns the integer payload of integer and timestamp values.
func (v Value) Int() int64 {
	if v.Type == ValueNumber {
		return int64(v.num)
	}
	return v.i
}

// Text returns the text payload.
func (v Value) Text() string { return v.text }

// Time returns the timestamp payload in UTC.
func (v Value) Time() time.Time { return time.Unix(v.i, 0).UTC() }

// String formats the value the way it is shown in messages and fed back
// through the parser.
func (v Value) String() string {
	switch v.Type {
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueInteger:
		return strconv.FormatInt(v.i, 10)
	case ValueTimestamp:
		return v.Time().Format(time.RFC3339)
	case ValueText:
		return v.text
	}
	return ""
}

// MarshalJSON encodes the payload as a native JSON number or string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueInteger:
		return json.Marshal(v.i)
	default:
		return json.Marshal(v.String())
	}
}
