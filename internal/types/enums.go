package types

import "strings"

// TriggerID identifies the logical consumer that owns fulfillment and
// duplicate-suppression state, for example "pushover-low-stars".
type TriggerID string

// Operator is a comparison between a measured value and a threshold.
type Operator string

const (
	OpLessThan    Operator = "<"
	OpGreaterThan Operator = ">"
	OpEqual       Operator = "="
	OpNotEqual    Operator = "≠"
)

var operatorAliases = map[string]Operator{
	"<":      OpLessThan,
	"lt":     OpLessThan,
	">":      OpGreaterThan,
	"gt":     OpGreaterThan,
	"=":      OpEqual,
	"==":     OpEqual,
	"eq":     OpEqual,
	"≠":      OpNotEqual,
	"!=":     OpNotEqual,
	"<>":     OpNotEqual,
	"ne":     OpNotEqual,
}

// ParseOperator accepts the canonical symbols and a few ASCII spellings.
func ParseOperator(s string) (Operator, bool) {
	op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]
	return op, ok
}

// OperatorsFor returns the operators a property of type t can be compared with.
func OperatorsFor(t ValueType) []Operator {
	switch {
	case t == ValueText:
		return []Operator{OpEqual, OpNotEqual}
	case t.Numeric():
		return []Operator{OpLessThan, OpGreaterThan, OpEqual}
	}
	return nil
}

// SupportedBy reports whether the operator applies to values of type t.
func (o Operator) SupportedBy(t ValueType) bool {
	for _, candidate := range OperatorsFor(t) {
		if candidate == o {
			return true
		}
	}
	return false
}

// StatusLevel is the display level of a condition's consecutive-hit counter.
// StatusMet renders as "error": it marks a reached threshold, not a fault.
type StatusLevel string

const (
	StatusOK      StatusLevel = "ok"
	StatusWarning StatusLevel = "warning"
	StatusMet     StatusLevel = "error"
)

// TriggerSource tells the renderer which kind of trigger produced a message.
type TriggerSource string

const (
	SourceDefault        TriggerSource = "default"
	SourceByCondition    TriggerSource = "by_condition"
	SourceAfterExposures TriggerSource = "after_exposures"
)

// ChannelType identifies a notification transport.
type ChannelType string

const (
	ChannelPushover ChannelType = "pushover"
	ChannelNtfy     ChannelType = "ntfy"
	ChannelEmail    ChannelType = "email"
)

// Priority is the transport-neutral urgency of a message.
type Priority string

const (
	PriorityLowest  Priority = "lowest"
	PriorityLow     Priority = "low"
	PriorityNormal  Priority = "normal"
	PriorityHigh    Priority = "high"
	PriorityHighest Priority = "highest"
)

// Valid reports whether p is a known priority. The empty priority is valid
// and treated as PriorityNormal by transports.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLowest, PriorityLow, PriorityNormal, PriorityHigh, PriorityHighest:
		return true
	}
	return false
}
