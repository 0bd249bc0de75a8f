package conditions

import (
	"math"

	"starnotify/internal/measurement"
	"starnotify/internal/types"
)

type comparator func(actual, threshold types.Value) bool

var numericOperators = map[types.Operator]comparator{
	types.OpLessThan:    func(a, b types.Value) bool { return a.Float() < b.Float() },
	types.OpGreaterThan: func(a, b types.Value) bool { return a.Float() > b.Float() },
	types.OpEqual: func(a, b types.Value) bool {
		return math.Abs(a.Float()-b.Float()) < measurement.EqualityTolerance
	},
}

var textOperators = map[types.Operator]comparator{
	types.OpEqual:    func(a, b types.Value) bool { return a.Text() == b.Text() },
	types.OpNotEqual: func(a, b types.Value) bool { return a.Text() != b.Text() },
}

// Compare applies op to two values of the same type. ok is false when the
// operator does not apply to the type or the types differ.
func Compare(op types.Operator, actual, threshold types.Value) (result bool, ok bool) {
	if actual.Type != threshold.Type {
		return false, false
	}
	table := numericOperators
	if actual.Type == types.ValueText {
		table = textOperators
	}
	fn, ok := table[op]
	if !ok {
		return false, false
	}
	return fn(actual, threshold), true
}
