// Package conditions evaluates user-authored comparisons against the latest
// measurement, with per-condition consecutive-hit debouncing.
package conditions

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"starnotify/internal/measurement"
	"starnotify/internal/types"
)

// Condition compares one property against a threshold. Threshold and
// RequiredCount hold text as entered by the user; RequiredCount falls back to
// 1 when empty or not a positive whole number.
type Condition struct {
	Property      string
	Operator      types.Operator
	Threshold     string
	RequiredCount string

	mu      sync.Mutex
	counter HitCounter
}

// New returns a condition with an idle counter.
func New(property string, op types.Operator, threshold, requiredCount string) *Condition {
	c := &Condition{
		Property:      property,
		Operator:      op,
		Threshold:     threshold,
		RequiredCount: requiredCount,
	}
	c.counter = NewHitCounter(c.Required())
	return c
}

// Required returns the effective required consecutive-hit count.
func (c *Condition) Required() int {
	n, err := strconv.Atoi(strings.TrimSpace(c.RequiredCount))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Status is a point-in-time view of a condition's counter.
type Status struct {
	Count    int               `json:"count"`
	Required int               `json:"required"`
	Level    types.StatusLevel `json:"level"`
}

// Status returns the current counter state.
func (c *Condition) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Count:    c.counter.Count(),
		Required: c.Required(),
		Level:    c.counter.Phase().Level(),
	}
}

// record feeds one comparison outcome into the counter and reports whether
// the condition is now fulfilled.
func (c *Condition) record(hit bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter.SetRequired(c.Required())
	if !hit {
		c.counter.Miss()
		return false
	}
	return c.counter.Hit() == PhaseMet
}

// Clone copies the configuration with a fresh counter.
func (c *Condition) Clone() *Condition {
	return New(c.Property, c.Operator, c.Threshold, c.RequiredCount)
}

// Issue is one problem found by Validate. Warnings do not prevent
// evaluation from being configured; the condition is skipped until resolved.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Warning bool   `json:"warning,omitempty"`
}

// Blocking returns the issues that are not warnings.
func Blocking(issues []Issue) []Issue {
	var out []Issue
	for _, i := range issues {
		if !i.Warning {
			out = append(out, i)
		}
	}
	return out
}

// Validate checks the condition against the registry. An empty result means
// the condition can be evaluated.
func (c *Condition) Validate(reg *measurement.Registry) []Issue {
	var issues []Issue

	if c.Property == "" {
		issues = append(issues, Issue{Field: "property", Message: "Parameter for condition is missing"})
	}
	if c.Operator == "" {
		issues = append(issues, Issue{Field: "operator", Message: "Operator for condition is missing"})
	}
	if strings.TrimSpace(c.RequiredCount) != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(c.RequiredCount)); err != nil || n < 1 {
			issues = append(issues, Issue{Field: "required_count", Message: "Consecutive count must be a positive whole number"})
		}
	}
	if c.Property == "" {
		return issues
	}

	prop, ok := reg.Lookup(c.Property)
	if !ok {
		return append(issues, Issue{Field: "property", Message: fmt.Sprintf("Unknown parameter %q", c.Property)})
	}
	if !prop.Enabled() {
		issues = append(issues, Issue{Field: "property", Message: "Selected parameter is not enabled in configuration!", Warning: true})
	}
	if c.Operator != "" && !c.Operator.SupportedBy(prop.Type) {
		issues = append(issues, Issue{Field: "operator", Message: fmt.Sprintf("Operator %s is not valid for %s values", c.Operator, prop.Type)})
	}
	if strings.TrimSpace(c.Threshold) == "" {
		issues = append(issues, Issue{Field: "threshold", Message: "Value for condition is missing"})
	} else if _, ok := measurement.ParseValue(prop.Type, c.Threshold); !ok {
		issues = append(issues, Issue{Field: "threshold", Message: fmt.Sprintf("Value %q is not a valid %s", c.Threshold, prop.Type)})
	}
	return issues
}

// DefaultThreshold returns a template threshold for a newly selected property.
func DefaultThreshold(vt types.ValueType, now time.Time) string {
	switch vt {
	case types.ValueText:
		return "Filter 1"
	case types.ValueTimestamp:
		return now.UTC().Format("2006-01-02 15:04:05")
	default:
		return "0"
	}
}
