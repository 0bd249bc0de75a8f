package conditions

import "starnotify/internal/types"

// Phase is the state of a HitCounter.
type Phase int

const (
	// PhaseIdle: no hit since the last miss.
	PhaseIdle Phase = iota
	// PhaseWarning: at least one hit, fewer than required.
	PhaseWarning
	// PhaseMet: the required number of consecutive hits was reached.
	PhaseMet
)

// Level maps the phase to its display level.
func (p Phase) Level() types.StatusLevel {
	switch p {
	case PhaseWarning:
		return types.StatusWarning
	case PhaseMet:
		return types.StatusMet
	default:
		return types.StatusOK
	}
}

// HitCounter counts back-to-back hits. The count saturates at the required
// value, so it never grows past what the phase derivation needs.
type HitCounter struct {
	count    int
	required int
	phase    Phase
}

// NewHitCounter returns an idle counter. required below 1 is treated as 1.
func NewHitCounter(required int) HitCounter {
	if required < 1 {
		required = 1
	}
	return HitCounter{required: required}
}

// Hit records a true comparison and returns the new phase.
func (c *HitCounter) Hit() Phase {
	if c.required < 1 {
		c.required = 1
	}
	if c.count < c.required {
		c.count++
	}
	c.phase = phaseFor(c.count, c.required)
	return c.phase
}

// Miss resets the counter to idle.
func (c *HitCounter) Miss() {
	c.count = 0
	c.phase = PhaseIdle
}

// SetRequired changes the required hits, clamping the current count.
func (c *HitCounter) SetRequired(required int) {
	if required < 1 {
		required = 1
	}
	c.required = required
	if c.count > required {
		c.count = required
	}
	c.phase = phaseFor(c.count, c.required)
}

// Count returns the current consecutive-hit count.
func (c HitCounter) Count() int { return c.count }

// Required returns the hits needed to reach PhaseMet.
func (c HitCounter) Required() int { return c.required }

// Phase returns the current phase.
func (c HitCounter) Phase() Phase { return c.phase }

// Met reports whether the counter reached the required hits.
func (c HitCounter) Met() bool { return c.phase == PhaseMet }

func phaseFor(count, required int) Phase {
	switch {
	case count < 1:
		return PhaseIdle
	case count < required:
		return PhaseWarning
	default:
		return PhaseMet
	}
}
