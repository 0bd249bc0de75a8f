package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"starnotify/internal/types"
)

func TestHitCounter_Phases(t *testing.T) {
	c := NewHitCounter(3)
	assert.Equal(t, PhaseIdle, c.Phase())

	assert.Equal(t, PhaseWarning, c.Hit())
	assert.Equal(t, PhaseWarning, c.Hit())
	assert.Equal(t, PhaseMet, c.Hit())
	assert.True(t, c.Met())

	c.Miss()
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestHitCounter_SaturatesAtRequired(t *testing.T) {
	c := NewHitCounter(2)
	for i := 0; i < 1000; i++ {
		c.Hit()
	}
	assert.Equal(t, 2, c.Count())
	assert.True(t, c.Met())
}

func TestHitCounter_RequiredBelowOne(t *testing.T) {
	c := NewHitCounter(0)
	assert.Equal(t, 1, c.Required())
	assert.Equal(t, PhaseMet, c.Hit())

	var zero HitCounter
	assert.Equal(t, PhaseMet, zero.Hit(), "zero value behaves as one-hit mode")
}

func TestHitCounter_SetRequiredClamps(t *testing.T) {
	c := NewHitCounter(5)
	c.Hit()
	c.Hit()
	c.Hit()
	assert.Equal(t, PhaseWarning, c.Phase())

	c.SetRequired(2)
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, PhaseMet, c.Phase())
}

func TestPhaseLevel(t *testing.T) {
	assert.Equal(t, types.StatusOK, PhaseIdle.Level())
	assert.Equal(t, types.StatusWarning, PhaseWarning.Level())
	assert.Equal(t, types.StatusMet, PhaseMet.Level())
}
