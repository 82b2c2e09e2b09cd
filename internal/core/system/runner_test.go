package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingSystem struct {
	phase Phase
	name  string
	log   *[]string
	boom  bool
}

func (s *recordingSystem) Phase() Phase { return s.phase }
func (s *recordingSystem) Name() string { return s.name }
func (s *recordingSystem) Update(time.Duration) {
	*s.log = append(*s.log, s.name)
	if s.boom {
		panic("boom")
	}
}

func TestRunner_PhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner(nil)
	r.Register(&recordingSystem{phase: PhaseState, name: "state", log: &log})
	r.Register(&recordingSystem{phase: PhasePerception, name: "ai", log: &log})
	r.Register(&recordingSystem{phase: PhaseDamage, name: "damage", log: &log})
	r.Register(&recordingSystem{phase: PhaseMovement, name: "move", log: &log})
	r.Register(&recordingSystem{phase: PhasePerception, name: "input", log: &log})

	r.Tick(200 * time.Millisecond)

	assert.Equal(t, []string{"ai", "input", "move", "damage", "state"}, log)
	assert.InDelta(t, 0.2, r.Clock().Now(), 1e-9)
	assert.Equal(t, uint64(1), r.Clock().Ticks())
}

func TestRunner_PanicDoesNotCrossTick(t *testing.T) {
	var log []string
	r := NewRunner(nil)
	r.Register(&recordingSystem{phase: PhaseMovement, name: "move", log: &log, boom: true})
	r.Register(&recordingSystem{phase: PhaseState, name: "state", log: &log})

	assert.NotPanics(t, func() { r.Tick(time.Second) })
	assert.Equal(t, []string{"move", "state"}, log)
}

func TestRunner_TickPhase(t *testing.T) {
	var log []string
	r := NewRunner(nil)
	r.Register(&recordingSystem{phase: PhasePerception, name: "input", log: &log})
	r.Register(&recordingSystem{phase: PhaseState, name: "state", log: &log})

	r.TickPhase(PhasePerception, 0)
	assert.Equal(t, []string{"input"}, log)
	assert.Zero(t, r.Clock().Ticks())
}
