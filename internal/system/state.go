package system

import (
	"time"

	coresys "github.com/l1jgo/combatcore/internal/core/system"
	"github.com/l1jgo/combatcore/internal/world"
)

// StateSystem advances the character state timers (combat timeout). Must be
// registered after BuffTickSystem. Phase 4 (State).
type StateSystem struct {
	world *world.State
}

func NewStateSystem(ws *world.State) *StateSystem {
	return &StateSystem{world: ws}
}

func (s *StateSystem) Phase() coresys.Phase { return coresys.PhaseState }
func (s *StateSystem) Name() string         { return "char_state" }

func (s *StateSystem) Update(dt time.Duration) {
	secs := dt.Seconds()
	s.world.Each(func(a *world.Actor) {
		a.State.Tick(secs)
	})
}
