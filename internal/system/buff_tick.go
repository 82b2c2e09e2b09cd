package system

import (
	"time"

	coresys "github.com/l1jgo/combatcore/internal/core/system"
	"github.com/l1jgo/combatcore/internal/world"
)

// BuffTickSystem ages every status effect and fires periodic effects.
// Phase 4 (State).
type BuffTickSystem struct {
	world *world.State
}

func NewBuffTickSystem(ws *world.State) *BuffTickSystem {
	return &BuffTickSystem{world: ws}
}

func (s *BuffTickSystem) Phase() coresys.Phase { return coresys.PhaseState }
func (s *BuffTickSystem) Name() string         { return "buff_tick" }

func (s *BuffTickSystem) Update(dt time.Duration) {
	secs := dt.Seconds()
	s.world.Each(func(a *world.Actor) {
		if a.IsDead() {
			return
		}
		a.Effects.Tick(secs)
	})
}
