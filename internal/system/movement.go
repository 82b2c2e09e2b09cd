package system

import (
	"time"

	coresys "github.com/l1jgo/combatcore/internal/core/system"
	"github.com/l1jgo/combatcore/internal/world"
)

// MovementSystem integrates intent velocity and knockback, then updates
// the spatial index. Phase 2 (Movement).
type MovementSystem struct {
	world *world.State
}

func NewMovementSystem(ws *world.State) *MovementSystem {
	return &MovementSystem{world: ws}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseMovement }
func (s *MovementSystem) Name() string         { return "movement" }

func (s *MovementSystem) Update(dt time.Duration) {
	s.world.Integrate(dt.Seconds())
}
