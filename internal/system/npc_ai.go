package system

import (
	"time"

	coresys "github.com/l1jgo/combatcore/internal/core/system"
	"github.com/l1jgo/combatcore/internal/npc"
	"github.com/l1jgo/combatcore/internal/world"
)

// NpcAISystem feeds each NPC brain what it perceives and lets it decide.
// The nearest living player is the only target. Phase 1 (Perception).
type NpcAISystem struct {
	world *world.State
}

func NewNpcAISystem(ws *world.State) *NpcAISystem {
	return &NpcAISystem{world: ws}
}

func (s *NpcAISystem) Phase() coresys.Phase { return coresys.PhasePerception }
func (s *NpcAISystem) Name() string         { return "npc_ai" }

func (s *NpcAISystem) Update(dt time.Duration) {
	secs := dt.Seconds()
	s.world.Each(func(a *world.Actor) {
		if a.Brain == nil {
			return
		}
		senses := npc.Senses{Position: a.Position(), Dead: a.IsDead()}
		if !senses.Dead {
			if target, ok := s.world.NearestPlayer(senses.Position); ok {
				senses.HasTarget = true
				senses.Target = target.Position()
			}
		}
		a.Brain.Tick(secs, senses)
	})
}
