package system

import (
	"time"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	coresys "github.com/l1jgo/combatcore/internal/core/system"
	"github.com/l1jgo/combatcore/internal/world"
	"go.uber.org/zap"
)

// CleanupSystem despawns NPC corpses once they have lain for the corpse
// delay, then flushes the deferred destruction queue. Players are never
// despawned; they wait for a revive. Phase 5 (Cleanup).
type CleanupSystem struct {
	world *world.State
	delay float64
	log   *zap.Logger

	corpses map[ecs.EntityID]float64
}

func NewCleanupSystem(ws *world.State, corpseDelay time.Duration, log *zap.Logger) *CleanupSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupSystem{
		world:   ws,
		delay:   corpseDelay.Seconds(),
		log:     log,
		corpses: make(map[ecs.EntityID]float64),
	}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }
func (s *CleanupSystem) Name() string         { return "cleanup" }

// Corpses returns how many NPC corpses are waiting for despawn.
func (s *CleanupSystem) Corpses() int { return len(s.corpses) }

func (s *CleanupSystem) Update(dt time.Duration) {
	secs := dt.Seconds()
	s.world.Each(func(a *world.Actor) {
		if a.Kind != world.KindNPC || !a.IsDead() {
			return
		}
		lain := s.corpses[a.ID] + secs
		s.corpses[a.ID] = lain
		if lain >= s.delay {
			s.world.Despawn(a.ID)
		}
	})
	for _, id := range s.world.FlushDespawned() {
		delete(s.corpses, id)
		s.log.Debug("entity despawned", zap.Uint64("entity", uint64(id)))
	}
}
