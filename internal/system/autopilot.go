package system

import (
	"math"
	"time"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	coresys "github.com/l1jgo/combatcore/internal/core/system"
	"github.com/l1jgo/combatcore/internal/npc"
	"github.com/l1jgo/combatcore/internal/world"
)

// AutopilotSystem plays every player: it walks to the nearest NPC that is
// not friendly, casts whatever damaging skill is ready and in reach, and
// otherwise swings. Dead players are revived after reviveDelay. It only
// issues commands; InputSystem carries them out. Phase 1 (Perception),
// registered before InputSystem.
type AutopilotSystem struct {
	world       *world.State
	queue       *CommandQueue
	reviveDelay float64

	deadFor map[ecs.EntityID]float64
}

func NewAutopilotSystem(ws *world.State, queue *CommandQueue, reviveDelay time.Duration) *AutopilotSystem {
	return &AutopilotSystem{
		world:       ws,
		queue:       queue,
		reviveDelay: reviveDelay.Seconds(),
		deadFor:     make(map[ecs.EntityID]float64),
	}
}

func (s *AutopilotSystem) Phase() coresys.Phase { return coresys.PhasePerception }
func (s *AutopilotSystem) Name() string         { return "autopilot" }

func (s *AutopilotSystem) Update(dt time.Duration) {
	secs := dt.Seconds()
	s.world.Each(func(a *world.Actor) {
		if a.Kind != world.KindPlayer {
			return
		}
		if a.IsDead() {
			s.deadFor[a.ID] += secs
			if s.deadFor[a.ID] >= s.reviveDelay {
				delete(s.deadFor, a.ID)
				s.queue.Push(Command{Kind: CmdRevive, Actor: a.ID})
			}
			return
		}
		s.drive(a)
	})
}

func (s *AutopilotSystem) drive(a *world.Actor) {
	target, dist := s.nearestFoe(a)
	if target == nil {
		s.queue.Push(Command{Kind: CmdStop, Actor: a.ID})
		return
	}
	for slot := 0; slot < a.Combat.SlotCount(); slot++ {
		sk := a.Combat.Skill(slot)
		if sk == nil || !a.Combat.SkillReady(slot) {
			continue
		}
		// Buff-only skills are cast whenever ready.
		if sk.BaseDamage <= 0 || dist <= sk.Range {
			s.queue.Push(Command{Kind: CmdCast, Actor: a.ID, Slot: slot})
			return
		}
	}
	reach := a.Combat.Profile().Range
	if dist > reach*0.9 {
		s.queue.Push(Command{Kind: CmdMove, Actor: a.ID, Dir: target.Position().Sub(a.Position())})
		return
	}
	s.queue.Push(Command{Kind: CmdStop, Actor: a.ID})
	if a.Combat.AttackReady() {
		s.queue.Push(Command{Kind: CmdAttack, Actor: a.ID})
	}
}

func (s *AutopilotSystem) nearestFoe(from *world.Actor) (*world.Actor, float64) {
	var best *world.Actor
	bestDist := math.Inf(1)
	pos := from.Position()
	s.world.Each(func(a *world.Actor) {
		if a.Kind != world.KindNPC || a.IsDead() || a.Brain == nil {
			return
		}
		if a.Brain.Disposition() == npc.Friendly {
			return
		}
		if d := a.Position().Dist(pos); d < bestDist {
			best, bestDist = a, d
		}
	})
	return best, bestDist
}
