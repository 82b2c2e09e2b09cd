package world

import (
	"github.com/l1jgo/combatcore/internal/attr"
	"github.com/l1jgo/combatcore/internal/charstate"
	"github.com/l1jgo/combatcore/internal/combat"
	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/damage"
	"github.com/l1jgo/combatcore/internal/geom"
	"github.com/l1jgo/combatcore/internal/npc"
	"github.com/l1jgo/combatcore/internal/status"
)

// Kind separates player-controlled actors from NPCs.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindNPC
)

func (k Kind) String() string {
	if k == KindNPC {
		return "npc"
	}
	return "player"
}

// Actor composes the combat components of one entity. Collaborators are
// wired once at spawn; systems never look them up again.
// Accessed only from the game loop goroutine; no locks needed.
type Actor struct {
	ID       ecs.EntityID
	Kind     Kind
	Name     string
	Template string

	Attrs   *attr.Engine
	Effects *status.Registry
	State   *charstate.Machine
	Combat  *combat.Dispatcher
	Body    *Body
	Brain   *npc.Brain // nil for players

	// ExpReward is granted to whoever lands the killing hit.
	ExpReward int

	candidate damage.Candidate
}

// Position returns the body position, or the origin without a body.
func (a *Actor) Position() geom.Vec {
	if a.Body == nil {
		return geom.Vec{}
	}
	return a.Body.Position
}

func (a *Actor) IsDead() bool { return a.Combat.IsDead() }

// Candidate returns the capability view cached at spawn with the current
// position.
func (a *Actor) Candidate() damage.Candidate {
	c := a.candidate
	c.Position = a.Position()
	return c
}

// Body is the physical presence of an actor: intent velocity from input or
// AI plus a knockback velocity that decays under friction.
type Body struct {
	Position  geom.Vec
	Desired   geom.Vec
	Knockback geom.Vec
	MoveSpeed float64
	Mass      float64
}

// ApplyImpulse adds a knockback impulse scaled by inverse mass.
func (b *Body) ApplyImpulse(impulse geom.Vec) {
	m := b.Mass
	if m <= 0 {
		m = 1
	}
	b.Knockback = b.Knockback.Add(impulse.Scale(1 / m))
}

// MoveToward sets the intent velocity toward target at MoveSpeed.
func (b *Body) MoveToward(target geom.Vec) {
	b.Desired = target.Sub(b.Position).Normalize().Scale(b.MoveSpeed)
}

// MoveDir sets the intent velocity along dir at MoveSpeed.
func (b *Body) MoveDir(dir geom.Vec) {
	b.Desired = dir.Normalize().Scale(b.MoveSpeed)
}

// Stop clears the intent velocity. Knockback keeps decaying.
func (b *Body) Stop() { b.Desired = geom.Vec{} }

// npcActuator lets a brain drive its actor.
type npcActuator struct{ a *Actor }

func (n npcActuator) MoveToward(target geom.Vec) {
	if n.a.Body != nil {
		n.a.Body.MoveToward(target)
	}
}

func (n npcActuator) Stop() {
	if n.a.Body != nil {
		n.a.Body.Stop()
	}
}

func (n npcActuator) PerformAttack() bool { return n.a.Combat.PerformAttack() }
