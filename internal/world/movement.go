package world

import (
	"math"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/geom"
)

const (
	// DefaultFriction is the knockback decay rate per second.
	DefaultFriction = 8.0
	// knockbackRest zeroes knockback velocities slower than this.
	knockbackRest = 0.05
)

// Integrate advances every body by dt seconds. Intent velocity is gated by
// the movement permission and scaled by the movement factor; knockback
// always applies and decays under friction.
func (s *State) Integrate(dt float64) {
	if dt <= 0 {
		return
	}
	decay := math.Max(0, 1-s.friction*dt)
	s.actors.Each(func(id ecs.EntityID, a *Actor) {
		b := a.Body
		if b == nil {
			return
		}
		var vel geom.Vec
		if a.State.CanMove() && !a.IsDead() {
			vel = b.Desired.Scale(a.Effects.MovementFactor())
		}
		vel = vel.Add(b.Knockback)
		if vel.IsZero() {
			return
		}
		b.Position = b.Position.Add(vel.Scale(dt))
		b.Knockback = b.Knockback.Scale(decay)
		if b.Knockback.Len() < knockbackRest {
			b.Knockback = geom.Vec{}
		}
		s.grid.Move(id, b.Position)
	})
}
