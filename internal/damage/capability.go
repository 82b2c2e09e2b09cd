// Package damage turns spatial overlaps into hits: target selection with
// per-instance dedup, damage rolls, knockback, on-hit effects and chaining.
package damage

import (
	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/geom"
	"github.com/l1jgo/combatcore/internal/status"
)

// Damageable is the contract any entity exposes to receive damage.
// TakeDamage applies the target's own modifiers (Vulnerable) and returns
// the health actually removed.
type Damageable interface {
	TakeDamage(amount int) int
	CurrentHealth() int
	MaxHealth() int
	IsDead() bool
}

// Body receives knockback impulses.
type Body interface {
	ApplyImpulse(impulse geom.Vec)
}

// EffectReceiver accepts on-hit status effects.
type EffectReceiver interface {
	AddEffect(e status.Effect) (status.Outcome, error)
}

// Candidate is one entity reported by a spatial query. Capabilities are
// resolved once when the entity spawns; a nil field means the entity does
// not expose that capability.
type Candidate struct {
	ID         ecs.EntityID
	Position   geom.Vec
	Damageable Damageable
	Body       Body
	Effects    EffectReceiver
}

// Spatial answers overlap queries against the live entity set.
type Spatial interface {
	Overlap(center geom.Vec, radius float64) []Candidate
}

// Hit reports one resolved hit to the spawner.
type Hit struct {
	Source  ecs.EntityID
	Target  ecs.EntityID
	Rolled  int
	Applied int
	// Hop is 0 for the primary target and 1..n for chained targets.
	Hop    int
	Killed bool
}
