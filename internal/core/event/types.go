package event

import "github.com/l1jgo/combatcore/internal/core/ecs"

// Signals published by the combat core for presentation collaborators
// (animation, UI, feed). Enum values travel as their String() form so this
// package stays below every emitter.

type AttributesChanged struct {
	Entity       ecs.EntityID
	Level        int
	Strength     int
	Agility      int
	Intelligence int
	Stamina      int
	Vitality     int
	Health       int
	MaxHealth    int
}

type LevelUp struct {
	Entity    ecs.EntityID
	Level     int
	ExpToNext int
}

type EffectAdded struct {
	Entity    ecs.EntityID
	Kind      string
	Outcome   string
	Magnitude float64
	Remaining float64
}

type EffectRemoved struct {
	Entity  ecs.EntityID
	Kind    string
	Expired bool
}

type StateChanged struct {
	Entity ecs.EntityID
	From   string
	To     string
}

type NPCStateChanged struct {
	Entity ecs.EntityID
	From   string
	To     string
}

type DispositionChanged struct {
	Entity ecs.EntityID
	From   string
	To     string
}

// DamageApplied is emitted once per successful hit. Hop is 0 for the primary
// target and 1..n for chained targets; Periodic marks status ticks.
type DamageApplied struct {
	Source   ecs.EntityID
	Target   ecs.EntityID
	Rolled   int
	Applied  int
	Hop      int
	Periodic bool
}

type Died struct {
	Entity ecs.EntityID
}

type Revived struct {
	Entity ecs.EntityID
}
