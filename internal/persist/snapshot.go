package persist

import (
	"fmt"

	"github.com/l1jgo/combatcore/internal/attr"
	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/status"
	"github.com/l1jgo/combatcore/internal/world"
)

// EffectRow is one active status effect as stored.
type EffectRow struct {
	Kind         string
	Magnitude    float64
	Polarity     int8
	Remaining    float64
	Stackable    bool
	MaxStacks    int
	TickInterval float64
	Stacks       int
	Source       uint64
}

// Snapshot is a player's persisted progression. Keyed by name; entity
// IDs do not survive a restart.
type Snapshot struct {
	Name       string
	Level      int
	Experience int
	ExpToNext  int
	Base       attr.Set
	Health     int
	Effects    []EffectRow
}

// Capture copies the persistent parts of a live actor.
func Capture(a *world.Actor) Snapshot {
	s := Snapshot{
		Name:       a.Name,
		Level:      a.Attrs.Level(),
		Experience: a.Attrs.Experience(),
		ExpToNext:  a.Attrs.ExpToNextLevel(),
		Base:       a.Attrs.Bases(),
		Health:     a.Attrs.Health(),
	}
	for _, e := range a.Effects.Active() {
		s.Effects = append(s.Effects, EffectRow{
			Kind:         e.Kind.String(),
			Magnitude:    e.Magnitude,
			Polarity:     int8(e.Polarity),
			Remaining:    e.Remaining,
			Stackable:    e.Stackable,
			MaxStacks:    e.MaxStacks,
			TickInterval: e.TickInterval,
			Stacks:       e.Stacks(),
			Source:       uint64(e.Source),
		})
	}
	return s
}

// Apply restores a snapshot onto a freshly spawned actor. Merged stacks
// come back as one application carrying the summed magnitude. A snapshot
// taken at zero health restores a corpse: the actor is Dead, carries no
// effects and waits for a revive.
func Apply(a *world.Actor, s Snapshot) error {
	a.Attrs.Restore(s.Level, s.Experience, s.ExpToNext, s.Base, s.Health)
	a.Effects.Clear()
	if a.Attrs.IsDead() {
		a.State.Kill()
		return nil
	}
	for _, row := range s.Effects {
		kind, err := status.ParseKind(row.Kind)
		if err != nil {
			return fmt.Errorf("restore %s: %w", s.Name, err)
		}
		pol := status.Positive
		if row.Polarity < 0 {
			pol = status.Negative
		}
		if _, err := a.Effects.AddEffect(status.Effect{
			Kind:         kind,
			Magnitude:    row.Magnitude,
			Polarity:     pol,
			Remaining:    row.Remaining,
			Stackable:    row.Stackable,
			MaxStacks:    row.MaxStacks,
			TickInterval: row.TickInterval,
			Source:       ecs.EntityID(row.Source),
		}); err != nil {
			return fmt.Errorf("restore %s effect %s: %w", s.Name, row.Kind, err)
		}
	}
	return nil
}
