package status

import "github.com/l1jgo/combatcore/internal/core/ecs"

// Effect is one timed modifier owned by a single Registry.
type Effect struct {
	Kind      Kind
	Magnitude float64
	Polarity  Polarity
	// Remaining is the time left in seconds.
	Remaining float64
	Stackable bool
	// MaxStacks bounds how many stackable applications merge; 0 = unbounded.
	MaxStacks int
	// TickInterval is the period in seconds of the side effect; 0 = none.
	TickInterval float64
	// Source is the entity that applied the effect (zero when unknown).
	Source ecs.EntityID

	stacks  int
	tickAcc float64
	removed bool
}

// Signed returns the magnitude with the polarity applied.
func (e *Effect) Signed() float64 {
	if e.Polarity == Negative {
		return -e.Magnitude
	}
	return e.Magnitude
}

// Stacks returns how many applications were merged into this effect.
func (e *Effect) Stacks() int {
	if e.stacks < 1 {
		return 1
	}
	return e.stacks
}

// Periodic reports whether the effect fires a side effect on an interval.
func (e *Effect) Periodic() bool { return e.TickInterval > 0 }

// factor is the multiplicative contribution of this effect. Vulnerable is
// inverted: a positive Vulnerable of 50 halves incoming damage.
func (e *Effect) factor() float64 {
	if e.Kind == KindVulnerable {
		return 1 - e.Signed()/100
	}
	return 1 + e.Signed()/100
}

// Outcome describes what AddEffect did with the incoming effect.
type Outcome uint8

const (
	OutcomeAdded Outcome = iota
	OutcomeStacked
	OutcomeReplaced
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeStacked:
		return "stacked"
	case OutcomeReplaced:
		return "replaced"
	case OutcomeDiscarded:
		return "discarded"
	}
	return "unknown"
}

// Applied reports whether the registry changed.
func (o Outcome) Applied() bool { return o != OutcomeDiscarded }
