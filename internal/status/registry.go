package status

import (
	"fmt"
	"math"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/core/event"
	"github.com/l1jgo/combatcore/internal/core/fault"
	"go.uber.org/zap"
)

const (
	// DefaultCapacity is the per-entity effect cap.
	DefaultCapacity = 16
	// MovementFloor is the lowest multiplier Slow/MoveSpeed can aggregate
	// to; stacked slows never fully immobilize an entity.
	MovementFloor = 0.1

	epsilon = 1e-9
)

// PeriodicFunc receives the side effect of a periodic effect (poison
// damage, regeneration). It runs once per TickInterval boundary.
type PeriodicFunc func(e *Effect)

type aggregate struct {
	add float64
	mul float64
}

// Registry holds the active status effects of one entity and a lazily
// rebuilt per-kind aggregate.
//
// Only the game loop goroutine touches a Registry; no locks.
type Registry struct {
	owner    ecs.EntityID
	bus      *event.Bus
	log      *zap.Logger
	capacity int
	periodic PeriodicFunc

	effects []*Effect

	cache      [kindCount]aggregate
	dirty      bool
	recomputes int
}

// Option configures a Registry.
type Option func(*Registry)

func WithBus(b *event.Bus) Option         { return func(r *Registry) { r.bus = b } }
func WithLogger(l *zap.Logger) Option     { return func(r *Registry) { r.log = l } }
func WithPeriodic(fn PeriodicFunc) Option { return func(r *Registry) { r.periodic = fn } }
func WithCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// NewRegistry creates an empty registry for owner.
func NewRegistry(owner ecs.EntityID, opts ...Option) *Registry {
	r := &Registry{
		owner:    owner,
		capacity: DefaultCapacity,
		dirty:    true,
	}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	r.effects = make([]*Effect, 0, r.capacity)
	return r
}

// SetPeriodic installs the side-effect hook after construction; owners
// that need the registry to exist first (actor wiring) use this.
func (r *Registry) SetPeriodic(fn PeriodicFunc) { r.periodic = fn }

// AddEffect applies e following the merge rules:
//
//   - same kind, both stackable, same polarity: magnitudes sum, the
//     longer remaining duration wins; at MaxStacks only the duration refreshes
//   - same kind otherwise: e replaces the existing effect only when its
//     magnitude or duration is strictly greater, else it is discarded
//   - new kind: appended, or fault.ErrCapacityExceeded when the cap is hit
//
// Stacking requires matching polarity. A buff and a debuff of one kind
// never sum into a single signed value; the opposing application goes
// through the replace rule instead.
func (r *Registry) AddEffect(e Effect) (Outcome, error) {
	if !e.Kind.Valid() {
		return OutcomeDiscarded, fmt.Errorf("add effect %s: %w", e.Kind, fault.ErrInvalidIndex)
	}
	if e.Remaining <= 0 || e.Magnitude < 0 {
		return OutcomeDiscarded, nil
	}
	if e.Polarity == 0 {
		e.Polarity = Positive
	}
	e.stacks, e.tickAcc, e.removed = 1, 0, false

	if existing := r.find(e.Kind); existing != nil {
		outcome := r.merge(existing, &e)
		if outcome.Applied() {
			r.dirty = true
			r.emitAdded(existing, outcome)
		}
		return outcome, nil
	}

	if len(r.effects) >= r.capacity {
		r.log.Debug("status registry full",
			zap.Uint64("entity", uint64(r.owner)),
			zap.Stringer("kind", e.Kind),
			zap.Int("capacity", r.capacity))
		return OutcomeDiscarded, fmt.Errorf("add effect %s: %w", e.Kind, fault.ErrCapacityExceeded)
	}

	added := e
	r.effects = append(r.effects, &added)
	r.dirty = true
	r.emitAdded(&added, OutcomeAdded)
	return OutcomeAdded, nil
}

func (r *Registry) merge(existing, incoming *Effect) Outcome {
	if existing.Stackable && incoming.Stackable && existing.Polarity == incoming.Polarity {
		if existing.MaxStacks <= 0 || existing.stacks < existing.MaxStacks {
			existing.Magnitude += incoming.Magnitude
			existing.stacks++
		}
		existing.Remaining = math.Max(existing.Remaining, incoming.Remaining)
		return OutcomeStacked
	}
	if incoming.Magnitude > existing.Magnitude || incoming.Remaining > existing.Remaining {
		*existing = *incoming
		return OutcomeReplaced
	}
	return OutcomeDiscarded
}

// Tick advances every effect by dt seconds. Periodic effects fire once per
// TickInterval boundary of elapsed lifetime, independent of how dt slices
// it. Expired effects are dropped and the aggregate marked dirty.
//
// The walk runs over a snapshot, so a periodic side effect that removes
// effects (e.g. death clearing the registry) cannot skip or repeat entries.
func (r *Registry) Tick(dt float64) {
	if dt <= 0 || len(r.effects) == 0 {
		return
	}
	snapshot := make([]*Effect, len(r.effects))
	copy(snapshot, r.effects)

	for _, e := range snapshot {
		if e.removed {
			continue
		}
		step := math.Min(dt, e.Remaining)
		e.Remaining -= dt
		if !e.Periodic() {
			continue
		}
		e.tickAcc += step
		for e.tickAcc+epsilon >= e.TickInterval && !e.removed {
			e.tickAcc -= e.TickInterval
			r.firePeriodic(e)
		}
	}

	n := 0
	for _, e := range r.effects {
		if e.removed {
			continue
		}
		if e.Remaining <= epsilon {
			e.removed = true
			r.dirty = true
			event.Emit(r.bus, event.EffectRemoved{Entity: r.owner, Kind: e.Kind.String(), Expired: true})
			continue
		}
		r.effects[n] = e
		n++
	}
	clearTail(r.effects, n)
	r.effects = r.effects[:n]
}

func (r *Registry) firePeriodic(e *Effect) {
	if r.periodic == nil {
		return
	}
	r.periodic(e)
}

// RemoveKind drops every effect of kind and returns how many were removed.
func (r *Registry) RemoveKind(kind Kind) int {
	removed := 0
	n := 0
	for _, e := range r.effects {
		if e.Kind == kind {
			e.removed = true
			removed++
			event.Emit(r.bus, event.EffectRemoved{Entity: r.owner, Kind: e.Kind.String()})
			continue
		}
		r.effects[n] = e
		n++
	}
	clearTail(r.effects, n)
	r.effects = r.effects[:n]
	if removed > 0 {
		r.dirty = true
	}
	return removed
}

// Remove drops the effect of kind and reports whether one was present.
func (r *Registry) Remove(kind Kind) bool { return r.RemoveKind(kind) > 0 }

// Clear drops every effect (death, revive).
func (r *Registry) Clear() {
	for _, e := range r.effects {
		e.removed = true
		event.Emit(r.bus, event.EffectRemoved{Entity: r.owner, Kind: e.Kind.String()})
	}
	if len(r.effects) > 0 {
		r.dirty = true
	}
	clearTail(r.effects, 0)
	r.effects = r.effects[:0]
}

// Additive returns the summed signed magnitude of kind.
func (r *Registry) Additive(kind Kind) float64 {
	if !kind.Valid() {
		return 0
	}
	r.refresh()
	return r.cache[kind].add
}

// Multiplier returns the product of the factors of kind. Slow and
// MoveSpeed are floored at MovementFloor, every other kind at 0.
func (r *Registry) Multiplier(kind Kind) float64 {
	if !kind.Valid() {
		return 1
	}
	r.refresh()
	return r.cache[kind].mul
}

// MovementFactor combines Slow and MoveSpeed into the speed scale applied
// by movement integration.
func (r *Registry) MovementFactor() float64 {
	return math.Max(MovementFloor, r.Multiplier(KindSlow)*r.Multiplier(KindMoveSpeed))
}

func (r *Registry) refresh() {
	if !r.dirty {
		return
	}
	for k := range r.cache {
		r.cache[k] = aggregate{add: 0, mul: 1}
	}
	for _, e := range r.effects {
		agg := &r.cache[e.Kind]
		agg.add += e.Signed()
		agg.mul *= e.factor()
	}
	for k := range r.cache {
		floor := 0.0
		if movementKind(Kind(k)) {
			floor = MovementFloor
		}
		if r.cache[k].mul < floor {
			r.cache[k].mul = floor
		}
	}
	r.dirty = false
	r.recomputes++
}

// Recomputes counts aggregate rebuilds; reads between changes are free.
func (r *Registry) Recomputes() int { return r.recomputes }

// Get returns a copy of the active effect of kind.
func (r *Registry) Get(kind Kind) (Effect, bool) {
	if e := r.find(kind); e != nil {
		return *e, true
	}
	return Effect{}, false
}

func (r *Registry) Has(kind Kind) bool { return r.find(kind) != nil }

func (r *Registry) Len() int { return len(r.effects) }

func (r *Registry) Capacity() int { return r.capacity }

// Active returns copies of all active effects in insertion order.
func (r *Registry) Active() []Effect {
	out := make([]Effect, len(r.effects))
	for i, e := range r.effects {
		out[i] = *e
	}
	return out
}

func (r *Registry) find(kind Kind) *Effect {
	for _, e := range r.effects {
		if e.Kind == kind {
			return e
		}
	}
	return nil
}

func (r *Registry) emitAdded(e *Effect, o Outcome) {
	event.Emit(r.bus, event.EffectAdded{
		Entity:    r.owner,
		Kind:      e.Kind.String(),
		Outcome:   o.String(),
		Magnitude: e.Magnitude,
		Remaining: e.Remaining,
	})
}

func clearTail(s []*Effect, n int) {
	for i := n; i < len(s); i++ {
		s[i] = nil
	}
}
