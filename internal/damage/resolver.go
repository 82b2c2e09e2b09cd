package damage

import (
	"fmt"
	"math"
	"sort"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/core/event"
	"github.com/l1jgo/combatcore/internal/core/fault"
	"github.com/l1jgo/combatcore/internal/geom"
	"github.com/l1jgo/combatcore/internal/status"
	"go.uber.org/zap"
)

// DefaultChainFalloff is the per-hop damage factor of chained hits.
const DefaultChainFalloff = 0.7

// Spec parameterizes one damage instance.
type Spec struct {
	Source ecs.EntityID
	// Origin is where knockback pushes away from (the attacker position).
	Origin geom.Vec
	// Center and Range describe the overlap region.
	Center geom.Vec
	Range  float64

	BaseDamage int
	// Variance is the relative roll spread: 0.1 rolls within ±10%.
	Variance  float64
	Knockback float64
	// Duration is the resolver lifetime in seconds. Zero or less resolves
	// for a single step.
	Duration float64

	Pierce bool
	// MaxPierceTargets bounds distinct primary targets when piercing;
	// zero or less leaves the resolver running until it times out.
	MaxPierceTargets int

	Chain        bool
	ChainRadius  float64
	ChainFalloff float64
	// MaxChainTargets bounds the secondary targets of the chain.
	MaxChainTargets int

	// OnHit effects are applied to the primary target of each hit.
	OnHit []status.Effect
	// Report, when set, is called once per resolved hit including chains.
	Report func(Hit)
}

// ResolverID identifies a spawned resolver.
type ResolverID uint64

// Resolver is a time-boxed damage instance. It deactivates on timeout,
// when its pierce budget is spent, or after its first hit when piercing is
// disabled. An inactive resolver ignores every further overlap, which is
// how cancellation drops a pending pierce or chain continuation.
type Resolver struct {
	id   ResolverID
	spec Spec
	p    *Pipeline

	hit     map[ecs.EntityID]struct{}
	hits    int
	elapsed float64
	active  bool
	chained bool
}

func (r *Resolver) ID() ResolverID { return r.id }
func (r *Resolver) Active() bool   { return r.active }
func (r *Resolver) Spec() Spec     { return r.spec }

// Hits returns how many primary targets were hit.
func (r *Resolver) Hits() int { return r.hits }

// HasHit reports whether id was hit by this instance, chains included.
func (r *Resolver) HasHit(id ecs.EntityID) bool {
	_, ok := r.hit[id]
	return ok
}

// Cancel deactivates the resolver.
func (r *Resolver) Cancel() { r.active = false }

// Offer processes one overlap event with c. It returns
// fault.ErrInvalidTarget for the silent skips: source, already-hit, not
// damageable or dead, or an inactive resolver.
func (r *Resolver) Offer(c Candidate) (Hit, error) {
	if err := r.admit(c); err != nil {
		return Hit{}, err
	}

	rolled := r.p.roll(r.spec.BaseDamage, r.spec.Variance)
	h := r.apply(c, rolled, 0, r.spec.Origin, r.spec.Knockback)
	r.hits++
	r.applyEffects(c)

	if r.spec.Chain && !r.chained {
		r.chained = true
		r.chain(c, rolled)
	}

	if !r.spec.Pierce || (r.spec.MaxPierceTargets > 0 && r.hits >= r.spec.MaxPierceTargets) {
		r.active = false
	}
	return h, nil
}

func (r *Resolver) admit(c Candidate) error {
	switch {
	case !r.active:
		return fmt.Errorf("resolver %d inactive: %w", r.id, fault.ErrInvalidTarget)
	case c.ID == r.spec.Source:
		return fmt.Errorf("self hit: %w", fault.ErrInvalidTarget)
	case r.HasHit(c.ID):
		return fmt.Errorf("already hit %d: %w", c.ID, fault.ErrInvalidTarget)
	case c.Damageable == nil || c.Damageable.IsDead():
		return fmt.Errorf("not damageable %d: %w", c.ID, fault.ErrInvalidTarget)
	}
	return nil
}

func (r *Resolver) apply(c Candidate, rolled, hop int, from geom.Vec, force float64) Hit {
	r.hit[c.ID] = struct{}{}
	applied := c.Damageable.TakeDamage(rolled)
	h := Hit{
		Source:  r.spec.Source,
		Target:  c.ID,
		Rolled:  rolled,
		Applied: applied,
		Hop:     hop,
		Killed:  c.Damageable.IsDead(),
	}
	event.Emit(r.p.bus, event.DamageApplied{
		Source:  h.Source,
		Target:  h.Target,
		Rolled:  h.Rolled,
		Applied: h.Applied,
		Hop:     h.Hop,
	})
	r.knockback(c, from, force)
	if r.spec.Report != nil {
		r.spec.Report(h)
	}
	return h
}

func (r *Resolver) knockback(c Candidate, from geom.Vec, force float64) {
	if force <= 0 {
		return
	}
	if c.Body == nil {
		r.p.log.Debug("knockback skipped",
			zap.Uint64("target", uint64(c.ID)),
			zap.Error(fault.Missing("body")))
		return
	}
	c.Body.ApplyImpulse(c.Position.Sub(from).Normalize().Scale(force))
}

func (r *Resolver) applyEffects(c Candidate) {
	if len(r.spec.OnHit) == 0 {
		return
	}
	if c.Effects == nil {
		r.p.log.Debug("on-hit effects skipped",
			zap.Uint64("target", uint64(c.ID)),
			zap.Error(fault.Missing("status registry")))
		return
	}
	for _, e := range r.spec.OnHit {
		if e.Source.IsZero() {
			e.Source = r.spec.Source
		}
		if _, err := c.Effects.AddEffect(e); err != nil {
			r.p.log.Debug("on-hit effect rejected",
				zap.Uint64("target", uint64(c.ID)),
				zap.Stringer("kind", e.Kind),
				zap.Error(err))
		}
	}
}

// chain hops from the primary target to the nearest eligible entities.
// Hop n deals max(1, round(rolled × falloff^n)) and knocks back with the
// same scale, pushing away from the primary target.
func (r *Resolver) chain(primary Candidate, rolled int) {
	if r.spec.MaxChainTargets <= 0 || r.spec.ChainRadius <= 0 {
		return
	}
	if r.p.spatial == nil {
		r.p.log.Warn("chain skipped",
			zap.Uint64("source", uint64(r.spec.Source)),
			zap.Error(fault.Missing("spatial query")))
		return
	}
	falloff := r.spec.ChainFalloff
	if falloff <= 0 {
		falloff = r.p.falloff
	}

	var targets []Candidate
	for _, c := range r.p.spatial.Overlap(primary.Position, r.spec.ChainRadius) {
		if r.admit(c) == nil {
			targets = append(targets, c)
		}
	}
	sortByDistance(targets, primary.Position)
	if len(targets) > r.spec.MaxChainTargets {
		targets = targets[:r.spec.MaxChainTargets]
	}

	for i, c := range targets {
		hop := i + 1
		scale := math.Pow(falloff, float64(hop))
		dmg := max(1, int(math.Round(float64(rolled)*scale)))
		r.apply(c, dmg, hop, primary.Position, r.spec.Knockback*scale)
	}
}

func (r *Resolver) age(dt float64) {
	r.elapsed += dt
	if r.elapsed >= r.spec.Duration {
		r.active = false
	}
}

// sortByDistance orders candidates nearest first, ties broken by ID.
func sortByDistance(cs []Candidate, from geom.Vec) {
	sort.SliceStable(cs, func(i, j int) bool {
		di, dj := cs[i].Position.Dist(from), cs[j].Position.Dist(from)
		if di != dj {
			return di < dj
		}
		return cs[i].ID < cs[j].ID
	})
}
