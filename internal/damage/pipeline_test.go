package damage

import (
	"math/rand"
	"testing"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/core/event"
	"github.com/l1jgo/combatcore/internal/core/fault"
	"github.com/l1jgo/combatcore/internal/geom"
	"github.com/l1jgo/combatcore/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// dummy is a damageable target whose contract applies its own Vulnerable
// multiplier, the way a combat dispatcher does.
type dummy struct {
	health  int
	max     int
	effects *status.Registry
	taken   []int
}

func newDummy(id ecs.EntityID, health int) *dummy {
	return &dummy{health: health, max: health, effects: status.NewRegistry(id)}
}

func (d *dummy) TakeDamage(amount int) int {
	scaled := int(float64(amount)*d.effects.Multiplier(status.KindVulnerable) + 0.5)
	applied := min(scaled, d.health)
	d.health -= applied
	d.taken = append(d.taken, applied)
	return applied
}

func (d *dummy) CurrentHealth() int { return d.health }
func (d *dummy) MaxHealth() int     { return d.max }
func (d *dummy) IsDead() bool       { return d.health <= 0 }

type body struct{ impulses []geom.Vec }

func (b *body) ApplyImpulse(v geom.Vec) { b.impulses = append(b.impulses, v) }

type scene struct {
	candidates []Candidate
	queries    int
}

func (s *scene) Overlap(center geom.Vec, radius float64) []Candidate {
	s.queries++
	var out []Candidate
	for _, c := range s.candidates {
		if c.Position.Dist(center) <= radius {
			out = append(out, c)
		}
	}
	return out
}

func (s *scene) add(id ecs.EntityID, pos geom.Vec, d *dummy, b *body) {
	c := Candidate{ID: id, Position: pos}
	if d != nil {
		c.Damageable = d
		c.Effects = d.effects
	}
	if b != nil {
		c.Body = b
	}
	s.candidates = append(s.candidates, c)
}

func TestResolve_VulnerableHalvesDamage(t *testing.T) {
	target := newDummy(2, 100)
	_, err := target.effects.AddEffect(status.Effect{
		Kind: status.KindVulnerable, Magnitude: 50, Polarity: status.Positive, Remaining: 10,
	})
	require.NoError(t, err)

	sc := &scene{}
	sc.add(2, geom.V(1, 0), target, nil)
	p := NewPipeline(sc)

	p.Spawn(Spec{Source: 1, Range: 2, BaseDamage: 10, Duration: 1})
	p.Step(0.1)

	assert.Equal(t, []int{5}, target.taken)
	assert.Equal(t, 95, target.CurrentHealth())
}

func TestResolve_NonPiercingNeverHitsTwice(t *testing.T) {
	target := newDummy(2, 100)
	other := newDummy(3, 100)
	sc := &scene{}
	sc.add(2, geom.V(1, 0), target, nil)
	sc.add(3, geom.V(1.5, 0), other, nil)
	p := NewPipeline(sc)

	r := p.Spawn(Spec{Source: 1, Range: 5, BaseDamage: 10, Duration: 5})
	for i := 0; i < 5; i++ {
		_, _ = r.Offer(sc.candidates[0])
	}
	p.Step(0.1)
	p.Step(0.1)

	assert.Equal(t, []int{10}, target.taken)
	assert.Empty(t, other.taken)
	assert.False(t, r.Active())
	assert.Zero(t, p.Active())
}

func TestOffer_SilentSkips(t *testing.T) {
	sc := &scene{}
	p := NewPipeline(sc)
	r := p.Spawn(Spec{Source: 1, Range: 5, BaseDamage: 10, Duration: 5, Pierce: true})

	_, err := r.Offer(Candidate{ID: 1, Damageable: newDummy(1, 10)})
	assert.ErrorIs(t, err, fault.ErrInvalidTarget, "self")

	_, err = r.Offer(Candidate{ID: 4})
	assert.ErrorIs(t, err, fault.ErrInvalidTarget, "not damageable")

	dead := newDummy(5, 10)
	dead.health = 0
	_, err = r.Offer(Candidate{ID: 5, Damageable: dead})
	assert.ErrorIs(t, err, fault.ErrInvalidTarget, "dead")

	live := newDummy(6, 50)
	_, err = r.Offer(Candidate{ID: 6, Damageable: live})
	require.NoError(t, err)
	_, err = r.Offer(Candidate{ID: 6, Damageable: live})
	assert.ErrorIs(t, err, fault.ErrInvalidTarget, "already hit")
	assert.Equal(t, 1, r.Hits())
}

func TestPierce_StopsAtBudget(t *testing.T) {
	sc := &scene{}
	targets := make([]*dummy, 4)
	for i := range targets {
		id := ecs.EntityID(10 + i)
		targets[i] = newDummy(id, 100)
		sc.add(id, geom.V(float64(i+1), 0), targets[i], nil)
	}
	p := NewPipeline(sc)

	r := p.Spawn(Spec{Source: 1, Range: 10, BaseDamage: 7, Duration: 5, Pierce: true, MaxPierceTargets: 3})
	p.Step(0.1)

	assert.Equal(t, 3, r.Hits())
	assert.False(t, r.Active())
	for i := 0; i < 3; i++ {
		assert.Equal(t, []int{7}, targets[i].taken, "nearest three hit")
	}
	assert.Empty(t, targets[3].taken)
}

func TestPierce_UnlimitedRunsUntilTimeout(t *testing.T) {
	sc := &scene{}
	first := newDummy(10, 100)
	sc.add(10, geom.V(1, 0), first, nil)
	p := NewPipeline(sc)

	r := p.Spawn(Spec{Source: 1, Range: 10, BaseDamage: 3, Duration: 0.3, Pierce: true})
	p.Step(0.1)
	require.True(t, r.Active())

	late := newDummy(11, 100)
	sc.add(11, geom.V(2, 0), late, nil)
	p.Step(0.1)
	assert.Equal(t, []int{3}, late.taken, "entered the region while the resolver lived")
	assert.Equal(t, []int{3}, first.taken)

	p.Step(0.1)
	assert.False(t, r.Active())
	assert.Zero(t, p.Active())
}

func TestCancel_DropsPendingContinuation(t *testing.T) {
	sc := &scene{}
	target := newDummy(2, 100)
	sc.add(2, geom.V(1, 0), target, nil)
	p := NewPipeline(sc)

	r := p.Spawn(Spec{Source: 1, Range: 5, BaseDamage: 10, Duration: 5, Pierce: true})
	require.True(t, p.Cancel(r.ID()))
	assert.False(t, p.Cancel(r.ID()))

	p.Step(0.1)
	assert.Empty(t, target.taken)
	assert.Zero(t, p.Active())
}

func TestKnockback_AlongOriginToTarget(t *testing.T) {
	sc := &scene{}
	target := newDummy(2, 100)
	b := &body{}
	sc.add(2, geom.V(3, 4), target, b)
	p := NewPipeline(sc)

	p.Spawn(Spec{Source: 1, Center: geom.V(3, 4), Range: 1, BaseDamage: 1, Knockback: 10, Duration: 1})
	p.Step(0.1)

	require.Len(t, b.impulses, 1)
	assert.InDelta(t, 6.0, b.impulses[0].X, 1e-9)
	assert.InDelta(t, 8.0, b.impulses[0].Y, 1e-9)
}

func TestKnockback_MissingBodyDegrades(t *testing.T) {
	sc := &scene{}
	target := newDummy(2, 100)
	sc.add(2, geom.V(1, 0), target, nil)
	p := NewPipeline(sc)

	p.Spawn(Spec{Source: 1, Range: 2, BaseDamage: 4, Knockback: 10, Duration: 1})
	assert.NotPanics(t, func() { p.Step(0.1) })
	assert.Equal(t, []int{4}, target.taken)
}

func TestChain_FirstHitOnlyWithFalloff(t *testing.T) {
	sc := &scene{}
	primary := newDummy(2, 100)
	near := newDummy(3, 100)
	far := newDummy(4, 100)
	beyond := newDummy(5, 100)
	nearBody := &body{}
	sc.add(2, geom.V(1, 0), primary, nil)
	sc.add(4, geom.V(1, 3), far, nil)
	sc.add(3, geom.V(1, 1), near, nearBody)
	sc.add(5, geom.V(1, -3.5), beyond, nil)

	bus := event.NewBus()
	var hops []int
	event.Subscribe(bus, func(ev event.DamageApplied) { hops = append(hops, ev.Hop) })

	p := NewPipeline(sc, WithBus(bus))
	var reports []Hit
	p.Spawn(Spec{
		Source: 1, Range: 1, BaseDamage: 20, Knockback: 10, Duration: 1,
		Chain: true, ChainRadius: 4, MaxChainTargets: 2,
		Report: func(h Hit) { reports = append(reports, h) },
	})
	p.Step(0.1)

	assert.Equal(t, []int{20}, primary.taken)
	assert.Equal(t, []int{14}, near.taken, "round(20 × 0.7)")
	assert.Equal(t, []int{10}, far.taken, "round(20 × 0.49)")
	assert.Empty(t, beyond.taken, "chain budget spent")

	require.Len(t, nearBody.impulses, 1)
	assert.InDelta(t, 7.0, nearBody.impulses[0].Y, 1e-9, "knockback scaled by falloff")

	require.Len(t, reports, 3)
	assert.Equal(t, ecs.EntityID(2), reports[0].Target)

	bus.SwapBuffers()
	bus.DispatchAll()
	assert.Equal(t, []int{0, 1, 2}, hops)
}

func TestChain_MissingSpatialDegrades(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewPipeline(nil, WithLogger(zap.New(core)))
	r := p.Spawn(Spec{
		Source: 1, Range: 1, BaseDamage: 20, Duration: 1,
		Chain: true, ChainRadius: 4, MaxChainTargets: 2,
	})

	target := newDummy(2, 100)
	var err error
	require.NotPanics(t, func() {
		_, err = r.Offer(Candidate{ID: 2, Damageable: target})
	})
	require.NoError(t, err)
	assert.Equal(t, []int{20}, target.taken, "primary hit still lands")
	assert.Equal(t, 1, logs.FilterMessage("chain skipped").Len())
}

func TestChain_ExcludesSourceAndHitTargets(t *testing.T) {
	sc := &scene{}
	src := newDummy(1, 100)
	primary := newDummy(2, 100)
	sc.add(1, geom.V(0, 0), src, nil)
	sc.add(2, geom.V(1, 0), primary, nil)
	p := NewPipeline(sc)

	p.Spawn(Spec{
		Source: 1, Center: geom.V(1, 0), Range: 0.5, BaseDamage: 20, Duration: 1,
		Chain: true, ChainRadius: 5, ChainFalloff: 0.5, MaxChainTargets: 4,
	})
	p.Step(0.1)

	assert.Empty(t, src.taken)
	assert.Equal(t, []int{20}, primary.taken)
}

func TestChain_MinimumOneDamage(t *testing.T) {
	sc := &scene{}
	primary := newDummy(2, 100)
	next := newDummy(3, 100)
	sc.add(2, geom.V(0, 0), primary, nil)
	sc.add(3, geom.V(1, 0), next, nil)
	p := NewPipeline(sc)

	p.Spawn(Spec{
		Source: 1, Range: 0.5, BaseDamage: 1, Duration: 1,
		Chain: true, ChainRadius: 2, ChainFalloff: 0.1, MaxChainTargets: 1,
	})
	p.Step(0.1)
	assert.Equal(t, []int{1}, next.taken)
}

func TestOnHit_AppliesEffectsToPrimary(t *testing.T) {
	sc := &scene{}
	target := newDummy(2, 100)
	sc.add(2, geom.V(1, 0), target, nil)
	p := NewPipeline(sc)

	p.Spawn(Spec{
		Source: 1, Range: 2, BaseDamage: 1, Duration: 1,
		OnHit: []status.Effect{{Kind: status.KindSlow, Magnitude: 30, Polarity: status.Negative, Remaining: 2}},
	})
	p.Step(0.1)

	e, ok := target.effects.Get(status.KindSlow)
	require.True(t, ok)
	assert.Equal(t, ecs.EntityID(1), e.Source)
	assert.InDelta(t, 0.7, target.effects.MovementFactor(), 1e-9)
}

func TestRoll_VarianceBounds(t *testing.T) {
	p := NewPipeline(&scene{}, WithRand(rand.New(rand.NewSource(42))))
	for i := 0; i < 1000; i++ {
		v := p.roll(100, 0.2)
		require.GreaterOrEqual(t, v, 80)
		require.LessOrEqual(t, v, 120)
	}
	assert.Equal(t, 1, p.roll(0, 0), "floor of one")
	assert.Equal(t, 10, p.roll(10, 0))
}

func TestStep_ZeroDurationResolvesOnce(t *testing.T) {
	sc := &scene{}
	p := NewPipeline(sc)
	r := p.Spawn(Spec{Source: 1, Range: 1, BaseDamage: 1, Pierce: true})
	p.Step(0.05)
	assert.False(t, r.Active())
	assert.Equal(t, 1, sc.queries)
}
