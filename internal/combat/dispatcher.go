// Package combat gates attacks and skill casts by cooldown and character
// state, and implements the damageable contract of an actor.
package combat

import (
	"fmt"
	"math"

	"github.com/l1jgo/combatcore/internal/attr"
	"github.com/l1jgo/combatcore/internal/charstate"
	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/core/event"
	"github.com/l1jgo/combatcore/internal/core/fault"
	"github.com/l1jgo/combatcore/internal/damage"
	"github.com/l1jgo/combatcore/internal/geom"
	"github.com/l1jgo/combatcore/internal/status"
	"go.uber.org/zap"
)

// MinAttackSpeed floors attack speed in the cooldown division.
const MinAttackSpeed = 0.1

// Clock supplies simulation time in seconds.
type Clock interface {
	Now() float64
}

// Deps are the collaborators of one actor, passed at construction.
// Any of them may be nil; the dispatcher degrades and logs instead of
// failing.
type Deps struct {
	Attrs    *attr.Engine
	Effects  *status.Registry
	State    *charstate.Machine
	Pipeline *damage.Pipeline
	Clock    Clock
	// Position locates the actor for attack regions and knockback.
	Position func() geom.Vec
}

// Dispatcher turns attack and cast requests into damage instances and
// receives damage on behalf of its actor.
type Dispatcher struct {
	owner ecs.EntityID
	deps  Deps
	bus   *event.Bus
	log   *zap.Logger

	profile AttackProfile
	skills  []*Skill

	lastAttack float64
	attacked   bool
	lastCast   []float64
	cast       []bool

	// inflight holds resolvers this actor spawned that may still hit.
	inflight []*damage.Resolver

	onDamaged []func(applied int)
	onKill    func(damage.Hit)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithBus(b *event.Bus) Option     { return func(d *Dispatcher) { d.bus = b } }
func WithLogger(l *zap.Logger) Option { return func(d *Dispatcher) { d.log = l } }

// WithProfile sets the basic attack profile.
func WithProfile(p AttackProfile) Option { return func(d *Dispatcher) { d.profile = p.withDefaults() } }

// WithSkills binds skills to slots in order; nil entries are empty slots.
func WithSkills(skills ...*Skill) Option {
	return func(d *Dispatcher) {
		d.skills = append([]*Skill(nil), skills...)
	}
}

// New creates a dispatcher for owner. If deps.Effects is set, its periodic
// hook is routed through this dispatcher.
func New(owner ecs.EntityID, deps Deps, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		owner:   owner,
		deps:    deps,
		profile: DefaultAttackProfile,
	}
	for _, o := range opts {
		o(d)
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	d.lastCast = make([]float64, len(d.skills))
	d.cast = make([]bool, len(d.skills))
	if deps.Effects != nil {
		deps.Effects.SetPeriodic(d.ApplyPeriodic)
	}
	return d
}

func (d *Dispatcher) Owner() ecs.EntityID    { return d.owner }
func (d *Dispatcher) Profile() AttackProfile { return d.profile }
func (d *Dispatcher) SlotCount() int         { return len(d.skills) }

// Skill returns the skill bound to slot, or nil.
func (d *Dispatcher) Skill(slot int) *Skill {
	if slot < 0 || slot >= len(d.skills) {
		return nil
	}
	return d.skills[slot]
}

// SetSkill binds skill to slot, growing the slot table if needed.
func (d *Dispatcher) SetSkill(slot int, skill *Skill) error {
	if slot < 0 {
		return fmt.Errorf("set skill slot %d: %w", slot, fault.ErrInvalidIndex)
	}
	for len(d.skills) <= slot {
		d.skills = append(d.skills, nil)
		d.lastCast = append(d.lastCast, 0)
		d.cast = append(d.cast, false)
	}
	d.skills[slot] = skill
	d.cast[slot] = false
	return nil
}

// SetWeaponBonus changes the equipped weapon contribution.
func (d *Dispatcher) SetWeaponBonus(bonus int) { d.profile.WeaponBonus = bonus }

// OnDamaged registers a listener called after each damage application.
func (d *Dispatcher) OnDamaged(fn func(applied int)) {
	if fn != nil {
		d.onDamaged = append(d.onDamaged, fn)
	}
}

// OnKill registers the handler called when one of this actor's hits kills.
func (d *Dispatcher) OnKill(fn func(damage.Hit)) { d.onKill = fn }

func (d *Dispatcher) now() float64 {
	if d.deps.Clock == nil {
		return 0
	}
	return d.deps.Clock.Now()
}

func (d *Dispatcher) position() geom.Vec {
	if d.deps.Position == nil {
		return geom.Vec{}
	}
	return d.deps.Position()
}

// AttackSpeed is the base attack speed scaled by the AttackSpeed multiplier.
func (d *Dispatcher) AttackSpeed() float64 {
	speed := d.profile.BaseAttackSpeed
	if d.deps.Effects != nil {
		speed *= d.deps.Effects.Multiplier(status.KindAttackSpeed)
	}
	return speed
}

// AttackCooldown is baseCooldown / max(attackSpeed, MinAttackSpeed).
func (d *Dispatcher) AttackCooldown() float64 {
	return d.profile.BaseCooldown / math.Max(d.AttackSpeed(), MinAttackSpeed)
}

// AttackPower is strength + the Attack additive bonus + the weapon bonus.
func (d *Dispatcher) AttackPower() int {
	power := d.profile.WeaponBonus
	if d.deps.Attrs != nil {
		power += d.deps.Attrs.Current(attr.Strength)
	}
	if d.deps.Effects != nil {
		power += int(math.Round(d.deps.Effects.Additive(status.KindAttack)))
	}
	return power
}

// SpellPower is intelligence + the SpellPower additive bonus.
func (d *Dispatcher) SpellPower() int {
	power := 0
	if d.deps.Attrs != nil {
		power += d.deps.Attrs.Current(attr.Intelligence)
	}
	if d.deps.Effects != nil {
		power += int(math.Round(d.deps.Effects.Additive(status.KindSpellPower)))
	}
	return power
}

// AttackReady reports whether the attack cooldown has elapsed.
func (d *Dispatcher) AttackReady() bool {
	return !d.attacked || d.now()-d.lastAttack >= d.AttackCooldown()
}

// PerformAttack swings once if the character state allows attacking and
// the cooldown has elapsed. On success it forces Combat and spawns a
// damage instance around the actor.
func (d *Dispatcher) PerformAttack() bool {
	if d.deps.State == nil {
		d.log.Debug("attack rejected",
			zap.Uint64("entity", uint64(d.owner)),
			zap.Error(fault.Missing("character state")))
		return false
	}
	if !d.deps.State.CanAttack() || !d.AttackReady() {
		return false
	}
	d.lastAttack = d.now()
	d.attacked = true
	d.deps.State.NotifyCombat()

	pos := d.position()
	d.spawn(damage.Spec{
		Origin:     pos,
		Center:     pos,
		Range:      d.profile.Range,
		BaseDamage: d.AttackPower(),
		Variance:   d.profile.Variance,
		Knockback:  d.profile.Knockback,
		Duration:   d.profile.Duration,
	})
	return true
}

// CastSkill uses the skill in slot when its own cooldown has elapsed. An
// invalid or empty slot logs and does nothing.
func (d *Dispatcher) CastSkill(slot int) bool {
	if slot < 0 || slot >= len(d.skills) || d.skills[slot] == nil {
		d.log.Warn("cast skill",
			zap.Uint64("entity", uint64(d.owner)),
			zap.Int("slot", slot),
			zap.Error(fault.ErrInvalidIndex))
		return false
	}
	if d.IsDead() {
		return false
	}
	skill := d.skills[slot]
	now := d.now()
	if d.cast[slot] && now-d.lastCast[slot] < skill.Cooldown {
		return false
	}
	d.lastCast[slot] = now
	d.cast[slot] = true

	for _, e := range skill.SelfEffects {
		d.addEffect(e)
	}
	if skill.damaging() {
		if d.deps.State != nil {
			d.deps.State.NotifyCombat()
		}
		pos := d.position()
		spec := skill.spec(skill.BaseDamage + d.SpellPower())
		spec.Origin, spec.Center = pos, pos
		d.spawn(spec)
	}
	d.log.Debug("skill cast",
		zap.Uint64("entity", uint64(d.owner)),
		zap.String("skill", skill.Name),
		zap.Int("slot", slot))
	return true
}

// SkillReady reports whether slot holds a skill off cooldown.
func (d *Dispatcher) SkillReady(slot int) bool {
	if slot < 0 || slot >= len(d.skills) || d.skills[slot] == nil {
		return false
	}
	return !d.cast[slot] || d.now()-d.lastCast[slot] >= d.skills[slot].Cooldown
}

func (d *Dispatcher) spawn(spec damage.Spec) {
	if d.deps.Pipeline == nil {
		d.log.Debug("damage instance dropped",
			zap.Uint64("entity", uint64(d.owner)),
			zap.Error(fault.Missing("damage pipeline")))
		return
	}
	spec.Source = d.owner
	spec.Report = d.report
	r := d.deps.Pipeline.Spawn(spec)

	live := d.inflight[:0]
	for _, prev := range d.inflight {
		if prev.Active() {
			live = append(live, prev)
		}
	}
	d.inflight = append(live, r)
}

// cancelInflight invalidates every resolver this actor still owns.
func (d *Dispatcher) cancelInflight() {
	for i, r := range d.inflight {
		if d.deps.Pipeline != nil {
			d.deps.Pipeline.Cancel(r.ID())
		}
		d.inflight[i] = nil
	}
	d.inflight = d.inflight[:0]
}

// Inflight returns how many of this actor's damage instances may still hit.
func (d *Dispatcher) Inflight() int {
	n := 0
	for _, r := range d.inflight {
		if r.Active() {
			n++
		}
	}
	return n
}

func (d *Dispatcher) report(h damage.Hit) {
	if h.Killed && d.onKill != nil {
		d.onKill(h)
	}
}

func (d *Dispatcher) addEffect(e status.Effect) {
	if d.deps.Effects == nil {
		return
	}
	if e.Source.IsZero() {
		e.Source = d.owner
	}
	if _, err := d.deps.Effects.AddEffect(e); err != nil {
		d.log.Debug("self effect rejected",
			zap.Uint64("entity", uint64(d.owner)),
			zap.Stringer("kind", e.Kind),
			zap.Error(err))
	}
}

// TakeDamage applies the actor's Vulnerable multiplier, removes the
// result from health, forces Combat and, at zero health, Dead.
func (d *Dispatcher) TakeDamage(amount int) int {
	if amount <= 0 || d.IsDead() {
		return 0
	}
	if d.deps.Attrs == nil {
		d.log.Debug("damage dropped",
			zap.Uint64("entity", uint64(d.owner)),
			zap.Error(fault.Missing("attribute engine")))
		return 0
	}
	scaled := amount
	if d.deps.Effects != nil {
		scaled = max(int(math.Round(float64(amount)*d.deps.Effects.Multiplier(status.KindVulnerable))), 0)
	}
	applied := d.deps.Attrs.Damage(scaled)

	if d.deps.State != nil {
		d.deps.State.NotifyCombat()
	}
	if d.deps.Attrs.IsDead() {
		d.die()
	}
	for _, fn := range d.onDamaged {
		fn(applied)
	}
	return applied
}

func (d *Dispatcher) die() {
	if d.deps.State != nil && !d.deps.State.Kill() {
		return
	}
	d.cancelInflight()
	if d.deps.Effects != nil {
		d.deps.Effects.Clear()
	}
	event.Emit(d.bus, event.Died{Entity: d.owner})
	d.log.Debug("entity died", zap.Uint64("entity", uint64(d.owner)))
}

// Heal restores health; the dead are not healed.
func (d *Dispatcher) Heal(amount int) int {
	if d.deps.Attrs == nil || d.IsDead() {
		return 0
	}
	return d.deps.Attrs.Heal(amount)
}

// ApplyPeriodic is the status registry hook: Poison deals its magnitude
// through TakeDamage; a Health effect heals positive and harms negative.
func (d *Dispatcher) ApplyPeriodic(e *status.Effect) {
	amount := int(math.Round(e.Magnitude))
	if amount <= 0 {
		return
	}
	switch e.Kind {
	case status.KindPoison:
		d.periodicDamage(e, amount)
	case status.KindHealth:
		if e.Polarity == status.Negative {
			d.periodicDamage(e, amount)
			return
		}
		d.Heal(amount)
	}
}

func (d *Dispatcher) periodicDamage(e *status.Effect, amount int) {
	applied := d.TakeDamage(amount)
	event.Emit(d.bus, event.DamageApplied{
		Source:   e.Source,
		Target:   d.owner,
		Rolled:   amount,
		Applied:  applied,
		Periodic: true,
	})
}

// Revive returns a Dead actor to Normal with full health and clears
// cooldowns.
func (d *Dispatcher) Revive() bool {
	if d.deps.State == nil || !d.deps.State.Revive() {
		return false
	}
	if d.deps.Attrs != nil {
		d.deps.Attrs.RestoreFull()
	}
	d.attacked = false
	for i := range d.cast {
		d.cast[i] = false
	}
	event.Emit(d.bus, event.Revived{Entity: d.owner})
	return true
}

func (d *Dispatcher) CurrentHealth() int {
	if d.deps.Attrs == nil {
		return 0
	}
	return d.deps.Attrs.Health()
}

func (d *Dispatcher) MaxHealth() int {
	if d.deps.Attrs == nil {
		return 0
	}
	return d.deps.Attrs.MaxHealth()
}

// IsDead reports death by state or by an empty health pool.
func (d *Dispatcher) IsDead() bool {
	if d.deps.State != nil && d.deps.State.IsDead() {
		return true
	}
	return d.deps.Attrs != nil && d.deps.Attrs.IsDead()
}
