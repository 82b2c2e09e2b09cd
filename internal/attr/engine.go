package attr

import (
	"fmt"
	"math"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/core/event"
	"github.com/l1jgo/combatcore/internal/core/fault"
	"go.uber.org/zap"
)

const (
	// HealthPerStamina converts stamina into the health pool.
	HealthPerStamina = 20
	// DefaultGrowthRate scales the experience threshold on each level-up.
	DefaultGrowthRate = 1.2
	// DefaultExpToNextLevel is the level 1 → 2 threshold.
	DefaultExpToNextLevel = 100
)

// ThresholdFunc computes the next experience threshold after reaching
// level. A non-positive result falls back to the growth-rate curve.
type ThresholdFunc func(level, current int) int

// Config seeds an Engine.
type Config struct {
	Level      int
	Experience int
	ExpToNext  int
	Base       Set
	Growth     GrowthSet
	GrowthRate float64
	Threshold  ThresholdFunc
}

// Engine owns an entity's attributes, level progression and health pool.
// Invariant: 0 <= Health() <= MaxHealth() and MaxHealth() = stamina × 20.
type Engine struct {
	owner ecs.EntityID
	bus   *event.Bus
	log   *zap.Logger

	level     int
	exp       int
	expToNext int
	rate      float64
	threshold ThresholdFunc

	base    Set
	growth  GrowthSet
	current Set

	health    int
	maxHealth int
}

// Option configures an Engine.
type Option func(*Engine)

func WithBus(b *event.Bus) Option     { return func(e *Engine) { e.bus = b } }
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

// New creates an engine and derives its attributes and full health.
func New(owner ecs.EntityID, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		owner:     owner,
		level:     max(cfg.Level, 1),
		exp:       max(cfg.Experience, 0),
		expToNext: cfg.ExpToNext,
		rate:      cfg.GrowthRate,
		threshold: cfg.Threshold,
		base:      cfg.Base,
		growth:    cfg.Growth,
	}
	if e.expToNext <= 0 {
		e.expToNext = DefaultExpToNextLevel
	}
	if e.rate <= 0 {
		e.rate = DefaultGrowthRate
	}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	e.RecalculateDerived()
	return e
}

// SetThresholdFunc swaps the level curve (e.g. a scripted curve).
func (e *Engine) SetThresholdFunc(fn ThresholdFunc) { e.threshold = fn }

func (e *Engine) Owner() ecs.EntityID { return e.owner }
func (e *Engine) Level() int          { return e.level }
func (e *Engine) Experience() int     { return e.exp }
func (e *Engine) ExpToNextLevel() int { return e.expToNext }
func (e *Engine) Health() int         { return e.health }
func (e *Engine) MaxHealth() int      { return e.maxHealth }
func (e *Engine) IsDead() bool        { return e.health <= 0 }

// Base returns the unleveled attribute value.
func (e *Engine) Base(a Attribute) int { return e.base.Get(a) }

// Current returns the derived attribute value for the current level.
func (e *Engine) Current(a Attribute) int { return e.current.Get(a) }

// Bases returns a copy of all base attributes.
func (e *Engine) Bases() Set { return e.base }

// SetBase changes a base attribute and rederives everything, which also
// refills health to the new maximum.
func (e *Engine) SetBase(a Attribute, value int) error {
	if !a.Valid() {
		return fmt.Errorf("set base %s: %w", a, fault.ErrInvalidIndex)
	}
	e.base[a] = max(value, 0)
	e.RecalculateDerived()
	return nil
}

// RecalculateDerived rebuilds current attributes as
// base + (level−1) × growth, recomputes max health from stamina and
// restores health to full.
func (e *Engine) RecalculateDerived() {
	for a := Attribute(0); a < attributeCount; a++ {
		e.current[a] = e.base[a] + (e.level-1)*e.growth[a]
	}
	e.maxHealth = max(e.current[Stamina]*HealthPerStamina, 0)
	e.health = e.maxHealth
	event.Emit(e.bus, event.AttributesChanged{
		Entity:       e.owner,
		Level:        e.level,
		Strength:     e.current[Strength],
		Agility:      e.current[Agility],
		Intelligence: e.current[Intelligence],
		Stamina:      e.current[Stamina],
		Vitality:     e.current[Vitality],
		Health:       e.health,
		MaxHealth:    e.maxHealth,
	})
}

// AddExperience accumulates experience and performs every level-up it
// pays for, in order. Returns the number of levels gained.
func (e *Engine) AddExperience(amount int) int {
	if amount <= 0 {
		return 0
	}
	e.exp += amount
	gained := 0
	for e.exp >= e.expToNext {
		e.exp -= e.expToNext
		e.level++
		e.expToNext = e.nextThreshold()
		e.RecalculateDerived()
		gained++
		event.Emit(e.bus, event.LevelUp{Entity: e.owner, Level: e.level, ExpToNext: e.expToNext})
		e.log.Debug("level up",
			zap.Uint64("entity", uint64(e.owner)),
			zap.Int("level", e.level),
			zap.Int("exp_to_next", e.expToNext))
	}
	return gained
}

func (e *Engine) nextThreshold() int {
	if e.threshold != nil {
		if next := e.threshold(e.level, e.expToNext); next > 0 {
			return next
		}
	}
	return max(int(math.Round(float64(e.expToNext)*e.rate)), 1)
}

// Damage lowers health by amount (clamped at zero) and returns the amount
// actually removed.
func (e *Engine) Damage(amount int) int {
	if amount <= 0 || e.health <= 0 {
		return 0
	}
	applied := min(amount, e.health)
	e.health -= applied
	return applied
}

// Heal raises health by amount (clamped at max) and returns the amount
// actually restored. Dead entities are not healed; use RestoreFull.
func (e *Engine) Heal(amount int) int {
	if amount <= 0 || e.health <= 0 {
		return 0
	}
	applied := min(amount, e.maxHealth-e.health)
	e.health += applied
	return applied
}

// RestoreFull sets health to max.
func (e *Engine) RestoreFull() { e.health = e.maxHealth }

// Restore loads persisted progression without emitting level-ups. Health
// is clamped into [0, max].
func (e *Engine) Restore(level, exp, expToNext int, base Set, health int) {
	e.level = max(level, 1)
	e.exp = max(exp, 0)
	if expToNext > 0 {
		e.expToNext = expToNext
	}
	e.base = base
	e.RecalculateDerived()
	e.health = min(max(health, 0), e.maxHealth)
}
