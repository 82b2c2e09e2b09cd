package combat

import (
	"github.com/l1jgo/combatcore/internal/damage"
	"github.com/l1jgo/combatcore/internal/status"
)

// Skill is one castable ability bound to a slot.
type Skill struct {
	Name     string
	Cooldown float64

	// BaseDamage of zero or less makes a pure self-buff skill that spawns
	// no damage instance.
	BaseDamage int
	Range      float64
	Variance   float64
	Knockback  float64
	Duration   float64

	Pierce           bool
	MaxPierceTargets int

	Chain           bool
	ChainRadius     float64
	ChainFalloff    float64
	MaxChainTargets int

	SelfEffects []status.Effect
	OnHit       []status.Effect
}

func (s *Skill) damaging() bool { return s.BaseDamage > 0 && s.Range > 0 }

func (s *Skill) spec(power int) damage.Spec {
	return damage.Spec{
		Range:            s.Range,
		BaseDamage:       power,
		Variance:         s.Variance,
		Knockback:        s.Knockback,
		Duration:         s.Duration,
		Pierce:           s.Pierce,
		MaxPierceTargets: s.MaxPierceTargets,
		Chain:            s.Chain,
		ChainRadius:      s.ChainRadius,
		ChainFalloff:     s.ChainFalloff,
		MaxChainTargets:  s.MaxChainTargets,
		OnHit:            s.OnHit,
	}
}

// AttackProfile parameterizes basic attacks.
type AttackProfile struct {
	// BaseCooldown is the attack interval in seconds at attack speed 1.
	BaseCooldown    float64
	BaseAttackSpeed float64
	Range           float64
	Variance        float64
	Knockback       float64
	Duration        float64
	WeaponBonus     int
}

// DefaultAttackProfile is a one-second melee swing.
var DefaultAttackProfile = AttackProfile{
	BaseCooldown:    1.0,
	BaseAttackSpeed: 1.0,
	Range:           1.5,
	Duration:        0.1,
}

func (p AttackProfile) withDefaults() AttackProfile {
	if p.BaseCooldown <= 0 {
		p.BaseCooldown = DefaultAttackProfile.BaseCooldown
	}
	if p.BaseAttackSpeed <= 0 {
		p.BaseAttackSpeed = DefaultAttackProfile.BaseAttackSpeed
	}
	if p.Range <= 0 {
		p.Range = DefaultAttackProfile.Range
	}
	return p
}
