package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/combatcore/internal/combat"
	"gopkg.in/yaml.v3"
)

// SkillInfo holds static skill data loaded from YAML.
type SkillInfo struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Cooldown   float64 `yaml:"cooldown"` // seconds
	BaseDamage int     `yaml:"base_damage"`
	Range      float64 `yaml:"range"`
	Variance   float64 `yaml:"variance"`
	Knockback  float64 `yaml:"knockback"`
	Duration   float64 `yaml:"duration"` // resolver lifetime, seconds

	Pierce           bool `yaml:"pierce"`
	MaxPierceTargets int  `yaml:"max_pierce_targets"`

	Chain *ChainInfo `yaml:"chain"`

	SelfEffects []string `yaml:"self_effects"`
	OnHit       []string `yaml:"on_hit"`
}

// ChainInfo enables chaining from the first target hit.
type ChainInfo struct {
	Radius     float64 `yaml:"radius"`
	Falloff    float64 `yaml:"falloff"` // 0 = world default
	MaxTargets int     `yaml:"max_targets"`
}

type skillListFile struct {
	Skills []SkillInfo `yaml:"skills"`
}

// SkillTable holds all skills indexed by ID.
type SkillTable struct {
	skills map[string]*SkillInfo
}

// LoadSkillTable loads skill definitions from a YAML file.
func LoadSkillTable(path string) (*SkillTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill_list: %w", err)
	}
	var f skillListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse skill_list: %w", err)
	}
	t := &SkillTable{skills: make(map[string]*SkillInfo, len(f.Skills))}
	for i := range f.Skills {
		s := &f.Skills[i]
		if s.Name == "" {
			s.Name = s.ID
		}
		t.skills[s.ID] = s
	}
	return t, nil
}

// Get returns a skill by ID, or nil if not found.
func (t *SkillTable) Get(id string) *SkillInfo {
	return t.skills[id]
}

// Count returns the number of loaded skills.
func (t *SkillTable) Count() int {
	return len(t.skills)
}

// Build resolves a skill and its effect references into a castable skill.
func (t *SkillTable) Build(id string, effects *EffectTable) (*combat.Skill, error) {
	info := t.skills[id]
	if info == nil {
		return nil, fmt.Errorf("unknown skill %q", id)
	}
	self, err := effects.Effects(info.SelfEffects)
	if err != nil {
		return nil, fmt.Errorf("skill %q self_effects: %w", id, err)
	}
	onHit, err := effects.Effects(info.OnHit)
	if err != nil {
		return nil, fmt.Errorf("skill %q on_hit: %w", id, err)
	}
	sk := &combat.Skill{
		Name:             info.Name,
		Cooldown:         info.Cooldown,
		BaseDamage:       info.BaseDamage,
		Range:            info.Range,
		Variance:         info.Variance,
		Knockback:        info.Knockback,
		Duration:         info.Duration,
		Pierce:           info.Pierce,
		MaxPierceTargets: info.MaxPierceTargets,
		SelfEffects:      self,
		OnHit:            onHit,
	}
	if info.Chain != nil {
		sk.Chain = true
		sk.ChainRadius = info.Chain.Radius
		sk.ChainFalloff = info.Chain.Falloff
		sk.MaxChainTargets = info.Chain.MaxTargets
	}
	return sk, nil
}

// BuildAll resolves a slot list; an empty ID leaves the slot empty.
func (t *SkillTable) BuildAll(ids []string, effects *EffectTable) ([]*combat.Skill, error) {
	out := make([]*combat.Skill, len(ids))
	for i, id := range ids {
		if id == "" {
			continue
		}
		sk, err := t.Build(id, effects)
		if err != nil {
			return nil, err
		}
		out[i] = sk
	}
	return out, nil
}
