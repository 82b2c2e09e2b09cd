package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/combatcore/internal/status"
	"gopkg.in/yaml.v3"
)

// EffectTemplate is a named status effect loaded from YAML.
type EffectTemplate struct {
	ID           string  `yaml:"id"`
	Kind         string  `yaml:"kind"`
	Polarity     string  `yaml:"polarity"` // positive/buff or negative/debuff
	Magnitude    float64 `yaml:"magnitude"`
	Duration     float64 `yaml:"duration"` // seconds
	Stackable    bool    `yaml:"stackable"`
	MaxStacks    int     `yaml:"max_stacks"`
	TickInterval float64 `yaml:"tick_interval"` // seconds, 0 = not periodic

	effect status.Effect
}

type effectListFile struct {
	Effects []EffectTemplate `yaml:"effects"`
}

// EffectTable holds all effect templates indexed by ID.
type EffectTable struct {
	templates map[string]*EffectTemplate
}

// LoadEffectTable loads effect templates from a YAML file. Kinds and
// polarities are validated up front.
func LoadEffectTable(path string) (*EffectTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read effect_list: %w", err)
	}
	var f effectListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse effect_list: %w", err)
	}
	t := &EffectTable{templates: make(map[string]*EffectTemplate, len(f.Effects))}
	for i := range f.Effects {
		e := &f.Effects[i]
		kind, err := status.ParseKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("effect %q: %w", e.ID, err)
		}
		pol, err := status.ParsePolarity(e.Polarity)
		if err != nil {
			return nil, fmt.Errorf("effect %q: %w", e.ID, err)
		}
		if e.Duration <= 0 {
			return nil, fmt.Errorf("effect %q: duration must be positive", e.ID)
		}
		e.effect = status.Effect{
			Kind:         kind,
			Magnitude:    e.Magnitude,
			Polarity:     pol,
			Remaining:    e.Duration,
			Stackable:    e.Stackable,
			MaxStacks:    e.MaxStacks,
			TickInterval: e.TickInterval,
		}
		t.templates[e.ID] = e
	}
	return t, nil
}

// Get returns an effect template by ID, or nil if not found.
func (t *EffectTable) Get(id string) *EffectTemplate {
	return t.templates[id]
}

// Effect returns a fresh status effect for the template ID.
func (t *EffectTable) Effect(id string) (status.Effect, error) {
	e := t.templates[id]
	if e == nil {
		return status.Effect{}, fmt.Errorf("unknown effect %q", id)
	}
	return e.effect, nil
}

// Effects resolves a list of IDs.
func (t *EffectTable) Effects(ids []string) ([]status.Effect, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]status.Effect, 0, len(ids))
	for _, id := range ids {
		e, err := t.Effect(id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Count returns the number of loaded templates.
func (t *EffectTable) Count() int {
	return len(t.templates)
}
