package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/combatcore/internal/attr"
	"github.com/l1jgo/combatcore/internal/npc"
	"gopkg.in/yaml.v3"
)

// Stats is the five base attributes as written in YAML.
type Stats struct {
	Str int `yaml:"str"`
	Agi int `yaml:"agi"`
	Int int `yaml:"intel"`
	Sta int `yaml:"sta"`
	Vit int `yaml:"vit"`
}

// Set converts to an attribute set.
func (s Stats) Set() attr.Set {
	return attr.Set{
		attr.Strength:     s.Str,
		attr.Agility:      s.Agi,
		attr.Intelligence: s.Int,
		attr.Stamina:      s.Sta,
		attr.Vitality:     s.Vit,
	}
}

// NpcTemplate holds static data for an NPC type loaded from YAML.
// Zero-valued tuning fields fall back to the [npc] config section.
type NpcTemplate struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Level       int     `yaml:"level"`
	Stats       Stats   `yaml:",inline"`
	Exp         int     `yaml:"exp"` // reward granted to the killer
	Disposition string  `yaml:"disposition"`
	MoveSpeed   float64 `yaml:"move_speed"`
	Mass        float64 `yaml:"mass"`
	Static      bool    `yaml:"static"`

	DetectionRange float64 `yaml:"detection_range"`
	AttackRange    float64 `yaml:"attack_range"`
	IdleTimeout    float64 `yaml:"idle_timeout"`
	WaitDelay      float64 `yaml:"wait_delay"`

	AtkCooldown float64  `yaml:"atk_cooldown"` // seconds at attack speed 1
	WeaponBonus int      `yaml:"weapon_bonus"`
	Skills      []string `yaml:"skills"`

	disposition npc.Disposition
}

type npcListFile struct {
	Npcs []NpcTemplate `yaml:"npcs"`
}

// NpcTable holds all NPC templates indexed by ID.
type NpcTable struct {
	templates map[string]*NpcTemplate
}

// LoadNpcTable loads NPC templates from a YAML file.
func LoadNpcTable(path string) (*NpcTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npc_list: %w", err)
	}
	var f npcListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse npc_list: %w", err)
	}
	t := &NpcTable{templates: make(map[string]*NpcTemplate, len(f.Npcs))}
	for i := range f.Npcs {
		n := &f.Npcs[i]
		d, err := npc.ParseDisposition(n.Disposition)
		if err != nil {
			return nil, fmt.Errorf("npc %q: %w", n.ID, err)
		}
		n.disposition = d
		if n.Name == "" {
			n.Name = n.ID
		}
		if n.Level <= 0 {
			n.Level = 1
		}
		t.templates[n.ID] = n
	}
	return t, nil
}

// Get returns an NPC template by ID, or nil if not found.
func (t *NpcTable) Get(id string) *NpcTemplate {
	return t.templates[id]
}

// Count returns the number of loaded templates.
func (t *NpcTable) Count() int {
	return len(t.templates)
}

// BrainConfig returns the behavior tuning for this template over defaults.
func (n *NpcTemplate) BrainConfig(def npc.Config) npc.Config {
	cfg := def
	cfg.Disposition = n.disposition
	if n.DetectionRange > 0 {
		cfg.DetectionRange = n.DetectionRange
	}
	if n.AttackRange > 0 {
		cfg.AttackRange = n.AttackRange
	}
	if n.IdleTimeout > 0 {
		cfg.IdleTimeout = n.IdleTimeout
	}
	if n.WaitDelay > 0 {
		cfg.WaitDelay = n.WaitDelay
	}
	cfg.Route = nil
	return cfg
}
