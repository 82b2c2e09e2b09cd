package data

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/l1jgo/combatcore/internal/attr"
	"github.com/l1jgo/combatcore/internal/combat"
	"github.com/l1jgo/combatcore/internal/geom"
	"github.com/l1jgo/combatcore/internal/npc"
	"github.com/l1jgo/combatcore/internal/world"
	"gopkg.in/yaml.v3"
)

// Point is a position as written in YAML.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (p Point) vec() geom.Vec { return geom.V(p.X, p.Y) }

// PlayerEntry defines a controllable actor.
type PlayerEntry struct {
	Name        string   `yaml:"name"`
	X           float64  `yaml:"x"`
	Y           float64  `yaml:"y"`
	Level       int      `yaml:"level"`
	Stats       Stats    `yaml:",inline"`
	MoveSpeed   float64  `yaml:"move_speed"`
	WeaponBonus int      `yaml:"weapon_bonus"`
	Skills      []string `yaml:"skills"`
}

// SpawnEntry defines where and how many NPCs to spawn.
type SpawnEntry struct {
	Npc     string  `yaml:"npc"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Count   int     `yaml:"count"`
	RandomX float64 `yaml:"randomx"`
	RandomY float64 `yaml:"randomy"`
	Route   []Point `yaml:"route"`
}

type spawnListFile struct {
	Players []PlayerEntry `yaml:"players"`
	Spawns  []SpawnEntry  `yaml:"spawns"`
}

// SpawnList is the initial population of a run.
type SpawnList struct {
	Players []PlayerEntry
	Spawns  []SpawnEntry
}

// LoadSpawnList loads players and NPC spawn groups from a YAML file.
func LoadSpawnList(path string) (*SpawnList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn_list: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse spawn_list: %w", err)
	}
	for i := range f.Spawns {
		if f.Spawns[i].Count <= 0 {
			f.Spawns[i].Count = 1
		}
	}
	return &SpawnList{Players: f.Players, Spawns: f.Spawns}, nil
}

// Count returns the total number of actors the list spawns.
func (l *SpawnList) Count() int {
	n := len(l.Players)
	for _, s := range l.Spawns {
		n += s.Count
	}
	return n
}

// Defaults fills what the catalogs leave unset.
type Defaults struct {
	Brain      npc.Config
	MoveSpeed  float64
	Attack     combat.AttackProfile
	Growth     attr.GrowthSet
	GrowthRate float64
	ExpToNext  int
	Threshold  attr.ThresholdFunc
}

// Catalog joins every loaded table.
type Catalog struct {
	Effects *EffectTable
	Skills  *SkillTable
	Npcs    *NpcTable
	Spawns  *SpawnList
}

// LoadCatalog loads all four tables.
func LoadCatalog(effects, skills, npcs, spawns string) (*Catalog, error) {
	et, err := LoadEffectTable(effects)
	if err != nil {
		return nil, err
	}
	st, err := LoadSkillTable(skills)
	if err != nil {
		return nil, err
	}
	nt, err := LoadNpcTable(npcs)
	if err != nil {
		return nil, err
	}
	sl, err := LoadSpawnList(spawns)
	if err != nil {
		return nil, err
	}
	return &Catalog{Effects: et, Skills: st, Npcs: nt, Spawns: sl}, nil
}

// PlayerSpecs converts the player entries.
func (c *Catalog) PlayerSpecs(def Defaults) ([]world.ActorSpec, error) {
	out := make([]world.ActorSpec, 0, len(c.Spawns.Players))
	for _, p := range c.Spawns.Players {
		skills, err := c.Skills.BuildAll(p.Skills, c.Effects)
		if err != nil {
			return nil, fmt.Errorf("player %q: %w", p.Name, err)
		}
		atk := def.Attack
		atk.WeaponBonus = p.WeaponBonus
		level := p.Level
		if level <= 0 {
			level = 1
		}
		out = append(out, world.ActorSpec{
			Kind:       world.KindPlayer,
			Name:       p.Name,
			Position:   geom.V(p.X, p.Y),
			Level:      level,
			ExpToNext:  def.ExpToNext,
			Base:       p.Stats.Set(),
			Growth:     def.Growth,
			GrowthRate: def.GrowthRate,
			Threshold:  def.Threshold,
			MoveSpeed:  orDefault(p.MoveSpeed, def.MoveSpeed),
			Attack:     atk,
			Skills:     skills,
		})
	}
	return out, nil
}

// NpcSpecs expands every spawn group; positions are jittered with rng.
func (c *Catalog) NpcSpecs(def Defaults, rng *rand.Rand) ([]world.ActorSpec, error) {
	var out []world.ActorSpec
	for _, sp := range c.Spawns.Spawns {
		tmpl := c.Npcs.Get(sp.Npc)
		if tmpl == nil {
			return nil, fmt.Errorf("spawn: unknown npc %q", sp.Npc)
		}
		skills, err := c.Skills.BuildAll(tmpl.Skills, c.Effects)
		if err != nil {
			return nil, fmt.Errorf("npc %q: %w", tmpl.ID, err)
		}
		route := make([]geom.Vec, len(sp.Route))
		for i, p := range sp.Route {
			route[i] = p.vec()
		}
		atk := def.Attack
		atk.WeaponBonus = tmpl.WeaponBonus
		if tmpl.AtkCooldown > 0 {
			atk.BaseCooldown = tmpl.AtkCooldown
		}
		for i := 0; i < sp.Count; i++ {
			brain := tmpl.BrainConfig(def.Brain)
			brain.Route = route
			atk.Range = brain.AttackRange
			out = append(out, world.ActorSpec{
				Kind:      world.KindNPC,
				Name:      tmpl.Name,
				Template:  tmpl.ID,
				Position:  geom.V(sp.X+jitter(rng, sp.RandomX), sp.Y+jitter(rng, sp.RandomY)),
				Level:     tmpl.Level,
				Base:      tmpl.Stats.Set(),
				MoveSpeed: orDefault(tmpl.MoveSpeed, def.MoveSpeed),
				Mass:      tmpl.Mass,
				Static:    tmpl.Static,
				Attack:    atk,
				Skills:    skills,
				Brain:     &brain,
				ExpReward: tmpl.Exp,
			})
		}
	}
	return out, nil
}

func jitter(rng *rand.Rand, span float64) float64 {
	if span <= 0 || rng == nil {
		return 0
	}
	return (rng.Float64()*2 - 1) * span
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
