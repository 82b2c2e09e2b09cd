package world

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/l1jgo/combatcore/internal/attr"
	"github.com/l1jgo/combatcore/internal/charstate"
	"github.com/l1jgo/combatcore/internal/combat"
	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/core/event"
	"github.com/l1jgo/combatcore/internal/damage"
	"github.com/l1jgo/combatcore/internal/geom"
	"github.com/l1jgo/combatcore/internal/npc"
	"github.com/l1jgo/combatcore/internal/status"
	"go.uber.org/zap"
)

// ActorSpec describes an actor to spawn.
type ActorSpec struct {
	Kind     Kind
	Name     string
	Template string
	Position geom.Vec

	Level      int
	Experience int
	ExpToNext  int
	Base       attr.Set
	Growth     attr.GrowthSet
	GrowthRate float64
	Threshold  attr.ThresholdFunc

	MoveSpeed float64
	Mass      float64
	// Static actors expose no body to knockback.
	Static bool

	Attack combat.AttackProfile
	Skills []*combat.Skill

	// Brain makes the actor autonomous; nil for players.
	Brain     *npc.Config
	ExpReward int
}

// State is the in-memory world: every actor, the spatial index and the
// damage pipeline that queries it.
// Accessed only from the game loop goroutine; no locks needed.
type State struct {
	ecs      *ecs.World
	actors   *ecs.PtrComponentStore[Actor]
	grid     *AOIGrid
	pipeline *damage.Pipeline
	clock    combat.Clock
	bus      *event.Bus
	log      *zap.Logger

	rng           *rand.Rand
	cellSize      float64
	falloff       float64
	combatTimeout float64
	effectCap     int
	friction      float64
}

// Option configures a State.
type Option func(*State)

func WithBus(b *event.Bus) Option        { return func(s *State) { s.bus = b } }
func WithLogger(l *zap.Logger) Option    { return func(s *State) { s.log = l } }
func WithRand(r *rand.Rand) Option       { return func(s *State) { s.rng = r } }
func WithCellSize(size float64) Option   { return func(s *State) { s.cellSize = size } }
func WithChainFalloff(f float64) Option  { return func(s *State) { s.falloff = f } }
func WithCombatTimeout(t float64) Option { return func(s *State) { s.combatTimeout = t } }
func WithEffectCapacity(n int) Option    { return func(s *State) { s.effectCap = n } }
func WithFriction(f float64) Option      { return func(s *State) { s.friction = f } }

// NewState creates an empty world whose cooldowns read clock.
func NewState(clock combat.Clock, opts ...Option) *State {
	s := &State{
		ecs:      ecs.NewWorld(),
		actors:   ecs.NewPtrComponentStore[Actor](),
		clock:    clock,
		friction: DefaultFriction,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(1))
	}
	s.grid = NewAOIGrid(s.cellSize)
	s.pipeline = damage.NewPipeline(s,
		damage.WithRand(s.rng),
		damage.WithBus(s.bus),
		damage.WithLogger(s.log),
		damage.WithChainFalloff(s.falloff))

	s.ecs.Registry().Register(s.actors)
	s.ecs.Registry().Register(ecs.RemoveFunc(s.grid.Remove))
	return s
}

func (s *State) ECS() *ecs.World                { return s.ecs }
func (s *State) Grid() *AOIGrid                 { return s.grid }
func (s *State) Pipeline() *damage.Pipeline     { return s.pipeline }
func (s *State) Bus() *event.Bus                { return s.bus }
func (s *State) Clock() combat.Clock            { return s.clock }
func (s *State) Count() int                     { return s.actors.Len() }
func (s *State) Alive(id ecs.EntityID) bool     { return s.ecs.Alive(id) }
func (s *State) Despawn(id ecs.EntityID)        { s.ecs.MarkForDestruction(id) }
func (s *State) FlushDespawned() []ecs.EntityID { return s.ecs.FlushDestroyQueue() }

// Actor looks up a live actor.
func (s *State) Actor(id ecs.EntityID) (*Actor, bool) {
	return s.actors.Get(id)
}

// Each visits every actor in ascending ID order.
func (s *State) Each(fn func(*Actor)) {
	s.actors.Each(func(_ ecs.EntityID, a *Actor) { fn(a) })
}

// Spawn builds and wires every component of a new actor.
func (s *State) Spawn(spec ActorSpec) (*Actor, error) {
	if spec.Brain != nil {
		if err := spec.Brain.Validate(); err != nil {
			return nil, fmt.Errorf("spawn %s: %w", spec.Name, err)
		}
	}
	id := s.ecs.CreateEntity()
	a := &Actor{
		ID:        id,
		Kind:      spec.Kind,
		Name:      spec.Name,
		Template:  spec.Template,
		ExpReward: spec.ExpReward,
		Body: &Body{
			Position:  spec.Position,
			MoveSpeed: spec.MoveSpeed,
			Mass:      spec.Mass,
		},
	}
	a.Attrs = attr.New(id, attr.Config{
		Level:      spec.Level,
		Experience: spec.Experience,
		ExpToNext:  spec.ExpToNext,
		Base:       spec.Base,
		Growth:     spec.Growth,
		GrowthRate: spec.GrowthRate,
		Threshold:  spec.Threshold,
	}, attr.WithBus(s.bus), attr.WithLogger(s.log))
	a.Effects = status.NewRegistry(id,
		status.WithBus(s.bus),
		status.WithLogger(s.log),
		status.WithCapacity(s.effectCap))
	a.State = charstate.New(id,
		charstate.WithBus(s.bus),
		charstate.WithLogger(s.log),
		charstate.WithCombatTimeout(s.combatTimeout))
	a.Combat = combat.New(id, combat.Deps{
		Attrs:    a.Attrs,
		Effects:  a.Effects,
		State:    a.State,
		Pipeline: s.pipeline,
		Clock:    s.clock,
		Position: a.Position,
	},
		combat.WithBus(s.bus),
		combat.WithLogger(s.log),
		combat.WithProfile(spec.Attack),
		combat.WithSkills(spec.Skills...))
	a.Combat.OnKill(s.awardKill(a))

	if spec.Brain != nil {
		brain, err := npc.New(id, *spec.Brain, npcActuator{a: a},
			npc.WithBus(s.bus),
			npc.WithLogger(s.log))
		if err != nil {
			s.ecs.Pool().Destroy(id)
			return nil, fmt.Errorf("spawn %s: %w", spec.Name, err)
		}
		a.Brain = brain
		a.Combat.OnDamaged(func(int) { brain.OnDamaged() })
	}

	a.candidate = damage.Candidate{ID: id, Damageable: a.Combat, Effects: a.Effects}
	if !spec.Static {
		a.candidate.Body = a.Body
	}

	s.actors.Set(id, a)
	s.grid.Add(id, a.Body.Position)
	s.log.Debug("actor spawned",
		zap.Uint64("entity", uint64(id)),
		zap.Stringer("kind", a.Kind),
		zap.String("name", a.Name))
	return a, nil
}

// awardKill credits killer with the target's experience reward. A dead
// killer earns nothing, so a corpse never levels up.
func (s *State) awardKill(killer *Actor) func(damage.Hit) {
	return func(h damage.Hit) {
		if killer.IsDead() {
			return
		}
		target, ok := s.actors.Get(h.Target)
		if !ok || target.ExpReward <= 0 {
			return
		}
		killer.Attrs.AddExperience(target.ExpReward)
	}
}

// Overlap implements damage.Spatial over the grid.
func (s *State) Overlap(center geom.Vec, radius float64) []damage.Candidate {
	var out []damage.Candidate
	for _, id := range s.grid.Nearby(center, radius) {
		a, ok := s.actors.Get(id)
		if !ok {
			continue
		}
		c := a.Candidate()
		if c.Position.Dist(center) <= radius {
			out = append(out, c)
		}
	}
	return out
}

// NearestPlayer returns the closest living player to from.
func (s *State) NearestPlayer(from geom.Vec) (*Actor, bool) {
	var best *Actor
	bestDist := math.Inf(1)
	s.Each(func(a *Actor) {
		if a.Kind != KindPlayer || a.IsDead() {
			return
		}
		if d := a.Position().Dist(from); d < bestDist {
			best, bestDist = a, d
		}
	})
	return best, best != nil
}
