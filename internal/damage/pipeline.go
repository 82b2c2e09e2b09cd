package damage

import (
	"math"
	"math/rand"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/core/event"
	"github.com/l1jgo/combatcore/internal/core/fault"
	"go.uber.org/zap"
)

// Pipeline owns every live resolver and steps them once per damage phase.
type Pipeline struct {
	spatial Spatial
	rng     *rand.Rand
	bus     *event.Bus
	log     *zap.Logger
	falloff float64

	nextID   ResolverID
	active   []*Resolver
	byID     map[ResolverID]*Resolver
	resolved uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithRand(r *rand.Rand) Option    { return func(p *Pipeline) { p.rng = r } }
func WithBus(b *event.Bus) Option     { return func(p *Pipeline) { p.bus = b } }
func WithLogger(l *zap.Logger) Option { return func(p *Pipeline) { p.log = l } }

// WithChainFalloff sets the falloff used by specs that leave it unset.
func WithChainFalloff(f float64) Option {
	return func(p *Pipeline) {
		if f > 0 {
			p.falloff = f
		}
	}
}

// NewPipeline creates a pipeline querying spatial for overlaps.
func NewPipeline(spatial Spatial, opts ...Option) *Pipeline {
	p := &Pipeline{
		spatial: spatial,
		falloff: DefaultChainFalloff,
		byID:    make(map[ResolverID]*Resolver),
	}
	for _, o := range opts {
		o(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(1))
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return p
}

// Spawn registers a new resolver. It is first stepped by the next Step.
func (p *Pipeline) Spawn(spec Spec) *Resolver {
	p.nextID++
	r := &Resolver{
		id:     p.nextID,
		spec:   spec,
		p:      p,
		hit:    make(map[ecs.EntityID]struct{}),
		active: true,
	}
	p.active = append(p.active, r)
	p.byID[r.id] = r
	return r
}

// Cancel invalidates a resolver; it never hits again. Returns false for
// unknown or already finished resolvers.
func (p *Pipeline) Cancel(id ResolverID) bool {
	r, ok := p.byID[id]
	if !ok || !r.active {
		return false
	}
	r.Cancel()
	return true
}

// Step queries the overlap region of every active resolver in spawn order,
// offers the candidates nearest first, then ages the resolver by dt
// seconds. Finished resolvers are dropped. Resolvers spawned from a Report
// callback wait for the next step.
func (p *Pipeline) Step(dt float64) {
	if len(p.active) == 0 {
		return
	}
	if p.spatial == nil {
		p.log.Warn("damage step skipped", zap.Error(fault.Missing("spatial query")))
		for _, r := range p.active {
			r.active = false
		}
		p.compact()
		return
	}

	snapshot := make([]*Resolver, len(p.active))
	copy(snapshot, p.active)
	for _, r := range snapshot {
		if !r.active {
			continue
		}
		candidates := p.spatial.Overlap(r.spec.Center, r.spec.Range)
		sortByDistance(candidates, r.spec.Center)
		for _, c := range candidates {
			if !r.active {
				break
			}
			if _, err := r.Offer(c); err == nil {
				p.resolved++
			}
		}
		if r.active {
			r.age(dt)
		}
	}
	p.compact()
}

func (p *Pipeline) compact() {
	n := 0
	for _, r := range p.active {
		if r.active {
			p.active[n] = r
			n++
			continue
		}
		delete(p.byID, r.id)
	}
	for i := n; i < len(p.active); i++ {
		p.active[i] = nil
	}
	p.active = p.active[:n]
}

// Active returns the number of live resolvers.
func (p *Pipeline) Active() int { return len(p.active) }

// Resolved counts primary hits over the pipeline lifetime.
func (p *Pipeline) Resolved() uint64 { return p.resolved }

// roll returns max(1, round(base × (1 + U(−variance, +variance)))). A zero
// variance consumes no randomness.
func (p *Pipeline) roll(base int, variance float64) int {
	f := 1.0
	if variance > 0 {
		f += (p.rng.Float64()*2 - 1) * variance
	}
	return max(1, int(math.Round(float64(base)*f)))
}
