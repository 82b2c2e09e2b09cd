package system

import (
	"fmt"
	"sort"
	"time"

	"github.com/l1jgo/combatcore/internal/core/fault"
	"go.uber.org/zap"
)

// Runner executes systems in phase order each tick and owns the simulation
// clock. A panic inside one system is absorbed and logged; the remaining
// systems of the tick still run.
type Runner struct {
	systems []System
	sorted  bool
	clock   *Clock
	log     *zap.Logger
}

func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		systems: make([]System, 0, 8),
		clock:   &Clock{},
		log:     log,
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Clock exposes the simulation clock advanced by Tick.
func (r *Runner) Clock() *Clock { return r.clock }

// Tick advances the clock by dt and runs every system once.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	r.clock.advance(dt)
	for _, s := range r.systems {
		r.run(s, dt)
	}
}

// TickPhase runs only the systems of one phase without advancing the clock.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			r.run(s, dt)
		}
	}
}

func (r *Runner) run(s System, dt time.Duration) {
	defer fault.Recover(r.log, systemName(s))
	s.Update(dt)
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}

func systemName(s System) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T@%s", s, s.Phase())
}

// Clock is tick-counted simulation time. It never reads the wall clock, so
// cooldowns and timeouts replay identically for the same tick sequence.
type Clock struct {
	ticks   uint64
	elapsed time.Duration
}

func (c *Clock) advance(dt time.Duration) {
	c.ticks++
	c.elapsed += dt
}

// Now returns elapsed simulation time in seconds.
func (c *Clock) Now() float64 { return c.elapsed.Seconds() }

// Ticks returns how many ticks have run.
func (c *Clock) Ticks() uint64 { return c.ticks }
