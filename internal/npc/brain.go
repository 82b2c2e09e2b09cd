// Package npc implements the autonomous NPC behavior machine
// (Idle, Patrol, Approach, Attack, Wait, Dead) and hostility disposition.
package npc

import (
	"fmt"
	"math"
	"strings"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/core/event"
	"github.com/l1jgo/combatcore/internal/core/fault"
	"github.com/l1jgo/combatcore/internal/geom"
	"go.uber.org/zap"
)

// State is the active behavior. Exactly one is active.
type State uint8

const (
	Idle State = iota
	Patrol
	Approach
	Attack
	Wait
	Dead
)

var stateNames = [...]string{"idle", "patrol", "approach", "attack", "wait", "dead"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("npc_state(%d)", uint8(s))
}

// Disposition is the hostility classification. Neutral promotes to
// Hostile on damage and never returns.
type Disposition uint8

const (
	Hostile Disposition = iota
	Neutral
	Friendly
)

func (d Disposition) String() string {
	switch d {
	case Hostile:
		return "hostile"
	case Neutral:
		return "neutral"
	case Friendly:
		return "friendly"
	}
	return fmt.Sprintf("disposition(%d)", uint8(d))
}

// ParseDisposition maps a catalog name to a Disposition.
func ParseDisposition(s string) (Disposition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hostile", "aggressive":
		return Hostile, nil
	case "neutral", "passive":
		return Neutral, nil
	case "friendly":
		return Friendly, nil
	}
	return 0, fmt.Errorf("unknown disposition %q", s)
}

const (
	DefaultIdleTimeout = 3.0
	DefaultWaitDelay   = 1.0
	// ArriveRadius is how close a patrol waypoint counts as reached.
	ArriveRadius = 0.25
)

// Config tunes one brain. DetectionRange must exceed AttackRange so that
// Approach and Attack cannot oscillate at the boundary.
type Config struct {
	DetectionRange float64
	AttackRange    float64
	IdleTimeout    float64
	WaitDelay      float64
	Route          []geom.Vec
	Disposition    Disposition
}

// Validate checks the range ordering.
func (c Config) Validate() error {
	if c.AttackRange <= 0 {
		return fmt.Errorf("attack range %.2f must be positive", c.AttackRange)
	}
	if c.DetectionRange <= c.AttackRange {
		return fmt.Errorf("detection range %.2f must exceed attack range %.2f", c.DetectionRange, c.AttackRange)
	}
	return nil
}

// Senses is what perception reports to the brain each tick.
type Senses struct {
	Position geom.Vec
	// HasTarget is false when no candidate target exists at all.
	HasTarget bool
	Target    geom.Vec
	Dead      bool
}

// Actuator carries out the brain's decisions on the owning actor.
type Actuator interface {
	MoveToward(target geom.Vec)
	Stop()
	PerformAttack() bool
}

// Brain is the behavior machine of one NPC.
type Brain struct {
	owner ecs.EntityID
	cfg   Config
	act   Actuator
	bus   *event.Bus
	log   *zap.Logger

	state       State
	elapsed     float64
	disposition Disposition
	waypoint    int
	attacks     int
}

// Option configures a Brain.
type Option func(*Brain)

func WithBus(b *event.Bus) Option     { return func(br *Brain) { br.bus = b } }
func WithLogger(l *zap.Logger) Option { return func(br *Brain) { br.log = l } }

// New validates cfg and returns a brain in Idle.
func New(owner ecs.EntityID, cfg Config, act Actuator, opts ...Option) (*Brain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("npc %d: %w", owner, err)
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = DefaultWaitDelay
	}
	cfg.Route = append([]geom.Vec(nil), cfg.Route...)
	b := &Brain{
		owner:       owner,
		cfg:         cfg,
		act:         act,
		disposition: cfg.Disposition,
	}
	for _, o := range opts {
		o(b)
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	return b, nil
}

func (b *Brain) Owner() ecs.EntityID      { return b.owner }
func (b *Brain) State() State             { return b.state }
func (b *Brain) Disposition() Disposition { return b.disposition }
func (b *Brain) Elapsed() float64         { return b.elapsed }
func (b *Brain) Waypoint() int            { return b.waypoint }
func (b *Brain) Attacks() int             { return b.attacks }
func (b *Brain) Config() Config           { return b.cfg }
func (b *Brain) Hostile() bool            { return b.disposition == Hostile }

// OnDamaged promotes a Neutral NPC to Hostile permanently.
func (b *Brain) OnDamaged() {
	if b.disposition != Neutral {
		return
	}
	b.disposition = Hostile
	event.Emit(b.bus, event.DispositionChanged{
		Entity: b.owner,
		From:   Neutral.String(),
		To:     Hostile.String(),
	})
	b.log.Debug("npc turned hostile", zap.Uint64("entity", uint64(b.owner)))
}

// Kill moves the brain to Dead from any state.
func (b *Brain) Kill() {
	if b.state == Dead {
		return
	}
	b.stop()
	b.transition(Dead)
}

// Tick advances the per-state timer by dt seconds and evaluates one
// decision from s.
func (b *Brain) Tick(dt float64, s Senses) {
	if b.state == Dead {
		return
	}
	if s.Dead {
		b.Kill()
		return
	}
	b.elapsed += dt

	dist := math.Inf(1)
	if s.HasTarget {
		dist = s.Position.Dist(s.Target)
	}
	detected := b.Hostile() && dist <= b.cfg.DetectionRange

	switch b.state {
	case Idle:
		b.stop()
		switch {
		case detected:
			b.transition(Approach)
		case len(b.cfg.Route) > 0 && b.elapsed >= b.cfg.IdleTimeout:
			b.transition(Patrol)
		}

	case Patrol:
		if detected {
			b.transition(Approach)
			return
		}
		wp := b.cfg.Route[b.waypoint]
		if s.Position.Dist(wp) <= ArriveRadius {
			b.stop()
			b.waypoint = (b.waypoint + 1) % len(b.cfg.Route)
			b.transition(Idle)
			return
		}
		b.move(wp)

	case Approach:
		switch {
		case !detected:
			b.stop()
			b.transition(Idle)
		case dist <= b.cfg.AttackRange:
			b.stop()
			b.transition(Attack)
		default:
			b.move(s.Target)
		}

	case Attack:
		b.stop()
		if b.act != nil && b.act.PerformAttack() {
			b.attacks++
		}
		b.transition(Wait)

	case Wait:
		b.stop()
		if b.elapsed < b.cfg.WaitDelay {
			return
		}
		switch {
		case b.Hostile() && dist <= b.cfg.AttackRange:
			b.transition(Attack)
		case detected:
			b.transition(Approach)
		default:
			b.transition(Idle)
		}
	}
}

func (b *Brain) move(to geom.Vec) {
	if b.act == nil {
		b.log.Debug("npc cannot move",
			zap.Uint64("entity", uint64(b.owner)),
			zap.Error(fault.Missing("actuator")))
		return
	}
	b.act.MoveToward(to)
}

func (b *Brain) stop() {
	if b.act != nil {
		b.act.Stop()
	}
}

func (b *Brain) transition(to State) {
	from := b.state
	b.state = to
	b.elapsed = 0
	event.Emit(b.bus, event.NPCStateChanged{Entity: b.owner, From: from.String(), To: to.String()})
	b.log.Debug("npc state",
		zap.Uint64("entity", uint64(b.owner)),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
}
