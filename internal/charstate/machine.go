// Package charstate implements the coarse character life-cycle machine
// (Normal, Combat, Dialogue, Dead) and the permission gates derived from it.
package charstate

import (
	"fmt"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/core/event"
	"go.uber.org/zap"
)

// State is the active mode of a character. Exactly one is active.
type State uint8

const (
	Normal State = iota
	Combat
	Dialogue
	Dead
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Combat:
		return "combat"
	case Dialogue:
		return "dialogue"
	case Dead:
		return "dead"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Permissions are the gates external collaborators (animation, UI, input)
// read. They never block core logic such as damage application.
type Permissions struct {
	Move     bool
	Attack   bool
	Interact bool
}

// Permissions returns the gates of state s.
func (s State) Permissions() Permissions {
	switch s {
	case Normal:
		return Permissions{Move: true, Attack: true, Interact: true}
	case Combat:
		return Permissions{Move: true, Attack: true}
	}
	return Permissions{}
}

// DefaultCombatTimeout is how long, in seconds, Combat lasts without a
// refreshing attack or damage event.
const DefaultCombatTimeout = 5.0

// Machine is the character state machine for one entity.
type Machine struct {
	owner ecs.EntityID
	bus   *event.Bus
	log   *zap.Logger

	state   State
	timeout float64
	timer   float64
}

// Option configures a Machine.
type Option func(*Machine)

func WithBus(b *event.Bus) Option     { return func(m *Machine) { m.bus = b } }
func WithLogger(l *zap.Logger) Option { return func(m *Machine) { m.log = l } }

// WithCombatTimeout overrides DefaultCombatTimeout. Non-positive values
// are ignored.
func WithCombatTimeout(seconds float64) Option {
	return func(m *Machine) {
		if seconds > 0 {
			m.timeout = seconds
		}
	}
}

// New returns a machine in Normal.
func New(owner ecs.EntityID, opts ...Option) *Machine {
	m := &Machine{owner: owner, timeout: DefaultCombatTimeout}
	for _, o := range opts {
		o(m)
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return m
}

func (m *Machine) State() State             { return m.state }
func (m *Machine) Permissions() Permissions { return m.state.Permissions() }
func (m *Machine) CanMove() bool            { return m.state.Permissions().Move }
func (m *Machine) CanAttack() bool          { return m.state.Permissions().Attack }
func (m *Machine) CanInteract() bool        { return m.state.Permissions().Interact }
func (m *Machine) IsDead() bool             { return m.state == Dead }
func (m *Machine) CombatTimeout() float64   { return m.timeout }
func (m *Machine) CombatRemaining() float64 { return m.timer }

// Is reports whether the current state is one of states.
func (m *Machine) Is(states ...State) bool {
	for _, s := range states {
		if m.state == s {
			return true
		}
	}
	return false
}

// NotifyCombat records an attack performed or damage received. Normal
// enters Combat; Combat resets its timer. Dialogue and Dead ignore it.
// Returns true when the machine is in Combat afterwards.
func (m *Machine) NotifyCombat() bool {
	switch m.state {
	case Normal:
		m.timer = m.timeout
		m.transition(Combat)
		return true
	case Combat:
		m.timer = m.timeout
		return true
	}
	return false
}

// Tick advances the combat-exit timer by dt seconds.
func (m *Machine) Tick(dt float64) {
	if m.state != Combat || dt <= 0 {
		return
	}
	m.timer -= dt
	if m.timer <= 0 {
		m.timer = 0
		m.transition(Normal)
	}
}

// EnterDialogueState moves Normal or Combat into Dialogue. It is the only
// entry point the dialogue engine uses.
func (m *Machine) EnterDialogueState() bool {
	if !m.Is(Normal, Combat) {
		return false
	}
	m.timer = 0
	m.transition(Dialogue)
	return true
}

// ExitDialogueState returns from Dialogue to Normal.
func (m *Machine) ExitDialogueState() bool {
	if m.state != Dialogue {
		return false
	}
	m.transition(Normal)
	return true
}

// Kill moves any non-Dead state to Dead.
func (m *Machine) Kill() bool {
	if m.state == Dead {
		return false
	}
	m.timer = 0
	m.transition(Dead)
	return true
}

// Revive is the only way out of Dead. The caller restores health.
func (m *Machine) Revive() bool {
	if m.state != Dead {
		return false
	}
	m.transition(Normal)
	return true
}

func (m *Machine) transition(to State) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	event.Emit(m.bus, event.StateChanged{Entity: m.owner, From: from.String(), To: to.String()})
	m.log.Debug("character state",
		zap.Uint64("entity", uint64(m.owner)),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
}
