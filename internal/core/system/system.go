package system

import "time"

// Phase defines execution ordering within a single tick. The order is the
// per-entity order the simulation guarantees: decide, move, resolve damage,
// then transition state machines.
type Phase int

const (
	PhaseDispatch   Phase = iota // 0: deliver last tick's events
	PhasePerception              // 1: input commands + NPC decisions
	PhaseMovement                // 2: integrate positions and impulses
	PhaseDamage                  // 3: overlap → damage resolution
	PhaseState                   // 4: status ticks, FSM timers
	PhaseCleanup                 // 5: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseDispatch:
		return "dispatch"
	case PhasePerception:
		return "perception"
	case PhaseMovement:
		return "movement"
	case PhaseDamage:
		return "damage"
	case PhaseState:
		return "state"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Named is optionally implemented by systems to label fault logs.
type Named interface {
	Name() string
}
