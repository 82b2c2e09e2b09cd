package system

import (
	"fmt"
	"time"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	coresys "github.com/l1jgo/combatcore/internal/core/system"
	"github.com/l1jgo/combatcore/internal/geom"
	"github.com/l1jgo/combatcore/internal/world"
	"go.uber.org/zap"
)

// CommandKind is what a controller asks an actor to do.
type CommandKind uint8

const (
	CmdMove CommandKind = iota
	CmdStop
	CmdAttack
	CmdCast
	CmdDialogueStart
	CmdDialogueEnd
	CmdRevive
)

var commandNames = [...]string{"move", "stop", "attack", "cast", "dialogue_start", "dialogue_end", "revive"}

func (k CommandKind) String() string {
	if int(k) < len(commandNames) {
		return commandNames[k]
	}
	return fmt.Sprintf("command(%d)", uint8(k))
}

// Command is one queued controller request.
type Command struct {
	Kind  CommandKind
	Actor ecs.EntityID
	Dir   geom.Vec // CmdMove
	Slot  int      // CmdCast
}

// CommandQueue buffers commands from any goroutine until the game loop
// drains them.
type CommandQueue struct {
	ch chan Command
}

func NewCommandQueue(size int) *CommandQueue {
	if size <= 0 {
		size = 1
	}
	return &CommandQueue{ch: make(chan Command, size)}
}

// Push enqueues cmd, reporting false when the queue is full.
func (q *CommandQueue) Push(cmd Command) bool {
	select {
	case q.ch <- cmd:
		return true
	default:
		return false
	}
}

// Len returns the number of queued commands.
func (q *CommandQueue) Len() int { return len(q.ch) }

// DialogueGate opens and closes conversations.
type DialogueGate interface {
	Start(a *world.Actor) bool
	End(a *world.Actor) bool
}

// InputSystem drains the command queue and applies each command to its
// actor. Phase 1 (Perception).
type InputSystem struct {
	world      *world.State
	queue      *CommandQueue
	dialogue   DialogueGate
	maxPerTick int
	log        *zap.Logger

	rejected int
}

func NewInputSystem(ws *world.State, queue *CommandQueue, dialogue DialogueGate, maxPerTick int, log *zap.Logger) *InputSystem {
	if log == nil {
		log = zap.NewNop()
	}
	if maxPerTick <= 0 {
		maxPerTick = 32
	}
	return &InputSystem{world: ws, queue: queue, dialogue: dialogue, maxPerTick: maxPerTick, log: log}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhasePerception }
func (s *InputSystem) Name() string         { return "input" }

// Rejected returns how many commands could not be carried out.
func (s *InputSystem) Rejected() int { return s.rejected }

func (s *InputSystem) Update(_ time.Duration) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case cmd := <-s.queue.ch:
			if !s.apply(cmd) {
				s.rejected++
				s.log.Debug("command rejected",
					zap.Uint64("entity", uint64(cmd.Actor)),
					zap.Stringer("command", cmd.Kind))
			}
		default:
			return
		}
	}
}

func (s *InputSystem) apply(cmd Command) bool {
	a, ok := s.world.Actor(cmd.Actor)
	if !ok {
		return false
	}
	switch cmd.Kind {
	case CmdMove:
		if !a.State.CanMove() {
			return false
		}
		a.Body.MoveDir(cmd.Dir)
		return true
	case CmdStop:
		a.Body.Stop()
		return true
	case CmdAttack:
		return a.Combat.PerformAttack()
	case CmdCast:
		return a.Combat.CastSkill(cmd.Slot)
	case CmdDialogueStart:
		if s.dialogue == nil {
			return a.State.EnterDialogueState()
		}
		if s.dialogue.Start(a) {
			a.Body.Stop()
			return true
		}
		return false
	case CmdDialogueEnd:
		if s.dialogue == nil {
			return a.State.ExitDialogueState()
		}
		return s.dialogue.End(a)
	case CmdRevive:
		return a.Combat.Revive()
	}
	return false
}
