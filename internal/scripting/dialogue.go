package scripting

import (
	"github.com/l1jgo/combatcore/internal/charstate"
	"github.com/l1jgo/combatcore/internal/world"
	"go.uber.org/zap"
)

// DialogueGate runs dialogue scripts behind the character state gate.
type DialogueGate struct {
	engine *Engine
	log    *zap.Logger
}

func NewDialogueGate(engine *Engine, log *zap.Logger) *DialogueGate {
	if log == nil {
		log = zap.NewNop()
	}
	return &DialogueGate{engine: engine, log: log}
}

func contextOf(a *world.Actor) DialogueContext {
	return DialogueContext{
		Entity: uint64(a.ID),
		Name:   a.Name,
		Level:  a.Attrs.Level(),
		Health: a.Attrs.Health(),
	}
}

// Start runs on_dialogue_start and, when the script agrees, enters
// Dialogue. A refusal leaves the state and its combat timer untouched.
func (g *DialogueGate) Start(a *world.Actor) bool {
	if !a.State.Is(charstate.Normal, charstate.Combat) {
		return false
	}
	if g.engine != nil && !g.engine.OnDialogueStart(contextOf(a)) {
		g.log.Debug("dialogue refused by script", zap.Uint64("entity", uint64(a.ID)))
		return false
	}
	return a.State.EnterDialogueState()
}

// End leaves Dialogue and runs on_dialogue_end.
func (g *DialogueGate) End(a *world.Actor) bool {
	if !a.State.ExitDialogueState() {
		return false
	}
	if g.engine != nil {
		g.engine.OnDialogueEnd(contextOf(a))
	}
	return true
}
