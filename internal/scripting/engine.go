package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/l1jgo/combatcore/internal/attr"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for game logic execution.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	// Core first; feature dirs may call into it.
	for _, sub := range []string{"core", "progression", "dialogue"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// Has reports whether a global function is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// call runs a global function with one return value. ok is false when the
// function is missing or raised an error.
func (e *Engine) call(name string, args ...lua.LValue) (lua.LValue, bool) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return lua.LNil, false
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua call error", zap.String("fn", name), zap.Error(err))
		return lua.LNil, false
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	return ret, true
}

// NextLevelExp calls next_level_exp(level, current). It returns 0 when the
// script is missing, fails or answers with a non-number, which makes the
// attribute engine fall back to its growth-rate curve.
func (e *Engine) NextLevelExp(level, current int) int {
	ret, ok := e.call("next_level_exp", lua.LNumber(level), lua.LNumber(current))
	if !ok {
		return 0
	}
	n, isNum := ret.(lua.LNumber)
	if !isNum {
		e.log.Error("lua next_level_exp returned non-number", zap.String("type", ret.Type().String()))
		return 0
	}
	return int(n)
}

// ThresholdFunc returns the level curve hook, or nil when no script defines
// next_level_exp.
func (e *Engine) ThresholdFunc() attr.ThresholdFunc {
	if !e.Has("next_level_exp") {
		return nil
	}
	return e.NextLevelExp
}

// DialogueContext is what a dialogue script sees about the speaker.
type DialogueContext struct {
	Entity uint64
	Name   string
	Level  int
	Health int
}

func (e *Engine) dialogueTable(ctx DialogueContext) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("entity", lua.LNumber(ctx.Entity))
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("level", lua.LNumber(ctx.Level))
	t.RawSetString("health", lua.LNumber(ctx.Health))
	return t
}

// OnDialogueStart calls on_dialogue_start(ctx). A missing function accepts;
// a script error or an explicit false refuses.
func (e *Engine) OnDialogueStart(ctx DialogueContext) bool {
	if !e.Has("on_dialogue_start") {
		return true
	}
	ret, ok := e.call("on_dialogue_start", e.dialogueTable(ctx))
	if !ok {
		return false
	}
	return ret != lua.LFalse
}

// OnDialogueEnd calls on_dialogue_end(ctx) if defined.
func (e *Engine) OnDialogueEnd(ctx DialogueContext) {
	if e.Has("on_dialogue_end") {
		e.call("on_dialogue_end", e.dialogueTable(ctx))
	}
}
