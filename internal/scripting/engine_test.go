package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/combatcore/internal/attr"
	"github.com/l1jgo/combatcore/internal/charstate"
	"github.com/l1jgo/combatcore/internal/geom"
	"github.com/l1jgo/combatcore/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func scriptsDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

func newEngine(t *testing.T, files map[string]string) (*Engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	e, err := NewEngine(scriptsDir(t, files), zap.New(core))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, logs
}

func TestNextLevelExp_ScriptedCurve(t *testing.T) {
	e, _ := newEngine(t, map[string]string{
		"core/util.lua":         `function square(x) return x * x end`,
		"progression/curve.lua": `function next_level_exp(level, current) return 50 * square(level) end`,
	})
	assert.Equal(t, 200, e.NextLevelExp(2, 100))
	require.NotNil(t, e.ThresholdFunc())

	eng := attr.New(1, attr.Config{Base: attr.Set{attr.Stamina: 5}, Threshold: e.ThresholdFunc()})
	assert.Equal(t, 1, eng.AddExperience(100))
	assert.Equal(t, 200, eng.ExpToNextLevel())
}

func TestNextLevelExp_FallsBack(t *testing.T) {
	e, _ := newEngine(t, nil)
	assert.Nil(t, e.ThresholdFunc())
	assert.Zero(t, e.NextLevelExp(2, 100))

	bad, logs := newEngine(t, map[string]string{
		"progression/curve.lua": `function next_level_exp(level, current) error("boom") end`,
	})
	assert.Zero(t, bad.NextLevelExp(2, 100))
	assert.Equal(t, 1, logs.FilterMessage("lua call error").Len())

	str, logs := newEngine(t, map[string]string{
		"progression/curve.lua": `function next_level_exp(level, current) return "lots" end`,
	})
	assert.Zero(t, str.NextLevelExp(2, 100))
	assert.Equal(t, 1, logs.FilterMessage("lua next_level_exp returned non-number").Len())

	eng := attr.New(1, attr.Config{Base: attr.Set{attr.Stamina: 5}, Threshold: bad.ThresholdFunc()})
	eng.AddExperience(100)
	assert.Equal(t, 120, eng.ExpToNextLevel(), "growth-rate curve")
}

func TestNewEngine_RejectsBrokenScript(t *testing.T) {
	dir := scriptsDir(t, map[string]string{"core/bad.lua": `function (`})
	_, err := NewEngine(dir, nil)
	assert.ErrorContains(t, err, "load core scripts")
}

func TestNewEngine_IgnoresNonLua(t *testing.T) {
	e, _ := newEngine(t, map[string]string{"core/readme.txt": "not lua"})
	assert.False(t, e.Has("anything"))
}

type clock struct{}

func (clock) Now() float64 { return 0 }

func spawnHero(t *testing.T) *world.Actor {
	t.Helper()
	s := world.NewState(clock{})
	a, err := s.Spawn(world.ActorSpec{
		Kind:  world.KindPlayer,
		Name:  "hero",
		Level: 3,
		Base:  attr.Set{attr.Stamina: 5},
	})
	require.NoError(t, err)
	a.Body.Position = geom.V(0, 0)
	return a
}

func TestDialogueGate_RunsScripts(t *testing.T) {
	e, _ := newEngine(t, map[string]string{
		"dialogue/talk.lua": `
talks = 0
last = ""
function on_dialogue_start(ctx)
  talks = talks + 1
  last = ctx.name .. ":" .. ctx.level
  return true
end
function on_dialogue_end(ctx) talks = talks + 10 end
`,
	})
	g := NewDialogueGate(e, nil)
	hero := spawnHero(t)

	require.True(t, g.Start(hero))
	assert.Equal(t, charstate.Dialogue, hero.State.State())
	assert.False(t, g.Start(hero), "already talking")

	require.True(t, g.End(hero))
	assert.Equal(t, charstate.Normal, hero.State.State())
	assert.False(t, g.End(hero))

	assert.EqualValues(t, 11, e.vm.GetGlobal("talks"))
	assert.Equal(t, "hero:3", e.vm.GetGlobal("last").String())
}

func TestDialogueGate_ScriptRefusalKeepsState(t *testing.T) {
	e, _ := newEngine(t, map[string]string{
		"dialogue/talk.lua": `function on_dialogue_start(ctx) return ctx.health > 1000 end`,
	})
	gate := NewDialogueGate(e, nil)

	hero := spawnHero(t)
	assert.False(t, gate.Start(hero))
	assert.Equal(t, charstate.Normal, hero.State.State())

	fighter := spawnHero(t)
	require.True(t, fighter.State.NotifyCombat())
	remaining := fighter.State.CombatRemaining()
	assert.False(t, gate.Start(fighter))
	assert.Equal(t, charstate.Combat, fighter.State.State(), "refusal must not end combat early")
	assert.InDelta(t, remaining, fighter.State.CombatRemaining(), 1e-9)
}

func TestDialogueGate_DeadCannotTalk(t *testing.T) {
	hero := spawnHero(t)
	hero.Combat.TakeDamage(10_000)
	assert.False(t, NewDialogueGate(nil, nil).Start(hero))
	assert.Equal(t, charstate.Dead, hero.State.State())
}
