package npc

import (
	"testing"

	"github.com/l1jgo/combatcore/internal/core/event"
	"github.com/l1jgo/combatcore/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	moves   []geom.Vec
	stops   int
	attacks int
	ready   bool
}

func (r *recorder) MoveToward(to geom.Vec) { r.moves = append(r.moves, to) }
func (r *recorder) Stop()                  { r.stops++ }
func (r *recorder) PerformAttack() bool {
	if !r.ready {
		return false
	}
	r.attacks++
	return true
}

const dt = 0.1

func newBrain(t *testing.T, cfg Config) (*Brain, *recorder) {
	t.Helper()
	if cfg.DetectionRange == 0 {
		cfg.DetectionRange, cfg.AttackRange = 10, 2
	}
	act := &recorder{ready: true}
	b, err := New(1, cfg, act)
	require.NoError(t, err)
	return b, act
}

func at(x float64) Senses {
	return Senses{Position: geom.V(0, 0), HasTarget: true, Target: geom.V(x, 0)}
}

func TestNew_RejectsInvertedRanges(t *testing.T) {
	_, err := New(1, Config{DetectionRange: 2, AttackRange: 2}, nil)
	assert.Error(t, err)
	_, err = New(1, Config{DetectionRange: 2, AttackRange: 5}, nil)
	assert.Error(t, err)
	_, err = New(1, Config{DetectionRange: 5, AttackRange: 0}, nil)
	assert.Error(t, err)
}

func TestHysteresis(t *testing.T) {
	b, act := newBrain(t, Config{})

	b.Tick(dt, at(9))
	require.Equal(t, Approach, b.State())

	b.Tick(dt, at(5))
	assert.Equal(t, Approach, b.State(), "retreat inside detection keeps approaching")
	b.Tick(dt, at(10))
	assert.Equal(t, Approach, b.State())
	assert.Equal(t, geom.V(10, 0), act.moves[len(act.moves)-1])

	b.Tick(dt, at(2))
	assert.Equal(t, Attack, b.State())

	b2, _ := newBrain(t, Config{})
	b2.Tick(dt, at(9))
	b2.Tick(dt, at(10.01))
	assert.Equal(t, Idle, b2.State(), "target lost beyond detection")
}

func TestAttack_SingleShotThenWait(t *testing.T) {
	b, act := newBrain(t, Config{WaitDelay: 0.5})
	b.Tick(dt, at(1)) // Idle → Approach
	b.Tick(dt, at(1)) // Approach → Attack
	require.Equal(t, Attack, b.State())

	b.Tick(dt, at(1))
	assert.Equal(t, Wait, b.State())
	assert.Equal(t, 1, act.attacks)

	for i := 0; i < 4; i++ {
		b.Tick(dt, at(1))
		assert.Equal(t, Wait, b.State(), "delay not elapsed")
	}
	b.Tick(dt, at(1))
	assert.Equal(t, Attack, b.State())
	b.Tick(dt, at(1))
	assert.Equal(t, 2, act.attacks, "cadence of one attack per wait")
}

func TestAttack_FailedSwingStillWaits(t *testing.T) {
	b, act := newBrain(t, Config{})
	act.ready = false
	b.Tick(dt, at(1))
	b.Tick(dt, at(1))
	b.Tick(dt, at(1))
	assert.Equal(t, Wait, b.State())
	assert.Zero(t, b.Attacks())
}

func TestWait_ReevaluatesToApproachOrIdle(t *testing.T) {
	b, _ := newBrain(t, Config{WaitDelay: 0.1})
	b.Tick(dt, at(1))
	b.Tick(dt, at(1))
	b.Tick(dt, at(1))
	require.Equal(t, Wait, b.State())

	b.Tick(dt, at(6))
	assert.Equal(t, Approach, b.State())

	b.Tick(dt, at(1))
	b.Tick(dt, at(1))
	require.Equal(t, Wait, b.State())
	b.Tick(dt, Senses{})
	assert.Equal(t, Idle, b.State(), "no target at all")
}

func TestIdle_PatrolsAfterTimeout(t *testing.T) {
	route := []geom.Vec{geom.V(5, 0), geom.V(5, 5)}
	b, act := newBrain(t, Config{IdleTimeout: 1, Route: route})
	alone := Senses{Position: geom.V(0, 0)}

	for i := 0; i < 9; i++ {
		b.Tick(dt, alone)
	}
	assert.Equal(t, Idle, b.State())
	b.Tick(dt+1e-9, alone)
	require.Equal(t, Patrol, b.State())

	b.Tick(dt, alone)
	assert.Equal(t, route[0], act.moves[len(act.moves)-1])

	b.Tick(dt, Senses{Position: geom.V(4.9, 0)})
	assert.Equal(t, Idle, b.State(), "waypoint reached")
	assert.Equal(t, 1, b.Waypoint())
}

func TestIdle_NoRouteStaysIdle(t *testing.T) {
	b, _ := newBrain(t, Config{IdleTimeout: 0.1})
	for i := 0; i < 50; i++ {
		b.Tick(dt, Senses{})
	}
	assert.Equal(t, Idle, b.State())
}

func TestPatrol_InterruptedByDetection(t *testing.T) {
	b, _ := newBrain(t, Config{IdleTimeout: 0.1, Route: []geom.Vec{geom.V(50, 0)}})
	b.Tick(dt, Senses{})
	require.Equal(t, Patrol, b.State())
	b.Tick(dt, at(8))
	assert.Equal(t, Approach, b.State())
}

func TestDisposition_NeutralPromotesOnce(t *testing.T) {
	bus := event.NewBus()
	var changes []event.DispositionChanged
	event.Subscribe(bus, func(ev event.DispositionChanged) { changes = append(changes, ev) })

	b, err := New(3, Config{DetectionRange: 10, AttackRange: 2, Disposition: Neutral}, &recorder{}, WithBus(bus))
	require.NoError(t, err)

	b.Tick(dt, at(3))
	assert.Equal(t, Idle, b.State(), "neutral ignores the player")

	b.OnDamaged()
	b.OnDamaged()
	assert.Equal(t, Hostile, b.Disposition())
	b.Tick(dt, at(3))
	assert.Equal(t, Approach, b.State())

	bus.SwapBuffers()
	bus.DispatchAll()
	assert.Len(t, changes, 1)
}

func TestDisposition_FriendlyNeverTurns(t *testing.T) {
	b, _ := newBrain(t, Config{Disposition: Friendly})
	b.OnDamaged()
	assert.Equal(t, Friendly, b.Disposition())
	b.Tick(dt, at(1))
	assert.Equal(t, Idle, b.State())
}

func TestDead_IsTerminal(t *testing.T) {
	bus := event.NewBus()
	var changes []event.NPCStateChanged
	event.Subscribe(bus, func(ev event.NPCStateChanged) { changes = append(changes, ev) })
	b, err := New(4, Config{DetectionRange: 10, AttackRange: 2}, &recorder{}, WithBus(bus))
	require.NoError(t, err)

	b.Tick(dt, at(5))
	b.Tick(dt, Senses{Dead: true})
	assert.Equal(t, Dead, b.State())
	b.Tick(dt, at(1))
	b.Kill()
	assert.Equal(t, Dead, b.State())

	bus.SwapBuffers()
	bus.DispatchAll()
	assert.Equal(t, []event.NPCStateChanged{
		{Entity: 4, From: "idle", To: "approach"},
		{Entity: 4, From: "approach", To: "dead"},
	}, changes)
}

func TestNilActuator_Degrades(t *testing.T) {
	b, err := New(1, Config{DetectionRange: 10, AttackRange: 2}, nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		b.Tick(dt, at(5))
		b.Tick(dt, at(5))
		b.Tick(dt, at(1))
		b.Tick(dt, at(1))
	})
	assert.Equal(t, Wait, b.State())
}

func TestParseDisposition(t *testing.T) {
	d, err := ParseDisposition("Neutral")
	require.NoError(t, err)
	assert.Equal(t, Neutral, d)
	_, err = ParseDisposition("grumpy")
	assert.Error(t, err)
}
