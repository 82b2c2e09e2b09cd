package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/l1jgo/combatcore/internal/attr"
	"github.com/l1jgo/combatcore/internal/charstate"
	"github.com/l1jgo/combatcore/internal/status"
	"github.com/l1jgo/combatcore/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type clock struct{}

func (clock) Now() float64 { return 0 }

func spawnHero(t *testing.T) *world.Actor {
	t.Helper()
	s := world.NewState(clock{})
	a, err := s.Spawn(world.ActorSpec{
		Kind:      world.KindPlayer,
		Name:      "hero",
		Level:     1,
		ExpToNext: 100,
		Base:      attr.Set{attr.Strength: 10, attr.Stamina: 5},
		Growth:    attr.DefaultGrowth,
	})
	require.NoError(t, err)
	return a
}

func TestCaptureApply_RoundTrip(t *testing.T) {
	src := spawnHero(t)
	src.Attrs.AddExperience(150)
	src.Attrs.Damage(30)
	_, err := src.Effects.AddEffect(status.Effect{
		Kind: status.KindPoison, Magnitude: 5, Polarity: status.Negative,
		Remaining: 4, Stackable: true, MaxStacks: 3, TickInterval: 1, Source: 9,
	})
	require.NoError(t, err)
	_, err = src.Effects.AddEffect(status.Effect{
		Kind: status.KindPoison, Magnitude: 5, Polarity: status.Negative,
		Remaining: 2, Stackable: true, MaxStacks: 3, TickInterval: 1,
	})
	require.NoError(t, err)

	snap := Capture(src)
	assert.Equal(t, "hero", snap.Name)
	assert.Equal(t, 2, snap.Level)
	assert.Equal(t, 50, snap.Experience)
	assert.Equal(t, 120, snap.ExpToNext)
	assert.Equal(t, 12, snap.Base.Get(attr.Strength))
	require.Len(t, snap.Effects, 1)
	assert.Equal(t, "poison", snap.Effects[0].Kind)
	assert.Equal(t, 2, snap.Effects[0].Stacks)
	assert.Equal(t, int8(-1), snap.Effects[0].Polarity)

	dst := spawnHero(t)
	require.NoError(t, Apply(dst, snap))
	assert.Equal(t, 2, dst.Attrs.Level())
	assert.Equal(t, 50, dst.Attrs.Experience())
	assert.Equal(t, 120, dst.Attrs.ExpToNextLevel())
	assert.Equal(t, snap.Health, dst.Attrs.Health())
	assert.Equal(t, 12, dst.Attrs.Base(attr.Strength))

	e, ok := dst.Effects.Get(status.KindPoison)
	require.True(t, ok)
	assert.InDelta(t, 10.0, e.Magnitude, 1e-9)
	assert.InDelta(t, 4.0, e.Remaining, 1e-9)
	assert.Equal(t, status.Negative, e.Polarity)
	assert.EqualValues(t, 9, e.Source)
}

func TestApply_DeadSnapshotRestoresCorpse(t *testing.T) {
	src := spawnHero(t)
	src.Attrs.AddExperience(150)
	src.Combat.TakeDamage(10_000)
	snap := Capture(src)
	require.Zero(t, snap.Health)

	dst := spawnHero(t)
	require.NoError(t, Apply(dst, snap))
	assert.Equal(t, charstate.Dead, dst.State.State())
	assert.True(t, dst.IsDead())
	assert.Zero(t, dst.Effects.Len())

	require.True(t, dst.Combat.Revive(), "a restored corpse must be revivable")
	assert.Equal(t, charstate.Normal, dst.State.State())
	assert.Equal(t, dst.Attrs.MaxHealth(), dst.Attrs.Health())
	assert.Equal(t, 2, dst.Attrs.Level())
}

func TestApply_RejectsUnknownKind(t *testing.T) {
	dst := spawnHero(t)
	err := Apply(dst, Snapshot{Name: "hero", Level: 1, Effects: []EffectRow{{Kind: "telepathy", Remaining: 1}}})
	assert.Error(t, err)
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []string
	fail  bool
}

func (f *fakeSaver) Save(_ context.Context, s *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("db down")
	}
	f.saved = append(f.saved, s.Name)
	return nil
}

func (f *fakeSaver) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saved...)
}

func TestWriter_DrainsOnShutdown(t *testing.T) {
	saver := &fakeSaver{}
	w := NewWriter(saver, 8, nil)
	require.True(t, w.Enqueue(Snapshot{Name: "a"}))
	require.True(t, w.Enqueue(Snapshot{Name: "b"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))

	assert.ElementsMatch(t, []string{"a", "b"}, saver.names())
}

func TestWriter_SavesWhileRunning(t *testing.T) {
	saver := &fakeSaver{}
	w := NewWriter(saver, 8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Enqueue(Snapshot{Name: "a"})
	assert.Eventually(t, func() bool { return len(saver.names()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWriter_EnqueueNeverBlocks(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	w := NewWriter(&fakeSaver{}, 1, zap.New(core))

	assert.True(t, w.Enqueue(Snapshot{Name: "a"}))
	assert.False(t, w.Enqueue(Snapshot{Name: "b"}))
	assert.Equal(t, 1, w.Dropped())
	assert.Equal(t, 1, logs.FilterMessage("persist queue full, snapshot dropped").Len())
}

func TestWriter_LogsSaveErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	w := NewWriter(&fakeSaver{fail: true}, 4, zap.New(core))
	w.Enqueue(Snapshot{Name: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Equal(t, 1, logs.FilterMessage("save progression failed").Len())
}
