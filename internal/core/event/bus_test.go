package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversNextTick(t *testing.T) {
	b := NewBus()
	var got []LevelUp
	Subscribe(b, func(ev LevelUp) { got = append(got, ev) })

	Emit(b, LevelUp{Level: 2})
	b.DispatchAll()
	assert.Empty(t, got, "events are not readable in the tick they were emitted")
	assert.Equal(t, 1, b.Pending())

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []LevelUp{{Level: 2}}, got)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Len(t, got, 1, "delivered events are not repeated")
}

func TestBus_HandlerEmitLandsInNextTick(t *testing.T) {
	b := NewBus()
	var died int
	Subscribe(b, func(ev DamageApplied) { Emit(b, Died{Entity: ev.Target}) })
	Subscribe(b, func(Died) { died++ })

	Emit(b, DamageApplied{Target: 7})
	b.SwapBuffers()
	b.DispatchAll()
	assert.Zero(t, died)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, 1, died)
}

func TestEmit_NilBusIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit[Died](nil, Died{})
		Subscribe[Died](nil, func(Died) {})
	})
}
