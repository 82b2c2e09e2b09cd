package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityPool_ZeroIDNeverAlive(t *testing.T) {
	p := NewEntityPool()
	id := p.Create()

	assert.False(t, id.IsZero())
	assert.False(t, p.Alive(0))
	assert.True(t, p.Alive(id))
}

func TestEntityPool_StaleReferenceAfterDestroy(t *testing.T) {
	p := NewEntityPool()
	id := p.Create()
	p.Destroy(id)

	reused := p.Create()
	require.Equal(t, id.Index(), reused.Index(), "free list should reuse the slot")
	assert.NotEqual(t, id, reused)
	assert.False(t, p.Alive(id))
	assert.True(t, p.Alive(reused))

	p.Destroy(id) // stale, must not free the reused slot
	assert.True(t, p.Alive(reused))
	assert.Equal(t, 1, p.Count())
}

func TestStore_EachIsOrderedAndSnapshotSafe(t *testing.T) {
	s := NewPtrComponentStore[int]()
	vals := []int{30, 10, 20}
	ids := []EntityID{3, 1, 2}
	for i, id := range ids {
		v := vals[i]
		s.Set(id, &v)
	}

	var seen []EntityID
	s.Each(func(id EntityID, _ *int) {
		seen = append(seen, id)
		s.Remove(2) // removal mid-walk must not skip or repeat
	})
	assert.Equal(t, []EntityID{1, 3}, seen)
	assert.Equal(t, 2, s.Len())
}

func TestWorld_DeferredDestruction(t *testing.T) {
	w := NewWorld()
	store := NewPtrComponentStore[string]()
	w.Registry().Register(store)

	var evicted []EntityID
	w.Registry().Register(RemoveFunc(func(id EntityID) { evicted = append(evicted, id) }))

	id := w.CreateEntity()
	name := "rat"
	store.Set(id, &name)

	w.MarkForDestruction(id)
	w.MarkForDestruction(id)
	assert.True(t, w.Alive(id), "destruction is deferred to flush")
	assert.Equal(t, 1, w.Pending())

	flushed := w.FlushDestroyQueue()
	assert.Equal(t, []EntityID{id}, flushed)
	assert.False(t, w.Alive(id))
	assert.False(t, store.Has(id))
	assert.Equal(t, []EntityID{id}, evicted)
}
