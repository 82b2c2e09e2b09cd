package ecs

import "sort"

// Removable is implemented by every component store so the Registry can
// drop an entity's data from all of them on destroy.
type Removable interface {
	Remove(id EntityID)
}

// PtrComponentStore is a typed component store. Iteration follows
// ascending EntityID order so every tick visits entities in the same order.
type PtrComponentStore[T any] struct {
	data  map[EntityID]*T
	order []EntityID
	dirty bool
}

func NewPtrComponentStore[T any]() *PtrComponentStore[T] {
	return &PtrComponentStore[T]{
		data:  make(map[EntityID]*T, 64),
		order: make([]EntityID, 0, 64),
	}
}

func (s *PtrComponentStore[T]) Set(id EntityID, c *T) {
	if _, ok := s.data[id]; !ok {
		s.order = append(s.order, id)
		s.dirty = true
	}
	s.data[id] = c
}

func (s *PtrComponentStore[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *PtrComponentStore[T]) Remove(id EntityID) {
	if _, ok := s.data[id]; !ok {
		return
	}
	delete(s.data, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *PtrComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *PtrComponentStore[T]) Len() int {
	return len(s.data)
}

// IDs returns a snapshot of the stored IDs in iteration order. Safe to use
// while the callback adds or removes components.
func (s *PtrComponentStore[T]) IDs() []EntityID {
	s.sortIfDirty()
	out := make([]EntityID, len(s.order))
	copy(out, s.order)
	return out
}

// Each visits components in ascending ID order over a snapshot, skipping
// entries removed during the walk.
func (s *PtrComponentStore[T]) Each(fn func(EntityID, *T)) {
	for _, id := range s.IDs() {
		if c, ok := s.data[id]; ok {
			fn(id, c)
		}
	}
}

func (s *PtrComponentStore[T]) sortIfDirty() {
	if !s.dirty {
		return
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
	s.dirty = false
}
