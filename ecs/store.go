package ecs

// Tick is a world frame counter used for change detection.
type Tick uint64

// Removable is implemented by all component stores so the World can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

type slot[T any] struct {
	value   T
	changed Tick
}

// Store is a typed component store. Every Set stamps the entry with the
// world's current tick, so systems can visit only what changed since they
// last ran.
type Store[T any] struct {
	world *World
	data  map[EntityID]*slot[T]
}

// NewStore creates a store registered with w.
func NewStore[T any](w *World) *Store[T] {
	s := &Store[T]{
		world: w,
		data:  make(map[EntityID]*slot[T], 64),
	}
	w.register(s)
	return s
}

// Set stores c for id and marks it changed.
func (s *Store[T]) Set(id EntityID, c T) {
	if e, ok := s.data[id]; ok {
		e.value = c
		e.changed = s.world.tick
		return
	}
	s.data[id] = &slot[T]{value: c, changed: s.world.tick}
}

// Mutate applies fn to the component of id and marks it changed. It returns
// false when id has no component.
func (s *Store[T]) Mutate(id EntityID, fn func(*T)) bool {
	e, ok := s.data[id]
	if !ok {
		return false
	}
	fn(&e.value)
	e.changed = s.world.tick
	return true
}

func (s *Store[T]) Get(id EntityID) (T, bool) {
	e, ok := s.data[id]
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Changed reports whether the component of id was set at or after since.
func (s *Store[T]) Changed(id EntityID, since Tick) bool {
	e, ok := s.data[id]
	return ok && e.changed >= since
}

func (s *Store[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

func (s *Store[T]) Each(fn func(EntityID, T)) {
	for id, e := range s.data {
		fn(id, e.value)
	}
}

// EachChanged visits the components set at or after since.
func (s *Store[T]) EachChanged(since Tick, fn func(EntityID, T)) {
	for id, e := range s.data {
		if e.changed >= since {
			fn(id, e.value)
		}
	}
}
