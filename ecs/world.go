package ecs

// World is the top-level ECS container. It owns the entity pool, the
// component stores, a deferred destruction queue and the frame tick.
type World struct {
	pool         *EntityPool
	stores       []Removable
	destroyQueue []EntityID
	despawned    []EntityID
	tick         Tick
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		stores:       make([]Removable, 0, 16),
		destroyQueue: make([]EntityID, 0, 16),
		tick:         1,
	}
}

func (w *World) register(s Removable) {
	w.stores = append(w.stores, s)
}

func (w *World) Spawn() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.pool.Len()
}

// Despawn queues id for destruction at the next Flush.
func (w *World) Despawn(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// Flush destroys all queued entities and clears their components. The
// destroyed ids are available from Despawned until the next Flush.
func (w *World) Flush() {
	w.despawned = w.despawned[:0]
	for _, id := range w.destroyQueue {
		if !w.pool.Destroy(id) {
			continue
		}
		for _, s := range w.stores {
			s.Remove(id)
		}
		w.despawned = append(w.despawned, id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}

// Despawned returns the entities destroyed by the last Flush.
func (w *World) Despawned() []EntityID {
	return w.despawned
}

// Tick returns the current tick. Component writes are stamped with it.
func (w *World) Tick() Tick {
	return w.tick
}

// Advance starts a new tick.
func (w *World) Advance() {
	w.tick++
}
