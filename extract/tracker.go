package extract

import (
	"github.com/gogpu/visualizer/attr"
)

// State is the extraction state of a key.
type State uint8

const (
	// Untracked keys have never been tracked, or were removed in an earlier frame.
	Untracked State = iota

	// Cached keys have a committed snapshot and no pending change.
	Cached

	// Dirty keys have pending changes.
	Dirty

	// Extracted keys had changes drained by the last Drain.
	Extracted

	// Removed keys were despawned and wait for the next Drain.
	Removed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Untracked:
		return "untracked"
	case Cached:
		return "cached"
	case Dirty:
		return "dirty"
	case Extracted:
		return "extracted"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

type record struct {
	committed Snapshot
	pending   Difference
	state     State
}

func (r *record) touch() {
	if !r.pending.Empty() {
		r.state = Dirty
	} else if r.state == Dirty {
		r.state = Cached
	}
}

// Tracker holds the committed snapshot and pending difference of every
// tracked key.
//
// A Tracker is owned by the logic stage and is not safe for concurrent use.
type Tracker[K comparable] struct {
	records map[K]*record
	added   map[K]struct{}
	removed map[K]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker[K comparable]() *Tracker[K] {
	return &Tracker[K]{
		records: make(map[K]*record),
		added:   make(map[K]struct{}),
		removed: make(map[K]struct{}),
	}
}

// Track starts tracking key with s as its committed snapshot. The key is
// reported in the next Extraction's Added set. Tracking a tracked key
// returns false and changes nothing.
func (t *Tracker[K]) Track(key K, s Snapshot) bool {
	if _, ok := t.records[key]; ok {
		return false
	}
	t.records[key] = &record{committed: s.Clone(), state: Cached}
	t.added[key] = struct{}{}
	return true
}

// Tracked reports whether key is tracked.
func (t *Tracker[K]) Tracked(key K) bool {
	_, ok := t.records[key]
	return ok
}

// Despawn stops tracking key. A key tracked since the last Drain is
// forgotten without being reported.
func (t *Tracker[K]) Despawn(key K) bool {
	if _, ok := t.records[key]; !ok {
		return false
	}
	delete(t.records, key)
	if _, ok := t.added[key]; ok {
		delete(t.added, key)
		return true
	}
	t.removed[key] = struct{}{}
	return true
}

// State returns the state of key.
func (t *Tracker[K]) State(key K) State {
	if r, ok := t.records[key]; ok {
		return r.state
	}
	if _, ok := t.removed[key]; ok {
		return Removed
	}
	return Untracked
}

// Snapshot returns a copy of the committed snapshot of key.
func (t *Tracker[K]) Snapshot(key K) (Snapshot, bool) {
	r, ok := t.records[key]
	if !ok {
		return Snapshot{}, false
	}
	return r.committed.Clone(), true
}

// Pending returns the pending difference of key.
func (t *Tracker[K]) Pending(key K) (Difference, bool) {
	r, ok := t.records[key]
	if !ok {
		return Difference{}, false
	}
	return r.pending, true
}

// Len returns the number of tracked keys.
func (t *Tracker[K]) Len() int { return len(t.records) }

func (t *Tracker[K]) observe(key K, fn func(r *record)) bool {
	r, ok := t.records[key]
	if !ok {
		return false
	}
	fn(r)
	r.touch()
	return true
}

// ObservePosition reports the current position of key. It returns false
// for untracked keys.
func (t *Tracker[K]) ObservePosition(key K, v attr.Position) bool {
	return t.observe(key, func(r *record) { observe(&r.pending.Position, r.committed.Position, v) })
}

// ObserveArea reports the current area of key.
func (t *Tracker[K]) ObserveArea(key K, v attr.Area) bool {
	return t.observe(key, func(r *record) { observe(&r.pending.Area, r.committed.Area, v) })
}

// ObserveColor reports the current color of key.
func (t *Tracker[K]) ObserveColor(key K, v attr.Color) bool {
	return t.observe(key, func(r *record) { observe(&r.pending.Color, r.committed.Color, v) })
}

// ObserveDepth reports the current depth of key.
func (t *Tracker[K]) ObserveDepth(key K, v attr.Depth) bool {
	return t.observe(key, func(r *record) { observe(&r.pending.Depth, r.committed.Depth, v) })
}

// ObserveLayer reports the current layer of key.
func (t *Tracker[K]) ObserveLayer(key K, v attr.Layer) bool {
	return t.observe(key, func(r *record) { observe(&r.pending.Layer, r.committed.Layer, v) })
}

// ObserveBounds reports the current bounds of key. Nil means unbounded.
func (t *Tracker[K]) ObserveBounds(key K, b *attr.Section) bool {
	return t.observe(key, func(r *record) {
		r.pending.Bounds, r.pending.Section = diffBounds(r.committed.Bounds, b)
	})
}

// ObserveLetters reports the current letters of key.
func (t *Tracker[K]) ObserveLetters(key K, letters map[LetterKey]Letter) bool {
	return t.observe(key, func(r *record) { diffLetters(&r.pending, r.committed.Letters, letters) })
}

// Drain moves every pending change into ext and commits it. Keys tracked
// since the last Drain are reported in ext.Added with their committed
// snapshot, despawned keys in ext.Removed.
func (t *Tracker[K]) Drain(ext *Extraction[K]) {
	for key := range t.removed {
		ext.Removed[key] = struct{}{}
	}
	clear(t.removed)

	for key, r := range t.records {
		if r.state == Extracted {
			r.state = Cached
		}
		_, isNew := t.added[key]
		if !isNew && r.pending.Empty() {
			continue
		}
		r.committed.Apply(r.pending)
		if isNew {
			ext.Added[key] = r.committed.Clone()
		} else {
			ext.Differences[key] = r.pending
		}
		r.pending = Difference{}
		r.state = Extracted
	}
	clear(t.added)
}
