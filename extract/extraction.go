package extract

import "sync"

// Extraction is the set of changes produced by one logic frame.
type Extraction[K comparable] struct {
	Frame       uint64
	Added       map[K]Snapshot
	Differences map[K]Difference
	Removed     map[K]struct{}
}

// NewExtraction creates an empty extraction for frame.
func NewExtraction[K comparable](frame uint64) Extraction[K] {
	return Extraction[K]{
		Frame:       frame,
		Added:       make(map[K]Snapshot),
		Differences: make(map[K]Difference),
		Removed:     make(map[K]struct{}),
	}
}

// Empty reports whether the extraction carries no change.
func (e Extraction[K]) Empty() bool {
	return len(e.Added) == 0 && len(e.Differences) == 0 && len(e.Removed) == 0
}

// Mailbox carries extractions from the logic stage to the render stage.
//
// Extractions not yet taken stay queued in publish order, so a render
// stage that skipped a frame still applies every change.
type Mailbox[K comparable] struct {
	mu      sync.Mutex
	pending []Extraction[K]
}

// Publish queues ext. Empty extractions are dropped.
func (m *Mailbox[K]) Publish(ext Extraction[K]) {
	if ext.Empty() {
		return
	}
	m.mu.Lock()
	m.pending = append(m.pending, ext)
	m.mu.Unlock()
}

// Take returns the queued extractions in publish order and empties the
// mailbox.
func (m *Mailbox[K]) Take() []Extraction[K] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out
}

// Len returns the number of queued extractions.
func (m *Mailbox[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
