// Package instance stores per-instance GPU attributes for a set of keyed
// elements.
//
// An [Indexer] maps keys to dense slots. Each attribute kind lives in an
// [AttributeBuffer], a CPU mirror paired with a GPU vertex buffer. A
// [Coordinator] keeps every buffer of one indexer the same capacity, so an
// index means the same instance in every attribute.
//
// Writes are batched per frame: values are written into the CPU mirror,
// marked pending, and coalesced into contiguous [WriteRange] uploads on
// Flush.
package instance

import (
	"errors"
	"fmt"
	"math"
)

// Index is a dense slot into every attribute buffer of one Indexer.
type Index uint32

// Indexer errors.
var (
	// ErrIndexUnderflow is returned by Decrement when no slot is allocated.
	ErrIndexUnderflow = errors.New("instance: index underflow")

	// ErrUnknownKey is returned when removing a key that holds no slot.
	ErrUnknownKey = errors.New("instance: unknown key")

	// ErrGrowthOverflow is returned when capacity arithmetic overflows.
	ErrGrowthOverflow = errors.New("instance: growth overflow")

	// ErrInvalidGrowthFactor is returned for a zero growth factor.
	ErrInvalidGrowthFactor = errors.New("instance: growth factor must be positive")
)

// Move describes a slot whose contents were relocated by a compacting removal.
type Move struct {
	From, To Index
}

// Removal is the result of Indexer.Remove.
type Removal struct {
	// Index is the slot the removed key held.
	Index Index

	// Moved is set when the last slot was moved into Index to keep slots dense.
	Moved *Move
}

// Indexer assigns dense slots to keys.
//
// current is the number of allocated slots and max the capacity of the
// backing buffers. Allocation may push current past max; callers check
// ShouldGrow and call Grow before writing the new slots.
type Indexer[K comparable] struct {
	indices map[K]Index
	keys    []K
	current uint32
	max     uint32
}

// NewIndexer creates an indexer with capacity max.
func NewIndexer[K comparable](max uint32) *Indexer[K] {
	return &Indexer[K]{
		indices: make(map[K]Index),
		max:     max,
	}
}

// Next returns the slot held by key, allocating the next free slot when the
// key is new. It fails with ErrGrowthOverflow once every uint32 slot is
// taken.
func (x *Indexer[K]) Next(key K) (Index, error) {
	if i, ok := x.indices[key]; ok {
		return i, nil
	}
	if x.current == math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d slots allocated", ErrGrowthOverflow, x.current)
	}
	i := Index(x.current)
	x.current++
	x.indices[key] = i
	x.keys = append(x.keys, key)
	return i, nil
}

// Decrement frees the most recently allocated slot and returns it.
func (x *Indexer[K]) Decrement() (Index, error) {
	if x.current == 0 {
		return 0, ErrIndexUnderflow
	}
	x.current--
	i := Index(x.current)
	delete(x.indices, x.keys[i])
	x.keys = x.keys[:i]
	return i, nil
}

// Remove frees the slot held by key. The key in the last slot is moved into
// the freed slot so that slots stay dense.
func (x *Indexer[K]) Remove(key K) (Removal, error) {
	i, ok := x.indices[key]
	if !ok {
		return Removal{}, fmt.Errorf("%w: %v", ErrUnknownKey, key)
	}
	last := Index(x.current - 1)
	if i == last {
		if _, err := x.Decrement(); err != nil {
			return Removal{}, err
		}
		return Removal{Index: i}, nil
	}

	tail := x.keys[last]
	if _, err := x.Decrement(); err != nil {
		return Removal{}, err
	}
	delete(x.indices, key)
	x.keys[i] = tail
	x.indices[tail] = i
	return Removal{Index: i, Moved: &Move{From: last, To: i}}, nil
}

// Get returns the slot held by key.
func (x *Indexer[K]) Get(key K) (Index, bool) {
	i, ok := x.indices[key]
	return i, ok
}

// Key returns the key held by slot i.
func (x *Indexer[K]) Key(i Index) (K, bool) {
	if uint32(i) >= x.current {
		var zero K
		return zero, false
	}
	return x.keys[i], true
}

// Current returns the number of allocated slots.
func (x *Indexer[K]) Current() uint32 { return x.current }

// Max returns the capacity.
func (x *Indexer[K]) Max() uint32 { return x.max }

// ShouldGrow reports whether more slots are allocated than the capacity holds.
func (x *Indexer[K]) ShouldGrow() bool { return x.current > x.max }

// Grow raises the capacity in steps of factor until it holds every allocated
// slot, and returns how much the capacity changed. It is a no-op once the
// capacity is sufficient.
func (x *Indexer[K]) Grow(factor uint32) (uint32, error) {
	if factor == 0 {
		return 0, ErrInvalidGrowthFactor
	}
	if x.current <= x.max {
		return 0, nil
	}
	need := uint64(x.current - x.max)
	steps := (need + uint64(factor) - 1) / uint64(factor)
	grown := uint64(x.max) + steps*uint64(factor)
	if grown > math.MaxUint32 {
		return 0, fmt.Errorf("%w: capacity %d + %d*%d", ErrGrowthOverflow, x.max, steps, factor)
	}
	old := x.max
	x.max = uint32(grown)
	return x.max - old, nil
}
