package instance

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/visualizer/gpu"
)

// Write batch errors.
var (
	// ErrEmptyWriteBatch is returned for a write range with no writes.
	ErrEmptyWriteBatch = errors.New("instance: empty write batch")

	// ErrNonContiguousWriteBatch is returned when the indices of a write range
	// are not strictly consecutive and ascending.
	ErrNonContiguousWriteBatch = errors.New("instance: write batch is not contiguous")
)

// IndexedAttribute is a value destined for one slot.
type IndexedAttribute[A any] struct {
	Index     Index
	Attribute A
}

// WriteRange is a run of attributes for consecutive slots, uploaded with a
// single buffer write.
type WriteRange[A any] struct {
	first  Index
	values []A
}

// NewWriteRange builds a range from writes whose indices are consecutive.
func NewWriteRange[A any](writes []IndexedAttribute[A]) (WriteRange[A], error) {
	if len(writes) == 0 {
		return WriteRange[A]{}, ErrEmptyWriteBatch
	}
	first := writes[0].Index
	values := make([]A, len(writes))
	for n, w := range writes {
		if uint64(w.Index) != uint64(first)+uint64(n) {
			return WriteRange[A]{}, fmt.Errorf("%w: index %d at position %d after %d",
				ErrNonContiguousWriteBatch, w.Index, n, first)
		}
		values[n] = w.Attribute
	}
	return WriteRange[A]{first: first, values: values}, nil
}

// First returns the index of the first value.
func (r WriteRange[A]) First() Index { return r.first }

// Len returns the number of values.
func (r WriteRange[A]) Len() int { return len(r.values) }

// Offset returns the byte offset of the first value.
func (r WriteRange[A]) Offset() (uint64, error) {
	return AttributeSize[A](uint64(r.first))
}

// Bytes returns the packed values.
func (r WriteRange[A]) Bytes() ([]byte, error) {
	return encode(r.values)
}

// Write uploads the range into buffer with one queue write.
func (r WriteRange[A]) Write(queue gpu.Queue, buffer gpu.Buffer) error {
	if len(r.values) == 0 {
		return ErrEmptyWriteBatch
	}
	offset, err := r.Offset()
	if err != nil {
		return err
	}
	data, err := r.Bytes()
	if err != nil {
		return fmt.Errorf("encode range at %d: %w", r.first, err)
	}
	return queue.WriteBuffer(buffer, offset, data)
}

// Coalesce orders writes by index and splits them into contiguous ranges.
// When an index is written more than once the last write wins.
func Coalesce[A any](writes []IndexedAttribute[A]) []WriteRange[A] {
	if len(writes) == 0 {
		return nil
	}
	sorted := make([]IndexedAttribute[A], len(writes))
	copy(sorted, writes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	deduped := sorted[:0]
	for _, w := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Index == w.Index {
			deduped[n-1] = w
			continue
		}
		deduped = append(deduped, w)
	}

	var ranges []WriteRange[A]
	start := 0
	for n := 1; n <= len(deduped); n++ {
		if n < len(deduped) && deduped[n].Index == deduped[n-1].Index+1 {
			continue
		}
		values := make([]A, n-start)
		for k := range values {
			values[k] = deduped[start+k].Attribute
		}
		ranges = append(ranges, WriteRange[A]{first: deduped[start].Index, values: values})
		start = n
	}
	return ranges
}
