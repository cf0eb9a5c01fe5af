package instance

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"reflect"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/visualizer/gpu"
)

// Attribute buffer errors.
var (
	// ErrOutOfRangeWrite is returned when writing at an index >= capacity.
	ErrOutOfRangeWrite = errors.New("instance: write index out of range")

	// ErrNotPOD is returned for attribute types without a fixed-size encoding.
	ErrNotPOD = errors.New("instance: attribute type is not fixed-size")

	// ErrUnalignedAttribute is returned for attribute types whose size is not
	// a multiple of gpu.WriteAlignment.
	ErrUnalignedAttribute = errors.New("instance: attribute size is not 4-byte aligned")

	// ErrInvalidCapacity is returned for a zero buffer capacity.
	ErrInvalidCapacity = errors.New("instance: capacity must be positive")
)

// elementSize returns the packed size of one A.
func elementSize[A any]() (uint64, error) {
	var zero A
	n := binary.Size(zero)
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotPOD, reflect.TypeOf(zero))
	}
	return uint64(n), nil
}

// AttributeSize returns the byte size of n attributes of type A.
func AttributeSize[A any](n uint64) (uint64, error) {
	elem, err := elementSize[A]()
	if err != nil {
		return 0, err
	}
	hi, lo := bits.Mul64(elem, n)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d bytes", ErrGrowthOverflow, n, elem)
	}
	return lo, nil
}

func encode[A any](values []A) ([]byte, error) {
	return binary.Append(nil, binary.LittleEndian, values)
}

// AttributeBuffer is a CPU mirror of one attribute kind paired with the GPU
// vertex buffer it is uploaded to.
//
// Writes go to the mirror and are uploaded by Flush. The buffer never grows
// on its own; see Coordinator.
type AttributeBuffer[A any] struct {
	label   string
	usage   gputypes.BufferUsage
	elem    uint64
	cpu     []A
	gpu     gpu.Buffer
	pending map[Index]struct{}
}

// NewAttributeBuffer creates a buffer holding capacity default-valued
// attributes.
func NewAttributeBuffer[A any](device gpu.Device, label string, capacity uint32) (*AttributeBuffer[A], error) {
	return newAttributeBuffer[A](device, label, gpu.InstanceUsage, capacity)
}

func newAttributeBuffer[A any](device gpu.Device, label string, usage gputypes.BufferUsage, capacity uint32) (*AttributeBuffer[A], error) {
	if capacity == 0 {
		return nil, ErrInvalidCapacity
	}
	elem, err := elementSize[A]()
	if err != nil {
		return nil, err
	}
	if elem%gpu.WriteAlignment != 0 {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrUnalignedAttribute, label, elem)
	}
	b := &AttributeBuffer[A]{
		label:   label,
		usage:   usage,
		elem:    elem,
		cpu:     make([]A, capacity),
		pending: make(map[Index]struct{}),
	}
	if b.gpu, err = b.create(device, capacity); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *AttributeBuffer[A]) create(device gpu.Device, capacity uint32) (gpu.Buffer, error) {
	size, err := AttributeSize[A](uint64(capacity))
	if err != nil {
		return nil, err
	}
	buf, err := device.CreateBuffer(gpu.BufferDescriptor{Label: b.label, Size: size, Usage: b.usage})
	if err != nil {
		return nil, fmt.Errorf("instance: create %s: %w", b.label, err)
	}
	return buf, nil
}

// Label returns the buffer label.
func (b *AttributeBuffer[A]) Label() string { return b.label }

// Capacity returns the number of attributes the buffer holds.
func (b *AttributeBuffer[A]) Capacity() uint32 { return uint32(len(b.cpu)) }

// GPU returns the GPU buffer. It changes after Resize.
func (b *AttributeBuffer[A]) GPU() gpu.Buffer { return b.gpu }

// Stride returns the byte size of one attribute.
func (b *AttributeBuffer[A]) Stride() uint64 { return b.elem }

// Write stores v at index i and schedules it for upload.
func (b *AttributeBuffer[A]) Write(i Index, v A) error {
	if uint32(i) >= b.Capacity() {
		return fmt.Errorf("%w: %s[%d], capacity %d", ErrOutOfRangeWrite, b.label, i, b.Capacity())
	}
	b.cpu[i] = v
	b.pending[i] = struct{}{}
	return nil
}

// Read returns the mirrored value at index i.
func (b *AttributeBuffer[A]) Read(i Index) (A, error) {
	if uint32(i) >= b.Capacity() {
		var zero A
		return zero, fmt.Errorf("%w: %s[%d], capacity %d", ErrOutOfRangeWrite, b.label, i, b.Capacity())
	}
	return b.cpu[i], nil
}

// Pending returns the number of indices waiting for upload.
func (b *AttributeBuffer[A]) Pending() int { return len(b.pending) }

// Move copies the value at from into to.
func (b *AttributeBuffer[A]) Move(from, to Index) error {
	v, err := b.Read(from)
	if err != nil {
		return err
	}
	return b.Write(to, v)
}

// Resize recreates the GPU buffer with room for capacity attributes and
// uploads the whole mirror into it before the old buffer is released.
// Shrinking is a no-op.
func (b *AttributeBuffer[A]) Resize(device gpu.Device, queue gpu.Queue, capacity uint32) error {
	if capacity <= b.Capacity() {
		return nil
	}
	buf, err := b.create(device, capacity)
	if err != nil {
		return err
	}
	cpu := make([]A, capacity)
	copy(cpu, b.cpu)

	data, err := encode(cpu)
	if err != nil {
		buf.Release()
		return fmt.Errorf("instance: encode %s: %w", b.label, err)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		buf.Release()
		return fmt.Errorf("instance: upload %s: %w", b.label, err)
	}

	b.gpu.Release()
	b.gpu = buf
	b.cpu = cpu
	clear(b.pending)
	return nil
}

// Flush uploads every pending attribute, one write per contiguous run of
// indices, and returns the number of writes issued.
func (b *AttributeBuffer[A]) Flush(queue gpu.Queue) (int, error) {
	if len(b.pending) == 0 {
		return 0, nil
	}
	indices := make([]Index, 0, len(b.pending))
	for i := range b.pending {
		indices = append(indices, i)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	writes := make([]IndexedAttribute[A], len(indices))
	for n, i := range indices {
		writes[n] = IndexedAttribute[A]{Index: i, Attribute: b.cpu[i]}
	}
	ranges := Coalesce(writes)
	for _, r := range ranges {
		if err := r.Write(queue, b.gpu); err != nil {
			return 0, fmt.Errorf("instance: flush %s: %w", b.label, err)
		}
	}
	clear(b.pending)
	return len(ranges), nil
}

// Release frees the GPU buffer.
func (b *AttributeBuffer[A]) Release() {
	if b.gpu != nil {
		b.gpu.Release()
	}
}
