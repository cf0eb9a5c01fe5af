package instance

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/visualizer/gpu"
)

// Kind identifies an attribute within a Registry.
type Kind uint8

// Attribute kinds.
const (
	KindPosition Kind = iota
	KindArea
	KindColor
	KindDepth
	KindLayer
	KindDescriptor
	KindClip
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPosition:
		return "position"
	case KindArea:
		return "area"
	case KindColor:
		return "color"
	case KindDepth:
		return "depth"
	case KindLayer:
		return "layer"
	case KindDescriptor:
		return "descriptor"
	case KindClip:
		return "clip"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Registry errors.
var (
	// ErrDuplicateKind is returned when registering a kind twice.
	ErrDuplicateKind = errors.New("instance: attribute kind already registered")

	// ErrFormatMismatch is returned when a vertex format does not match the
	// attribute's packed size.
	ErrFormatMismatch = errors.New("instance: vertex format does not match attribute size")
)

// formatSizes lists the vertex formats usable for instance attributes.
var formatSizes = map[gputypes.VertexFormat]uint64{
	gputypes.VertexFormatFloat32:   4,
	gputypes.VertexFormatFloat32x2: 8,
	gputypes.VertexFormatFloat32x3: 12,
	gputypes.VertexFormatFloat32x4: 16,
	gputypes.VertexFormatUint32:    4,
	gputypes.VertexFormatUint32x2:  8,
	gputypes.VertexFormatUint32x3:  12,
	gputypes.VertexFormatUint32x4:  16,
}

// slot is the type-independent view of an AttributeBuffer.
type slot interface {
	Label() string
	Capacity() uint32
	Stride() uint64
	GPU() gpu.Buffer
	Move(from, to Index) error
	Resize(device gpu.Device, queue gpu.Queue, capacity uint32) error
	Flush(queue gpu.Queue) (int, error)
	Release()
}

type entry struct {
	kind   Kind
	format gputypes.VertexFormat
	buffer slot
}

// Registry holds the attribute buffers of one instance set, one per Kind,
// in registration order. Shader locations follow registration order.
type Registry struct {
	device   gpu.Device
	prefix   string
	capacity uint32
	entries  []entry
}

// NewRegistry creates an empty registry whose buffers start with capacity
// slots. prefix is prepended to buffer labels.
func NewRegistry(device gpu.Device, prefix string, capacity uint32) *Registry {
	return &Registry{device: device, prefix: prefix, capacity: capacity}
}

// Register creates the buffer for kind.
func Register[A any](r *Registry, kind Kind, format gputypes.VertexFormat) (*AttributeBuffer[A], error) {
	if _, ok := r.find(kind); ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
	}
	elem, err := elementSize[A]()
	if err != nil {
		return nil, err
	}
	if size, ok := formatSizes[format]; !ok || size != elem {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrFormatMismatch, kind, elem)
	}
	label := kind.String()
	if r.prefix != "" {
		label = r.prefix + "." + label
	}
	buf, err := NewAttributeBuffer[A](r.device, label, r.capacity)
	if err != nil {
		return nil, err
	}
	r.entries = append(r.entries, entry{kind: kind, format: format, buffer: buf})
	return buf, nil
}

// Lookup returns the buffer registered for kind if it holds attributes of type A.
func Lookup[A any](r *Registry, kind Kind) (*AttributeBuffer[A], bool) {
	e, ok := r.find(kind)
	if !ok {
		return nil, false
	}
	buf, ok := e.buffer.(*AttributeBuffer[A])
	return buf, ok
}

func (r *Registry) find(kind Kind) (entry, bool) {
	for _, e := range r.entries {
		if e.kind == kind {
			return e, true
		}
	}
	return entry{}, false
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, len(r.entries))
	for i, e := range r.entries {
		kinds[i] = e.kind
	}
	return kinds
}

// Format returns the vertex format registered for kind.
func (r *Registry) Format(kind Kind) (gputypes.VertexFormat, bool) {
	e, ok := r.find(kind)
	return e.format, ok
}

// Capacity returns the capacity shared by every buffer.
func (r *Registry) Capacity() uint32 { return r.capacity }

// Layouts returns one per-instance vertex buffer layout per registered
// kind. Buffer slot n binds to shader location n.
func (r *Registry) Layouts() []gputypes.VertexBufferLayout {
	layouts := make([]gputypes.VertexBufferLayout, len(r.entries))
	for i, e := range r.entries {
		layouts[i] = gputypes.VertexBufferLayout{
			ArrayStride: e.buffer.Stride(),
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: e.format, Offset: 0, ShaderLocation: uint32(i)},
			},
		}
	}
	return layouts
}

// Buffers returns the GPU buffers in registration order. The result is only
// valid until the next resize.
func (r *Registry) Buffers() []gpu.Buffer {
	out := make([]gpu.Buffer, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.buffer.GPU()
	}
	return out
}

// move copies slot from into slot to in every buffer.
func (r *Registry) move(from, to Index) error {
	for _, e := range r.entries {
		if err := e.buffer.Move(from, to); err != nil {
			return err
		}
	}
	return nil
}

// resize grows every buffer to capacity. Buffers already grown when a later
// one fails keep their size and are skipped on retry; the registry capacity
// only moves once every buffer holds it.
func (r *Registry) resize(queue gpu.Queue, capacity uint32) error {
	if capacity <= r.capacity {
		return nil
	}
	for _, e := range r.entries {
		if err := e.buffer.Resize(r.device, queue, capacity); err != nil {
			return fmt.Errorf("resize %s to %d: %w", e.buffer.Label(), capacity, err)
		}
	}
	r.capacity = capacity
	return nil
}

// flush uploads the pending writes of every buffer.
func (r *Registry) flush(queue gpu.Queue) (int, error) {
	total := 0
	for _, e := range r.entries {
		n, err := e.buffer.Flush(queue)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Release frees every GPU buffer.
func (r *Registry) Release() {
	for _, e := range r.entries {
		e.buffer.Release()
	}
}
