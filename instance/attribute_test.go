package instance

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/visualizer/attr"
	"github.com/gogpu/visualizer/gpu"
)

func TestAttributeSize(t *testing.T) {
	n, err := AttributeSize[attr.Position](3)
	require.NoError(t, err)
	assert.Equal(t, uint64(24), n)

	n, err = AttributeSize[attr.Color](0)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = AttributeSize[attr.Color](math.MaxUint64)
	assert.ErrorIs(t, err, ErrGrowthOverflow)

	_, err = AttributeSize[string](1)
	assert.ErrorIs(t, err, ErrNotPOD)
}

func TestAttributeBufferRoundTrip(t *testing.T) {
	d := gpu.NewMemoryDevice()
	b, err := NewAttributeBuffer[attr.Position](d, "positions", 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(32), b.GPU().Size())
	assert.Equal(t, gpu.InstanceUsage, b.GPU().Usage())

	v := attr.Position{X: 3, Y: 7}
	require.NoError(t, b.Write(2, v))
	got, err := b.Read(2)
	require.NoError(t, err)
	assert.Equal(t, v, got)
	assert.Equal(t, 1, b.Pending())

	assert.ErrorIs(t, b.Write(4, v), ErrOutOfRangeWrite)
	_, err = b.Read(4)
	assert.ErrorIs(t, err, ErrOutOfRangeWrite)
}

func TestAttributeBufferRejectsBadTypes(t *testing.T) {
	d := gpu.NewMemoryDevice()
	_, err := NewAttributeBuffer[[]byte](d, "bytes", 4)
	assert.ErrorIs(t, err, ErrNotPOD)

	_, err = NewAttributeBuffer[[3]byte](d, "rgb", 4)
	assert.ErrorIs(t, err, ErrUnalignedAttribute)

	_, err = NewAttributeBuffer[attr.Depth](d, "depth", 0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestAttributeBufferFlushCoalesces(t *testing.T) {
	d := gpu.NewMemoryDevice()
	b, err := NewAttributeBuffer[attr.Depth](d, "depth", 8)
	require.NoError(t, err)

	for _, i := range []Index{5, 1, 2, 3} {
		require.NoError(t, b.Write(i, attr.Depth(i)))
	}
	n, err := b.Flush(d)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, b.Pending())

	writes := d.WritesTo(b.GPU())
	require.Len(t, writes, 2)
	assert.Equal(t, uint64(4), writes[0].Offset)
	assert.Equal(t, uint64(12), writes[0].Size)
	assert.Equal(t, uint64(20), writes[1].Offset)
	assert.Equal(t, uint64(4), writes[1].Size)

	data := b.GPU().(*gpu.MemoryBuffer).Bytes()
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(data[12:])))

	n, err = b.Flush(d)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAttributeBufferResize(t *testing.T) {
	d := gpu.NewMemoryDevice()
	b, err := NewAttributeBuffer[attr.Position](d, "positions", 2)
	require.NoError(t, err)
	require.NoError(t, b.Write(1, attr.Position{X: 1, Y: 2}))
	old := b.GPU()

	require.NoError(t, b.Resize(d, d, 4))
	assert.Equal(t, uint32(4), b.Capacity())
	assert.True(t, old.(*gpu.MemoryBuffer).Released())
	assert.Zero(t, b.Pending())

	data := b.GPU().(*gpu.MemoryBuffer).Bytes()
	require.Len(t, data, 32)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(data[8:])))
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(data[12:])))

	// Shrinking is ignored.
	require.NoError(t, b.Resize(d, d, 1))
	assert.Equal(t, uint32(4), b.Capacity())
}
