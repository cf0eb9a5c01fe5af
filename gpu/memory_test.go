// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeviceWrite(t *testing.T) {
	d := NewMemoryDevice()
	buf, err := d.CreateBuffer(BufferDescriptor{Label: "positions", Size: 16, Usage: InstanceUsage})
	require.NoError(t, err)

	require.NoError(t, d.WriteBuffer(buf, 8, []byte{1, 2, 3, 4}))

	mb := buf.(*MemoryBuffer)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0}, mb.Bytes())
	assert.Equal(t, []Write{{Buffer: mb.ID(), Label: "positions", Offset: 8, Size: 4}}, d.Writes())

	d.ResetWrites()
	assert.Empty(t, d.Writes())
}

func TestMemoryDeviceValidation(t *testing.T) {
	d := NewMemoryDevice()

	_, err := d.CreateBuffer(BufferDescriptor{Label: "empty", Usage: InstanceUsage})
	assert.ErrorIs(t, err, ErrInvalidBufferSize)

	vertexOnly, err := d.CreateBuffer(BufferDescriptor{Size: 8, Usage: gputypes.BufferUsageVertex})
	require.NoError(t, err)
	buf, err := d.CreateBuffer(BufferDescriptor{Size: 8, Usage: InstanceUsage})
	require.NoError(t, err)

	tests := []struct {
		name   string
		buf    Buffer
		offset uint64
		data   []byte
		want   error
	}{
		{"nil buffer", nil, 0, make([]byte, 4), ErrNilBuffer},
		{"missing copy dst", vertexOnly, 0, make([]byte, 4), ErrMissingCopyDst},
		{"unaligned offset", buf, 2, make([]byte, 4), ErrUnalignedWrite},
		{"unaligned size", buf, 0, make([]byte, 3), ErrUnalignedWrite},
		{"out of bounds", buf, 4, make([]byte, 8), ErrWriteOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, d.WriteBuffer(tt.buf, tt.offset, tt.data), tt.want)
		})
	}
	assert.Empty(t, d.Writes())
}

func TestMemoryDeviceRelease(t *testing.T) {
	d := NewMemoryDevice()
	buf, err := d.CreateBuffer(BufferDescriptor{Size: 4, Usage: InstanceUsage})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Live())

	buf.Release()
	buf.Release()
	assert.Equal(t, 0, d.Live())
	assert.ErrorIs(t, d.WriteBuffer(buf, 0, make([]byte, 4)), ErrBufferReleased)
}

func TestMemoryDeviceForeignBuffer(t *testing.T) {
	a, b := NewMemoryDevice(), NewMemoryDevice()
	buf, err := a.CreateBuffer(BufferDescriptor{Size: 4, Usage: InstanceUsage})
	require.NoError(t, err)
	assert.ErrorIs(t, b.WriteBuffer(buf, 0, make([]byte, 4)), ErrForeignBuffer)
}

type nullProvider struct{}

func (nullProvider) Device() gpucontext.Device              { return nil }
func (nullProvider) Queue() gpucontext.Queue                { return nil }
func (nullProvider) Adapter() gpucontext.Adapter            { return nil }
func (nullProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (nullProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

type wrongHALProvider struct{ nullProvider }

func (wrongHALProvider) HalDevice() any { return "device" }
func (wrongHALProvider) HalQueue() any  { return "queue" }

func TestFromProvider(t *testing.T) {
	_, err := FromProvider(nil)
	assert.ErrorIs(t, err, ErrNilProvider)

	_, err = FromProvider(nullProvider{})
	assert.ErrorIs(t, err, ErrNoHAL)

	_, err = FromProvider(wrongHALProvider{})
	assert.ErrorIs(t, err, ErrNoHAL)
}
