// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
)

// Write records one queue write issued against a MemoryDevice.
type Write struct {
	Buffer uint64
	Label  string
	Offset uint64
	Size   uint64
}

// MemoryDevice is a host-memory Backend. It applies the same validation as
// WebGPU writeBuffer and records every accepted write.
//
// Thread Safety: MemoryDevice is safe for concurrent use.
type MemoryDevice struct {
	mu      sync.Mutex
	nextID  uint64
	buffers map[uint64]*MemoryBuffer
	writes  []Write
}

// NewMemoryDevice creates an empty MemoryDevice.
func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{buffers: make(map[uint64]*MemoryBuffer)}
}

// CreateBuffer allocates a zero-filled buffer.
func (d *MemoryDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("%w: size is 0 (%s)", ErrInvalidBufferSize, desc.Label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	b := &MemoryBuffer{
		owner: d,
		id:    d.nextID,
		label: desc.Label,
		usage: desc.Usage,
		data:  make([]byte, desc.Size),
	}
	d.buffers[b.id] = b
	return b, nil
}

// WriteBuffer copies data into buffer at offset.
func (d *MemoryDevice) WriteBuffer(buffer Buffer, offset uint64, data []byte) error {
	if buffer == nil {
		return ErrNilBuffer
	}
	b, ok := buffer.(*MemoryBuffer)
	if !ok || b.owner != d {
		return ErrForeignBuffer
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if b.released {
		return ErrBufferReleased
	}
	if err := validateWrite(uint64(len(b.data)), b.usage, offset, len(data)); err != nil {
		return fmt.Errorf("%w: %s offset=%d size=%d capacity=%d", err, b.label, offset, len(data), len(b.data))
	}
	copy(b.data[offset:], data)
	d.writes = append(d.writes, Write{
		Buffer: b.id,
		Label:  b.label,
		Offset: offset,
		Size:   uint64(len(data)),
	})
	return nil
}

// Writes returns a copy of the write log.
func (d *MemoryDevice) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Write, len(d.writes))
	copy(out, d.writes)
	return out
}

// WritesTo returns the logged writes that targeted buffer.
func (d *MemoryDevice) WritesTo(buffer Buffer) []Write {
	b, ok := buffer.(*MemoryBuffer)
	if !ok {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Write
	for _, w := range d.writes {
		if w.Buffer == b.id {
			out = append(out, w)
		}
	}
	return out
}

// ResetWrites clears the write log.
func (d *MemoryDevice) ResetWrites() {
	d.mu.Lock()
	d.writes = d.writes[:0]
	d.mu.Unlock()
}

// Live returns the number of buffers that have not been released.
func (d *MemoryDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

// MemoryBuffer is a Buffer created by a MemoryDevice.
type MemoryBuffer struct {
	owner    *MemoryDevice
	id       uint64
	label    string
	usage    gputypes.BufferUsage
	data     []byte
	released bool
}

// ID returns the buffer's device-unique identifier.
func (b *MemoryBuffer) ID() uint64 { return b.id }

// Label returns the debug label.
func (b *MemoryBuffer) Label() string { return b.label }

// Size returns the buffer size in bytes.
func (b *MemoryBuffer) Size() uint64 { return uint64(len(b.data)) }

// Usage returns the usage flags.
func (b *MemoryBuffer) Usage() gputypes.BufferUsage { return b.usage }

// Bytes returns a copy of the buffer contents.
func (b *MemoryBuffer) Bytes() []byte {
	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Released reports whether Release has been called.
func (b *MemoryBuffer) Released() bool {
	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	return b.released
}

// Release frees the buffer.
func (b *MemoryBuffer) Release() {
	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	delete(b.owner.buffers, b.id)
}

var (
	_ Backend = (*MemoryDevice)(nil)
	_ Buffer  = (*MemoryBuffer)(nil)
)
