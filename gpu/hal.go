// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Provider errors.
var (
	// ErrNilProvider is returned when a nil provider is passed.
	ErrNilProvider = errors.New("gpu: nil DeviceProvider")

	// ErrNoHAL is returned when a provider does not expose HAL types.
	ErrNoHAL = errors.New("gpu: provider does not expose HAL device and queue")
)

// halProvider is implemented by hosts (e.g. gogpu) that share their HAL
// device with libraries.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// HAL is a Backend over a gogpu/wgpu HAL device and queue. The device is
// borrowed from the host and is not destroyed by HAL.
//
// Thread Safety: HAL is safe for concurrent use.
type HAL struct {
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue
	nextID atomic.Uint64
}

// NewHAL wraps a HAL device and queue.
func NewHAL(device hal.Device, queue hal.Queue) *HAL {
	return &HAL{device: device, queue: queue}
}

// FromProvider extracts the HAL device and queue from a host provider.
func FromProvider(provider gpucontext.DeviceProvider) (*HAL, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	return NewHAL(device, queue), nil
}

// CreateBuffer creates a HAL buffer. Sizes are rounded up to WriteAlignment.
func (h *HAL) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("%w: size is 0 (%s)", ErrInvalidBufferSize, desc.Label)
	}
	size := (desc.Size + WriteAlignment - 1) &^ (WriteAlignment - 1)

	raw, err := h.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", desc.Label, err)
	}
	return &halBuffer{
		owner: h,
		id:    h.nextID.Add(1),
		raw:   raw,
		label: desc.Label,
		size:  size,
		usage: desc.Usage,
	}, nil
}

// WriteBuffer schedules a write of data into buffer at offset.
func (h *HAL) WriteBuffer(buffer Buffer, offset uint64, data []byte) error {
	if buffer == nil {
		return ErrNilBuffer
	}
	b, ok := buffer.(*halBuffer)
	if !ok || b.owner != h {
		return ErrForeignBuffer
	}
	if b.released.Load() {
		return ErrBufferReleased
	}
	if err := validateWrite(b.size, b.usage, offset, len(data)); err != nil {
		return fmt.Errorf("%w: %s offset=%d size=%d capacity=%d", err, b.label, offset, len(data), b.size)
	}
	if len(data) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.queue.WriteBuffer(b.raw, offset, data); err != nil {
		return fmt.Errorf("write buffer %s: %w", b.label, err)
	}
	return nil
}

// CreateShaderModule creates a HAL shader module from SPIR-V words.
func (h *HAL) CreateShaderModule(label string, spirv []uint32) (hal.ShaderModule, error) {
	if len(spirv) == 0 {
		return nil, fmt.Errorf("shader %s: code is empty", label)
	}
	module, err := h.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader %s: %w", label, err)
	}
	return module, nil
}

// Raw returns the HAL buffer behind a Buffer created by a HAL backend.
func Raw(buffer Buffer) (hal.Buffer, bool) {
	b, ok := buffer.(*halBuffer)
	if !ok || b.released.Load() {
		return nil, false
	}
	return b.raw, true
}

type halBuffer struct {
	owner    *HAL
	id       uint64
	raw      hal.Buffer
	label    string
	size     uint64
	usage    gputypes.BufferUsage
	released atomic.Bool
}

func (b *halBuffer) Label() string               { return b.label }
func (b *halBuffer) Size() uint64                { return b.size }
func (b *halBuffer) Usage() gputypes.BufferUsage { return b.usage }

func (b *halBuffer) Release() {
	if b.released.Swap(true) {
		return
	}
	b.owner.device.DestroyBuffer(b.raw)
}

var (
	_ Backend = (*HAL)(nil)
	_ Buffer  = (*halBuffer)(nil)
)
