// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu is the narrow slice of a WebGPU device that the instance
// pipeline depends on: buffer creation and queue buffer writes.
//
// The pipeline never reads back from the GPU. Two implementations are
// provided:
//
//   - [HAL] adapts a github.com/gogpu/wgpu/hal device and queue.
//   - [MemoryDevice] keeps buffer contents in host memory and records every
//     write; it backs headless runs and tests.
//
// Usage:
//
//	var backend gpu.Backend = gpu.NewMemoryDevice()
//	if h, err := gpu.FromProvider(provider); err == nil {
//	    backend = h
//	}
package gpu

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Buffer errors.
var (
	// ErrNilBuffer is returned when a write targets a nil buffer.
	ErrNilBuffer = errors.New("gpu: buffer is nil")

	// ErrInvalidBufferSize is returned when creating a zero-sized buffer.
	ErrInvalidBufferSize = errors.New("gpu: invalid buffer size")

	// ErrBufferReleased is returned when operating on a released buffer.
	ErrBufferReleased = errors.New("gpu: buffer has been released")

	// ErrMissingCopyDst is returned when writing a buffer created without CopyDst usage.
	ErrMissingCopyDst = errors.New("gpu: buffer missing CopyDst usage")

	// ErrUnalignedWrite is returned when a write offset or size is not 4-byte aligned.
	ErrUnalignedWrite = errors.New("gpu: write offset and size must be 4-byte aligned")

	// ErrWriteOutOfBounds is returned when a write exceeds the buffer size.
	ErrWriteOutOfBounds = errors.New("gpu: write exceeds buffer size")

	// ErrForeignBuffer is returned when a buffer created by one backend is
	// passed to another.
	ErrForeignBuffer = errors.New("gpu: buffer belongs to a different backend")
)

// WriteAlignment is the required alignment of buffer write offsets and sizes.
const WriteAlignment = 4

// Usage flags for the buffers created by this module.
const (
	// InstanceUsage is used by per-instance vertex attribute buffers.
	InstanceUsage = gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst

	// StorageUsage is used by buffers read as storage arrays in shaders.
	StorageUsage = gputypes.BufferUsageVertex | gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
)

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// Buffer is a GPU-resident byte buffer.
type Buffer interface {
	// Label returns the debug label given at creation.
	Label() string

	// Size returns the buffer size in bytes.
	Size() uint64

	// Usage returns the usage flags given at creation.
	Usage() gputypes.BufferUsage

	// Release frees the buffer. Releasing twice is a no-op.
	Release()
}

// Device creates buffers.
type Device interface {
	CreateBuffer(desc BufferDescriptor) (Buffer, error)
}

// Queue schedules buffer writes. Writes to the same buffer are applied in
// the order they are issued.
type Queue interface {
	WriteBuffer(buffer Buffer, offset uint64, data []byte) error
}

// Backend is a device together with its queue.
type Backend interface {
	Device
	Queue
}

// validateWrite applies the WebGPU writeBuffer rules shared by all backends.
func validateWrite(size uint64, usage gputypes.BufferUsage, offset uint64, n int) error {
	if usage&gputypes.BufferUsageCopyDst == 0 {
		return ErrMissingCopyDst
	}
	if offset%WriteAlignment != 0 || uint64(n)%WriteAlignment != 0 {
		return ErrUnalignedWrite
	}
	end := offset + uint64(n)
	if end < offset || end > size {
		return ErrWriteOutOfBounds
	}
	return nil
}
