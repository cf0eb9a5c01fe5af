// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/visualizer/attr"
	"github.com/gogpu/visualizer/extract"
	"github.com/gogpu/visualizer/gpu"
	"github.com/gogpu/visualizer/instance"
)

// Instances keeps one instance per key with position, area, color, depth and
// layer attributes. It draws solid rectangles such as panels and icons.
type Instances[K comparable] struct {
	coord *instance.Coordinator[K]
	log   *slog.Logger

	position *instance.AttributeBuffer[attr.Position]
	area     *instance.AttributeBuffer[attr.Area]
	color    *instance.AttributeBuffer[attr.Color]
	depth    *instance.AttributeBuffer[attr.Depth]
	layer    *instance.AttributeBuffer[attr.Layer]

	snapshots map[K]extract.Snapshot
	dirty     map[K]fields
}

// NewInstances creates the attribute buffers of an instance set on backend.
func NewInstances[K comparable](backend gpu.Backend, label string, cfg instance.Config) (*Instances[K], error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	coord := instance.NewCoordinator[K](backend, label, cfg)
	reg := coord.Registry()

	var err error
	r := &Instances[K]{
		coord:     coord,
		log:       cfg.Logger.With("renderer", label),
		position:  register[attr.Position](reg, &err, instance.KindPosition, gputypes.VertexFormatFloat32x2),
		area:      register[attr.Area](reg, &err, instance.KindArea, gputypes.VertexFormatFloat32x2),
		color:     register[attr.Color](reg, &err, instance.KindColor, gputypes.VertexFormatFloat32x4),
		depth:     register[attr.Depth](reg, &err, instance.KindDepth, gputypes.VertexFormatFloat32),
		layer:     register[attr.Layer](reg, &err, instance.KindLayer, gputypes.VertexFormatUint32),
		snapshots: make(map[K]extract.Snapshot),
		dirty:     make(map[K]fields),
	}
	if err != nil {
		coord.Release()
		return nil, fmt.Errorf("render: %s: %w", label, err)
	}
	return r, nil
}

// Prepare applies the structural changes of ext: slots of removed keys are
// freed first, then new keys get slots, then every buffer grows if needed.
// Changed attributes are recorded for the next Write.
func (r *Instances[K]) Prepare(ext extract.Extraction[K]) error {
	for key := range ext.Removed {
		if _, err := r.coord.Remove(key); err != nil && !errors.Is(err, instance.ErrUnknownKey) {
			return fmt.Errorf("render: remove instance: %w", err)
		}
		delete(r.snapshots, key)
		delete(r.dirty, key)
	}
	for key, snap := range ext.Added {
		if _, _, err := r.coord.Insert(key); err != nil {
			return fmt.Errorf("render: insert instance: %w", err)
		}
		r.snapshots[key] = snap.Clone()
		r.dirty[key] = allFields
	}
	for key, d := range ext.Differences {
		snap, ok := r.snapshots[key]
		if !ok {
			r.log.Warn("difference for unknown instance dropped", slog.Any("key", key))
			continue
		}
		snap.Apply(d)
		r.snapshots[key] = snap
		r.dirty[key] |= entityFields(d)
	}
	return r.coord.Prepare()
}

// Write stores the changed attributes of every dirty instance in the CPU
// mirrors.
func (r *Instances[K]) Write() error {
	for key, f := range r.dirty {
		i, ok := r.coord.Index(key)
		if !ok {
			continue
		}
		s := r.snapshots[key]
		err := errors.Join(
			writeField(r.position, f, fieldPosition, i, s.Position),
			writeField(r.area, f, fieldArea, i, s.Area),
			writeField(r.color, f, fieldColor, i, s.Color),
			writeField(r.depth, f, fieldDepth, i, s.Depth),
			writeField(r.layer, f, fieldLayer, i, s.Layer),
		)
		if err != nil {
			return fmt.Errorf("render: write instance %d: %w", i, err)
		}
	}
	clear(r.dirty)
	return nil
}

// Flush uploads the written attributes and returns the number of queue
// writes issued.
func (r *Instances[K]) Flush() (int, error) {
	return r.coord.Flush()
}

// Apply runs Prepare and Write for a single extraction.
func (r *Instances[K]) Apply(ext extract.Extraction[K]) error {
	if err := r.Prepare(ext); err != nil {
		return err
	}
	return r.Write()
}

// Index returns the slot of key.
func (r *Instances[K]) Index(key K) (instance.Index, bool) { return r.coord.Index(key) }

// Count returns the number of live instances.
func (r *Instances[K]) Count() uint32 { return r.coord.Count() }

// Capacity returns the slot capacity of the buffers.
func (r *Instances[K]) Capacity() uint32 { return r.coord.Capacity() }

// Registry returns the attribute buffers.
func (r *Instances[K]) Registry() *instance.Registry { return r.coord.Registry() }

// Layouts returns the per-instance vertex buffer layouts.
func (r *Instances[K]) Layouts() []gputypes.VertexBufferLayout {
	return r.coord.Registry().Layouts()
}

// Release frees the GPU buffers.
func (r *Instances[K]) Release() { r.coord.Release() }
