// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/visualizer/attr"
	"github.com/gogpu/visualizer/extract"
	"github.com/gogpu/visualizer/gpu"
	"github.com/gogpu/visualizer/instance"
)

func panel(x, y float32) extract.Snapshot {
	return extract.Snapshot{
		Position: attr.Position{X: x, Y: y},
		Area:     attr.Area{Width: 10, Height: 10},
		Color:    attr.White,
		Depth:    1,
		Layer:    2,
	}
}

func newInstances(t *testing.T, d *gpu.MemoryDevice, cfg instance.Config) *Instances[string] {
	t.Helper()
	r, err := NewInstances[string](d, "panels", cfg)
	require.NoError(t, err)
	return r
}

// drain collects the pending changes of tr into a new extraction.
func drain(tr *extract.Tracker[string], frame uint64) extract.Extraction[string] {
	ext := extract.NewExtraction[string](frame)
	tr.Drain(&ext)
	return ext
}

func TestInstancesAddWritesEveryAttribute(t *testing.T) {
	d := gpu.NewMemoryDevice()
	r := newInstances(t, d, instance.Config{})
	tr := extract.NewTracker[string]()
	tr.Track("a", panel(1, 2))
	tr.Track("b", panel(3, 4))

	require.NoError(t, r.Apply(drain(tr, 1)))
	n, err := r.Flush()
	require.NoError(t, err)
	assert.Equal(t, 5, n, "one coalesced write per attribute buffer")
	assert.Equal(t, uint32(2), r.Count())

	ib, ok := r.Index("b")
	require.True(t, ok)
	pos, err := r.position.Read(ib)
	require.NoError(t, err)
	assert.Equal(t, attr.Position{X: 3, Y: 4}, pos)
	layer, err := r.layer.Read(ib)
	require.NoError(t, err)
	assert.Equal(t, attr.Layer(2), layer)
}

func TestInstancesDifferenceWritesChangedFields(t *testing.T) {
	d := gpu.NewMemoryDevice()
	r := newInstances(t, d, instance.Config{})
	tr := extract.NewTracker[string]()
	tr.Track("a", panel(0, 0))
	tr.Track("b", panel(0, 0))
	require.NoError(t, r.Apply(drain(tr, 1)))
	_, err := r.Flush()
	require.NoError(t, err)
	d.ResetWrites()

	red := attr.RGBA(1, 0, 0, 1)
	tr.ObserveColor("b", red)
	require.NoError(t, r.Apply(drain(tr, 2)))
	n, err := r.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	writes := d.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "panels.color", writes[0].Label)
	ib, _ := r.Index("b")
	off, err := instance.AttributeSize[attr.Color](uint64(ib))
	require.NoError(t, err)
	assert.Equal(t, off, writes[0].Offset)
	assert.Equal(t, uint64(16), writes[0].Size)
}

func TestInstancesRemoveCompacts(t *testing.T) {
	d := gpu.NewMemoryDevice()
	r := newInstances(t, d, instance.Config{})
	tr := extract.NewTracker[string]()
	// One key per frame gives a=0, b=1, c=2.
	for frame, k := range []string{"a", "b", "c"} {
		tr.Track(k, panel(float32(frame+1), float32(frame+1)))
		require.NoError(t, r.Apply(drain(tr, uint64(frame+1))))
	}
	_, err := r.Flush()
	require.NoError(t, err)
	ic, _ := r.Index("c")
	require.Equal(t, instance.Index(2), ic)

	tr.Despawn("a")
	require.NoError(t, r.Apply(drain(tr, 4)))
	_, err = r.Flush()
	require.NoError(t, err)

	assert.Equal(t, uint32(2), r.Count())
	_, ok := r.Index("a")
	assert.False(t, ok)
	ic, ok = r.Index("c")
	require.True(t, ok)
	assert.Equal(t, instance.Index(0), ic)
	pos, err := r.position.Read(ic)
	require.NoError(t, err)
	assert.Equal(t, attr.Position{X: 3, Y: 3}, pos)
}

func TestInstancesGrowAllBuffers(t *testing.T) {
	d := gpu.NewMemoryDevice()
	r := newInstances(t, d, instance.Config{InitialCapacity: 2, GrowthFactor: 2})
	tr := extract.NewTracker[string]()
	for _, k := range []string{"a", "b", "c"} {
		tr.Track(k, panel(1, 1))
	}
	require.NoError(t, r.Apply(drain(tr, 1)))

	assert.Equal(t, uint32(4), r.Capacity())
	for _, b := range r.Registry().Buffers() {
		mb := b.(*gpu.MemoryBuffer)
		assert.False(t, mb.Released())
	}
	assert.Equal(t, 5, d.Live())

	size, err := instance.AttributeSize[attr.Color](4)
	require.NoError(t, err)
	assert.Equal(t, size, r.color.GPU().Size())

	_, err = r.Flush()
	require.NoError(t, err)
	for _, k := range []string{"a", "b", "c"} {
		i, ok := r.Index(k)
		require.True(t, ok)
		c, err := r.color.Read(i)
		require.NoError(t, err)
		assert.Equal(t, attr.White, c)
	}
}

func TestInstancesTolerateUnknownRemoval(t *testing.T) {
	d := gpu.NewMemoryDevice()
	r := newInstances(t, d, instance.Config{})
	ext := extract.NewExtraction[string](1)
	ext.Removed["ghost"] = struct{}{}
	assert.NoError(t, r.Apply(ext))
	assert.Zero(t, r.Count())
}

func TestInstancesLayouts(t *testing.T) {
	d := gpu.NewMemoryDevice()
	r := newInstances(t, d, instance.Config{})
	layouts := r.Layouts()
	require.Len(t, layouts, 5)
	assert.Equal(t, uint64(16), layouts[2].ArrayStride)
	assert.Equal(t, uint32(4), layouts[4].Attributes[0].ShaderLocation)
}
