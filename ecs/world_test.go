package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityPoolReuse(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	b := p.Create()
	assert.Equal(t, uint32(0), a.Index())
	assert.Equal(t, uint32(1), b.Index())

	require.True(t, p.Destroy(a))
	assert.False(t, p.Destroy(a))
	assert.False(t, p.Alive(a))

	c := p.Create()
	assert.Equal(t, a.Index(), c.Index())
	assert.Equal(t, uint32(1), c.Generation())
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, p.Len())
}

func TestStoreChangeTicks(t *testing.T) {
	w := NewWorld()
	pos := NewStore[int](w)
	e1, e2 := w.Spawn(), w.Spawn()
	pos.Set(e1, 1)
	pos.Set(e2, 2)

	since := w.Tick()
	w.Advance()
	changed := func() map[EntityID]int {
		out := map[EntityID]int{}
		pos.EachChanged(since+1, func(id EntityID, v int) { out[id] = v })
		return out
	}
	assert.Empty(t, changed())

	require.True(t, pos.Mutate(e2, func(v *int) { *v = 20 }))
	assert.Equal(t, map[EntityID]int{e2: 20}, changed())
	assert.True(t, pos.Changed(e2, since+1))
	assert.False(t, pos.Changed(e1, since+1))

	assert.False(t, pos.Mutate(EntityID(99), func(*int) {}))
}

func TestWorldFlush(t *testing.T) {
	w := NewWorld()
	pos := NewStore[string](w)
	tags := NewStore[bool](w)
	e := w.Spawn()
	pos.Set(e, "x")
	tags.Set(e, true)

	w.Despawn(e)
	assert.True(t, w.Alive(e))
	w.Flush()
	assert.False(t, w.Alive(e))
	assert.False(t, pos.Has(e))
	assert.False(t, tags.Has(e))
	assert.Equal(t, []EntityID{e}, w.Despawned())

	// Stale despawns are dropped.
	w.Despawn(e)
	w.Flush()
	assert.Empty(t, w.Despawned())
}

func TestEach2(t *testing.T) {
	w := NewWorld()
	a := NewStore[int](w)
	b := NewStore[string](w)
	e1, e2, e3 := w.Spawn(), w.Spawn(), w.Spawn()
	a.Set(e1, 1)
	a.Set(e2, 2)
	a.Set(e3, 3)
	b.Set(e2, "two")

	got := map[EntityID]string{}
	Each2(a, b, func(id EntityID, n int, s string) { got[id] = s })
	assert.Equal(t, map[EntityID]string{e2: "two"}, got)
}
