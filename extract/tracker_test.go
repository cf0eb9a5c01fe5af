package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/visualizer/attr"
)

func drain(t *testing.T, tr *Tracker[int], frame uint64) Extraction[int] {
	t.Helper()
	ext := NewExtraction[int](frame)
	tr.Drain(&ext)
	return ext
}

func TestTrackReportsAdded(t *testing.T) {
	tr := NewTracker[int]()
	assert.Equal(t, Untracked, tr.State(1))

	s := Snapshot{Position: attr.Position{X: 1}, Color: attr.White}
	require.True(t, tr.Track(1, s))
	assert.False(t, tr.Track(1, Snapshot{}))
	assert.Equal(t, Cached, tr.State(1))

	ext := drain(t, tr, 1)
	assert.Equal(t, map[int]Snapshot{1: s}, ext.Added)
	assert.Empty(t, ext.Differences)
	assert.Equal(t, Extracted, tr.State(1))

	ext = drain(t, tr, 2)
	assert.True(t, ext.Empty())
	assert.Equal(t, Cached, tr.State(1))
}

func TestDifferenceOnlyChangedFields(t *testing.T) {
	tr := NewTracker[int]()
	tr.Track(1, Snapshot{Position: attr.Position{}})
	drain(t, tr, 1)

	tr.ObservePosition(1, attr.Position{X: 5, Y: 5})
	tr.ObserveColor(1, attr.Color{})
	tr.ObserveDepth(1, 0)
	tr.ObserveLayer(1, 0)
	tr.ObserveArea(1, attr.Area{})
	tr.ObserveBounds(1, nil)
	assert.Equal(t, Dirty, tr.State(1))

	ext := drain(t, tr, 2)
	want := attr.Position{X: 5, Y: 5}
	assert.Equal(t, map[int]Difference{1: {Position: &want}}, ext.Differences)

	s, ok := tr.Snapshot(1)
	require.True(t, ok)
	assert.Equal(t, want, s.Position)
	assert.Equal(t, Extracted, tr.State(1))
}

func TestToggleCollapses(t *testing.T) {
	tr := NewTracker[int]()
	tr.Track(1, Snapshot{Color: attr.Black})
	drain(t, tr, 1)

	tr.ObserveColor(1, attr.White)
	assert.Equal(t, Dirty, tr.State(1))
	tr.ObserveColor(1, attr.Black)
	assert.Equal(t, Cached, tr.State(1))

	ext := drain(t, tr, 2)
	assert.True(t, ext.Empty())
}

func TestChangeReportedOnce(t *testing.T) {
	tr := NewTracker[int]()
	tr.Track(1, Snapshot{})
	drain(t, tr, 1)

	tr.ObserveDepth(1, 2)
	tr.ObserveDepth(1, 3)
	ext := drain(t, tr, 2)
	require.Contains(t, ext.Differences, 1)
	assert.Equal(t, attr.Depth(3), *ext.Differences[1].Depth)

	tr.ObserveDepth(1, 3)
	ext = drain(t, tr, 3)
	assert.True(t, ext.Empty())
}

func TestObserveBeforeFirstDrain(t *testing.T) {
	tr := NewTracker[int]()
	tr.Track(1, Snapshot{Depth: 1})
	tr.ObserveDepth(1, 4)

	ext := drain(t, tr, 1)
	assert.Empty(t, ext.Differences)
	assert.Equal(t, attr.Depth(4), ext.Added[1].Depth)
}

func TestObserveUntracked(t *testing.T) {
	tr := NewTracker[int]()
	assert.False(t, tr.ObservePosition(9, attr.Position{X: 1}))
	assert.True(t, drain(t, tr, 1).Empty())
}

func TestBoundsChanges(t *testing.T) {
	tr := NewTracker[int]()
	tr.Track(1, Snapshot{})
	drain(t, tr, 1)

	b := attr.NewSection(0, 0, 10, 10)
	tr.ObserveBounds(1, &b)
	ext := drain(t, tr, 2)
	assert.Equal(t, BoundsChanged, ext.Differences[1].Bounds)
	assert.Equal(t, b, ext.Differences[1].Section)

	same := b
	tr.ObserveBounds(1, &same)
	assert.True(t, drain(t, tr, 3).Empty())

	tr.ObserveBounds(1, nil)
	ext = drain(t, tr, 4)
	assert.Equal(t, BoundsRemoved, ext.Differences[1].Bounds)
	s, _ := tr.Snapshot(1)
	assert.Nil(t, s.Bounds)
}

func TestLetterDifferences(t *testing.T) {
	a := Glyph{Rune: 'a', Scale: 12}
	b := Glyph{Rune: 'b', Scale: 12}
	tr := NewTracker[int]()
	tr.Track(1, Snapshot{Letters: map[LetterKey]Letter{
		0: {Glyph: a},
		1: {Glyph: a, Position: attr.Position{X: 8}},
		2: {Glyph: b, Position: attr.Position{X: 16}},
	}})
	drain(t, tr, 1)

	tr.ObserveLetters(1, map[LetterKey]Letter{
		0: {Glyph: a},
		1: {Glyph: b, Position: attr.Position{X: 8}},
		3: {Glyph: a, Position: attr.Position{X: 24}, Color: attr.White},
	})
	ext := drain(t, tr, 2)
	d := ext.Differences[1]

	assert.Equal(t, map[LetterKey]Letter{3: {Glyph: a, Position: attr.Position{X: 24}, Color: attr.White}}, d.LetterAdd)
	assert.Equal(t, map[LetterKey]Letter{1: {Glyph: b, Position: attr.Position{X: 8}}}, d.LetterUpdate)
	assert.Equal(t, map[LetterKey]struct{}{2: {}}, d.LetterRemove)
	assert.Equal(t, map[LetterKey]Glyph{1: b, 3: a}, d.GlyphAdd)
	assert.Equal(t, map[LetterKey]Glyph{1: a, 2: b}, d.GlyphRemove)

	s, _ := tr.Snapshot(1)
	assert.Len(t, s.Letters, 3)
	assert.Equal(t, b, s.Letters[1].Glyph)

	// Color-only change updates the letter without touching glyphs.
	tr.ObserveLetters(1, map[LetterKey]Letter{
		0: {Glyph: a, Color: attr.Black},
		1: {Glyph: b, Position: attr.Position{X: 8}},
		3: {Glyph: a, Position: attr.Position{X: 24}, Color: attr.White},
	})
	d = drain(t, tr, 3).Differences[1]
	assert.Len(t, d.LetterUpdate, 1)
	assert.Empty(t, d.GlyphAdd)
	assert.Empty(t, d.GlyphRemove)
}

func TestDespawn(t *testing.T) {
	tr := NewTracker[int]()
	tr.Track(1, Snapshot{})
	tr.Track(2, Snapshot{})
	drain(t, tr, 1)

	require.True(t, tr.Despawn(1))
	assert.False(t, tr.Despawn(1))
	assert.Equal(t, Removed, tr.State(1))

	ext := drain(t, tr, 2)
	assert.Equal(t, map[int]struct{}{1: {}}, ext.Removed)
	assert.Equal(t, Untracked, tr.State(1))
	assert.Equal(t, 1, tr.Len())
}

func TestDespawnBeforeFirstDrain(t *testing.T) {
	tr := NewTracker[int]()
	tr.Track(1, Snapshot{})
	tr.Despawn(1)
	assert.True(t, drain(t, tr, 1).Empty())
}

func TestRetrackAfterDespawn(t *testing.T) {
	tr := NewTracker[int]()
	tr.Track(1, Snapshot{Depth: 1})
	drain(t, tr, 1)

	tr.Despawn(1)
	tr.Track(1, Snapshot{Depth: 2})
	ext := drain(t, tr, 2)
	assert.Contains(t, ext.Removed, 1)
	assert.Equal(t, attr.Depth(2), ext.Added[1].Depth)
}

func TestMailbox(t *testing.T) {
	var m Mailbox[int]
	m.Publish(NewExtraction[int](1))
	assert.Zero(t, m.Len())

	first := NewExtraction[int](2)
	first.Removed[1] = struct{}{}
	second := NewExtraction[int](3)
	second.Added[2] = Snapshot{}
	m.Publish(first)
	m.Publish(second)

	got := m.Take()
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].Frame)
	assert.Equal(t, uint64(3), got[1].Frame)
	assert.Empty(t, m.Take())
}
