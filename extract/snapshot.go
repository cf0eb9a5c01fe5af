// Package extract detects per-entity changes on the logic side and hands
// them to the render side.
//
// A [Tracker] keeps the last committed [Snapshot] of every tracked key.
// Diff systems report current values with the Observe methods; only fields
// that differ from the committed snapshot end up in the key's pending
// [Difference]. Drain moves pending differences into an [Extraction],
// commits them into the snapshots and resets them. A [Mailbox] carries
// extractions from the logic stage to the render stage.
//
// Comparison is always against the committed snapshot, so a field changed
// and changed back before Drain reports nothing.
package extract

import (
	"maps"

	"github.com/gogpu/visualizer/attr"
)

// LetterKey identifies a letter within its text by byte offset.
type LetterKey uint32

// Glyph is the identity of a rasterized glyph within a font.
type Glyph struct {
	Rune  rune
	Scale float32
}

// Letter is one placed glyph of a text.
type Letter struct {
	Glyph    Glyph
	Position attr.Position
	Area     attr.Area
	Color    attr.Color
}

// Snapshot holds the committed values of one key.
type Snapshot struct {
	Position attr.Position
	Area     attr.Area
	Color    attr.Color
	Depth    attr.Depth
	Layer    attr.Layer

	// Bounds clips the element. Nil means unbounded.
	Bounds *attr.Section

	// Letters is nil for elements without text.
	Letters map[LetterKey]Letter
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Bounds != nil {
		b := *s.Bounds
		out.Bounds = &b
	}
	out.Letters = maps.Clone(s.Letters)
	return out
}

// Apply commits d into s.
func (s *Snapshot) Apply(d Difference) {
	if d.Position != nil {
		s.Position = *d.Position
	}
	if d.Area != nil {
		s.Area = *d.Area
	}
	if d.Color != nil {
		s.Color = *d.Color
	}
	if d.Depth != nil {
		s.Depth = *d.Depth
	}
	if d.Layer != nil {
		s.Layer = *d.Layer
	}
	switch d.Bounds {
	case BoundsChanged:
		b := d.Section
		s.Bounds = &b
	case BoundsRemoved:
		s.Bounds = nil
	}
	if len(d.LetterAdd)+len(d.LetterUpdate)+len(d.LetterRemove) == 0 {
		return
	}
	if s.Letters == nil {
		s.Letters = make(map[LetterKey]Letter)
	}
	for k := range d.LetterRemove {
		delete(s.Letters, k)
	}
	maps.Copy(s.Letters, d.LetterAdd)
	maps.Copy(s.Letters, d.LetterUpdate)
}
