package extract

import (
	"github.com/gogpu/visualizer/attr"
)

// BoundsChange describes how the bounds of a key changed.
type BoundsChange uint8

const (
	// BoundsUnchanged means the bounds did not change.
	BoundsUnchanged BoundsChange = iota

	// BoundsChanged means the bounds are now Difference.Section.
	BoundsChanged

	// BoundsRemoved means the key is now unbounded.
	BoundsRemoved
)

// Difference is a sparse set of changes for one key. Nil and empty fields
// are unchanged, not zero.
type Difference struct {
	Position *attr.Position
	Area     *attr.Area
	Color    *attr.Color
	Depth    *attr.Depth
	Layer    *attr.Layer

	Bounds  BoundsChange
	Section attr.Section

	// LetterAdd holds letters new to the text.
	LetterAdd map[LetterKey]Letter

	// LetterUpdate holds existing letters whose glyph, placement or color
	// changed.
	LetterUpdate map[LetterKey]Letter

	// LetterRemove holds letters no longer in the text.
	LetterRemove map[LetterKey]struct{}

	// GlyphAdd holds the glyphs that letters start using.
	GlyphAdd map[LetterKey]Glyph

	// GlyphRemove holds the glyphs that letters stop using.
	GlyphRemove map[LetterKey]Glyph
}

// Empty reports whether d records no change.
func (d Difference) Empty() bool {
	return d.Position == nil && d.Area == nil && d.Color == nil &&
		d.Depth == nil && d.Layer == nil && d.Bounds == BoundsUnchanged &&
		len(d.LetterAdd) == 0 && len(d.LetterUpdate) == 0 && len(d.LetterRemove) == 0 &&
		len(d.GlyphAdd) == 0 && len(d.GlyphRemove) == 0
}

// observe sets *pending to v when it differs from committed and clears it
// otherwise.
func observe[T comparable](pending **T, committed, v T) {
	if v == committed {
		*pending = nil
		return
	}
	*pending = &v
}

// diffBounds compares the committed bounds with the current ones.
func diffBounds(committed, current *attr.Section) (BoundsChange, attr.Section) {
	switch {
	case committed == nil && current == nil:
		return BoundsUnchanged, attr.Section{}
	case current == nil:
		return BoundsRemoved, attr.Section{}
	case committed == nil || *committed != *current:
		return BoundsChanged, *current
	default:
		return BoundsUnchanged, attr.Section{}
	}
}

// diffLetters fills the letter fields of d with the changes from committed
// to current.
func diffLetters(d *Difference, committed, current map[LetterKey]Letter) {
	d.LetterAdd, d.LetterUpdate, d.LetterRemove = nil, nil, nil
	d.GlyphAdd, d.GlyphRemove = nil, nil

	for k, l := range current {
		old, ok := committed[k]
		switch {
		case !ok:
			setKey(&d.LetterAdd, k, l)
			setKey(&d.GlyphAdd, k, l.Glyph)
		case old.Glyph != l.Glyph:
			setKey(&d.LetterUpdate, k, l)
			setKey(&d.GlyphRemove, k, old.Glyph)
			setKey(&d.GlyphAdd, k, l.Glyph)
		case old != l:
			setKey(&d.LetterUpdate, k, l)
		}
	}
	for k, old := range committed {
		if _, ok := current[k]; !ok {
			setKey(&d.LetterRemove, k, struct{}{})
			setKey(&d.GlyphRemove, k, old.Glyph)
		}
	}
}

func setKey[V any](m *map[LetterKey]V, k LetterKey, v V) {
	if *m == nil {
		*m = make(map[LetterKey]V)
	}
	(*m)[k] = v
}
