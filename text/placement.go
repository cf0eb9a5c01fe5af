package text

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/gogpu/visualizer/attr"
	"github.com/gogpu/visualizer/extract"
)

// PlacedGlyph is a rune laid out in a letter cell. Offset is the cell's
// top-left corner relative to the text origin; the cell spans the rune's
// advance and one line height.
type PlacedGlyph struct {
	Key    extract.LetterKey
	Rune   rune
	Offset attr.Position
	Cell   attr.Area
}

// Section returns the cell of g when the text is drawn at origin.
func (g PlacedGlyph) Section(origin attr.Position) attr.Section {
	return attr.Section{Position: origin.Add(g.Offset), Area: g.Cell}
}

// Place lays s out in left-to-right lines at px pixels per em. Lines break
// at '\n'. The text is NFC-normalized first and letter keys are byte
// offsets into the normalized string. Whitespace advances the pen without
// producing a letter.
func Place(f Font, s string, px float32) []PlacedGlyph {
	if s == "" || px <= 0 {
		return nil
	}
	s = norm.NFC.String(s)
	lineHeight := f.LineHeight(px)

	placed := make([]PlacedGlyph, 0, len(s))
	var x, y float32
	for i, r := range s {
		if r == '\n' {
			x = 0
			y += lineHeight
			continue
		}
		advance := f.Advance(r, px)
		if advance == 0 {
			advance = fallbackAdvance(r, px)
		}
		if !unicode.IsSpace(r) && unicode.IsGraphic(r) {
			placed = append(placed, PlacedGlyph{
				Key:    extract.LetterKey(i),
				Rune:   r,
				Offset: attr.Position{X: x, Y: y},
				Cell:   attr.Area{Width: advance, Height: lineHeight},
			})
		}
		x += advance
	}
	return placed
}

// fallbackAdvance sizes runes the font does not cover: a full em for East
// Asian wide and fullwidth runes, half an em otherwise.
func fallbackAdvance(r rune, px float32) float32 {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return px
	default:
		return px / 2
	}
}

// Cull returns the glyphs whose cells overlap both the visible section and
// the bounds, when the text is drawn at origin. Nil sections do not cull.
func Cull(placed []PlacedGlyph, origin attr.Position, visible, bounds *attr.Section) []PlacedGlyph {
	var clip *attr.Section
	switch {
	case visible != nil && bounds != nil:
		s, ok := visible.Intersection(*bounds)
		if !ok {
			return nil
		}
		clip = &s
	case visible != nil:
		clip = visible
	case bounds != nil:
		clip = bounds
	default:
		return placed
	}

	out := make([]PlacedGlyph, 0, len(placed))
	for _, g := range placed {
		if g.Section(origin).Overlaps(*clip) {
			out = append(out, g)
		}
	}
	return out
}

// Letters converts placed glyphs into the letters of a text at scale.
// Colors in overrides replace color for individual letters.
func Letters(placed []PlacedGlyph, scale float32, color attr.Color, overrides map[extract.LetterKey]attr.Color) map[extract.LetterKey]extract.Letter {
	letters := make(map[extract.LetterKey]extract.Letter, len(placed))
	for _, g := range placed {
		c := color
		if o, ok := overrides[g.Key]; ok {
			c = o
		}
		letters[g.Key] = extract.Letter{
			Glyph:    extract.Glyph{Rune: g.Rune, Scale: scale},
			Position: g.Offset,
			Area:     g.Cell,
			Color:    c,
		}
	}
	return letters
}
