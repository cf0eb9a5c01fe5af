package text

import "math"

// Descriptor locates a glyph bitmap inside the atlas buffer as
// [start, row size, rows], all in bytes. Coverage is one byte per pixel, so
// row size is the bitmap width.
type Descriptor struct {
	Parts [3]uint32
}

// MissingGlyph is the descriptor of glyphs that failed to rasterize. It
// covers no atlas bytes, so shaders draw nothing for it. Its start lies past
// any atlas offset, which keeps it apart from blank glyphs placed at 0.
var MissingGlyph = NewDescriptor(math.MaxUint32, 0, 0)

// NewDescriptor returns the descriptor of a rows x rowSize region at start.
func NewDescriptor(start, rowSize, rows uint32) Descriptor {
	return Descriptor{Parts: [3]uint32{start, rowSize, rows}}
}

func (d Descriptor) Start() uint32   { return d.Parts[0] }
func (d Descriptor) RowSize() uint32 { return d.Parts[1] }
func (d Descriptor) Rows() uint32    { return d.Parts[2] }

// Size returns the region size in bytes.
func (d Descriptor) Size() uint32 { return d.RowSize() * d.Rows() }

// End returns the first byte after the region.
func (d Descriptor) End() uint32 { return d.Start() + d.Size() }

// Missing reports whether d is MissingGlyph.
func (d Descriptor) Missing() bool { return d == MissingGlyph }
