package text

import (
	"errors"
	"fmt"
)

// Sentinel errors for text package.
var (
	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("text: empty font data")

	// ErrGlyphNotCovered is returned when a font has no glyph for a rune.
	ErrGlyphNotCovered = errors.New("text: glyph not covered by font")

	// ErrInvalidScale is returned for non-positive glyph scales.
	ErrInvalidScale = errors.New("text: scale must be positive")

	// ErrAtlasFull is returned when the atlas would exceed 4 GiB.
	ErrAtlasFull = errors.New("text: atlas size overflow")
)

// RasterizationFailedError is returned when the font backend cannot
// rasterize a glyph. The glyph falls back to MissingGlyph.
type RasterizationFailedError struct {
	Rune   rune
	Reason error
}

func (e *RasterizationFailedError) Error() string {
	return fmt.Sprintf("text: rasterize %q: %v", e.Rune, e.Reason)
}

func (e *RasterizationFailedError) Unwrap() error {
	return e.Reason
}
