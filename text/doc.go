// Package text turns strings into GPU glyph instances.
//
// The pipeline follows a separation of concerns:
//
//   - Font: rasterizes single runes at a pixel size (default: OpenTypeFont,
//     backed by golang.org/x/image and go-text/typesetting)
//   - Place: lays runes out into lines of letter cells
//   - Cull: drops letters outside the visible and bounding sections
//   - Atlas: content-addressed rasterization cache over one shared GPU buffer
//
// # Atlas layout
//
// Glyph coverage bitmaps are stored one byte per pixel, row-major, in a
// single buffer. A [Descriptor] locates a bitmap as (start, row size, rows).
// Shaders read the buffer as a storage array.
//
// # Example usage
//
//	f, err := text.ParseOpenType(goregular.TTF)
//	if err != nil {
//	    return err
//	}
//	atlas, err := text.NewAtlas(device, text.AtlasConfig{})
//	if err != nil {
//	    return err
//	}
//	desc, err := atlas.Rasterize(f, text.GlyphRequest{Rune: 'A', Scale: 12})
//	var rf *text.RasterizationFailedError
//	if errors.As(err, &rf) {
//	    // desc is MissingGlyph
//	}
//	_, err = atlas.Flush(device)
package text
