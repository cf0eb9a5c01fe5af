package text

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"sync"

	gotext "github.com/go-text/typesetting/font"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FontID identifies a font in atlas keys.
type FontID uint64

// Metrics describes a rasterized glyph in pixels. BearingX and BearingY
// offset the bitmap's top-left corner from the pen position on the
// baseline; BearingY is negative above the baseline.
type Metrics struct {
	Width    int
	Height   int
	Advance  float32
	BearingX int
	BearingY int
}

// Bitmap is a rasterized glyph: Width*Height coverage bytes, row-major.
type Bitmap struct {
	Metrics
	Coverage []byte
}

// Font is the font backend consumed by the atlas and the layout code.
type Font interface {
	// ID returns a stable identifier for the font data.
	ID() FontID

	// Rasterize renders r at px pixels per em.
	Rasterize(r rune, px float32) (Bitmap, error)

	// Advance returns the horizontal advance of r in pixels, or 0 when the
	// font has no glyph for r.
	Advance(r rune, px float32) float32

	// Ascent returns the distance from the top of a line to the baseline.
	Ascent(px float32) float32

	// LineHeight returns the distance between consecutive baselines.
	LineHeight(px float32) float32
}

// OpenTypeFont is a Font over TrueType/OpenType data. Rasterization uses
// golang.org/x/image/font/opentype; coverage and advances come from the
// go-text/typesetting cmap and hmtx tables.
//
// OpenTypeFont is safe for concurrent use.
type OpenTypeFont struct {
	id   FontID
	font *opentype.Font

	mu    sync.Mutex
	cmap  *gotext.Face // NominalGlyph caches lookups and is not concurrency-safe
	upem  float32
	faces map[float32]xfont.Face
}

// ParseOpenType parses TTF/OTF data.
func ParseOpenType(data []byte) (*OpenTypeFont, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("text: failed to parse font: %w", err)
	}
	face, err := gotext.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("text: failed to parse font tables: %w", err)
	}
	h := fnv.New64a()
	_, _ = h.Write(data) // fnv.Write never returns an error

	return &OpenTypeFont{
		id:    FontID(h.Sum64()),
		font:  f,
		cmap:  face,
		upem:  float32(face.Upem()),
		faces: make(map[float32]xfont.Face),
	}, nil
}

// ID implements Font.
func (f *OpenTypeFont) ID() FontID { return f.id }

// Covers reports whether the font maps r to a glyph.
func (f *OpenTypeFont) Covers(r rune) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.cmap.NominalGlyph(r)
	return ok
}

// face returns the sized face for px. Callers hold f.mu.
func (f *OpenTypeFont) face(px float32) (xfont.Face, error) {
	if face, ok := f.faces[px]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: xfont.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	f.faces[px] = face
	return face, nil
}

// Rasterize implements Font.
func (f *OpenTypeFont) Rasterize(r rune, px float32) (Bitmap, error) {
	if px <= 0 {
		return Bitmap{}, ErrInvalidScale
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.cmap.NominalGlyph(r); !ok {
		return Bitmap{}, ErrGlyphNotCovered
	}
	face, err := f.face(px)
	if err != nil {
		return Bitmap{}, err
	}
	dr, mask, maskp, advance, ok := face.Glyph(fixed.Point26_6{}, r)
	if !ok {
		return Bitmap{}, ErrGlyphNotCovered
	}

	w, h := dr.Dx(), dr.Dy()
	b := Bitmap{Metrics: Metrics{
		Width:    w,
		Height:   h,
		Advance:  float32(advance) / 64,
		BearingX: dr.Min.X,
		BearingY: dr.Min.Y,
	}}
	if w == 0 || h == 0 || mask == nil {
		return b, nil
	}
	dst := image.NewAlpha(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), mask, maskp, draw.Src)
	b.Coverage = dst.Pix
	return b, nil
}

// Advance implements Font.
func (f *OpenTypeFont) Advance(r rune, px float32) float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	gid, ok := f.cmap.NominalGlyph(r)
	if !ok || f.upem == 0 {
		return 0
	}
	return f.cmap.HorizontalAdvance(gid) * px / f.upem
}

// Ascent implements Font.
func (f *OpenTypeFont) Ascent(px float32) float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	face, err := f.face(px)
	if err != nil {
		return px
	}
	return float32(face.Metrics().Ascent) / 64
}

// LineHeight implements Font.
func (f *OpenTypeFont) LineHeight(px float32) float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	face, err := f.face(px)
	if err != nil {
		return px
	}
	return float32(face.Metrics().Height) / 64
}

var _ Font = (*OpenTypeFont)(nil)
