package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/visualizer/gpu"
)

func loadGoRegular(t *testing.T) *OpenTypeFont {
	t.Helper()
	f, err := ParseOpenType(goregular.TTF)
	require.NoError(t, err)
	return f
}

func TestParseOpenType(t *testing.T) {
	_, err := ParseOpenType(nil)
	assert.ErrorIs(t, err, ErrEmptyFontData)

	_, err = ParseOpenType([]byte("not a font"))
	assert.Error(t, err)

	a := loadGoRegular(t)
	b := loadGoRegular(t)
	assert.Equal(t, a.ID(), b.ID())
	assert.True(t, a.Covers('A'))
	assert.False(t, a.Covers('\U0001F600'))
}

func TestOpenTypeRasterize(t *testing.T) {
	f := loadGoRegular(t)

	bm, err := f.Rasterize('A', 16)
	require.NoError(t, err)
	assert.Positive(t, bm.Width)
	assert.Positive(t, bm.Height)
	assert.Len(t, bm.Coverage, bm.Width*bm.Height)
	assert.Negative(t, bm.BearingY)
	assert.Positive(t, bm.Advance)

	covered := false
	for _, c := range bm.Coverage {
		if c > 0 {
			covered = true
			break
		}
	}
	assert.True(t, covered)

	_, err = f.Rasterize('\U0001F600', 16)
	assert.ErrorIs(t, err, ErrGlyphNotCovered)
	_, err = f.Rasterize('A', 0)
	assert.ErrorIs(t, err, ErrInvalidScale)
}

func TestOpenTypeMetrics(t *testing.T) {
	f := loadGoRegular(t)

	bm, err := f.Rasterize('M', 32)
	require.NoError(t, err)
	assert.InDelta(t, bm.Advance, f.Advance('M', 32), 1)
	assert.InDelta(t, 2*f.Advance('M', 16), f.Advance('M', 32), 0.01)
	assert.Zero(t, f.Advance('\U0001F600', 16))

	assert.Greater(t, f.LineHeight(20), f.Ascent(20))
	assert.Positive(t, f.Ascent(20))
}

func TestAtlasWithOpenTypeFont(t *testing.T) {
	d := gpu.NewMemoryDevice()
	a, err := NewAtlas(d, AtlasConfig{})
	require.NoError(t, err)
	f := loadGoRegular(t)

	da, err := a.Rasterize(f, GlyphRequest{Rune: 'A', Scale: 12})
	require.NoError(t, err)
	assert.Zero(t, da.Start())
	db, err := a.Rasterize(f, GlyphRequest{Rune: 'B', Scale: 12})
	require.NoError(t, err)
	assert.Equal(t, da.Size(), db.Start())

	_, err = a.Flush(d)
	require.NoError(t, err)
}

func TestOpenTypeFaceCachedPerSize(t *testing.T) {
	f := loadGoRegular(t)

	a, err := f.Rasterize('a', 14)
	require.NoError(t, err)
	b, err := f.Rasterize('a', 14)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	_, err = f.Rasterize('a', 28)
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Len(t, f.faces, 2)
}
