package visualizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/visualizer/attr"
	"github.com/gogpu/visualizer/gpu"
	"github.com/gogpu/visualizer/instance"
	"github.com/gogpu/visualizer/text"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(WithBackend(gpu.NewMemoryDevice()))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func frame(t *testing.T, e *Engine) FrameStats {
	t.Helper()
	stats, err := e.Frame()
	require.NoError(t, err)
	return stats
}

func panelPosition(t *testing.T, e *Engine, id Entity) attr.Position {
	t.Helper()
	i, ok := e.Panels().Index(id)
	require.True(t, ok, "panel %v has no instance", id)
	buf, ok := instance.Lookup[attr.Position](e.Panels().Registry(), instance.KindPosition)
	require.True(t, ok)
	p, err := buf.Read(i)
	require.NoError(t, err)
	return p
}

func TestEnginePanelLifecycle(t *testing.T) {
	e := newEngine(t)
	id := e.SpawnPanel(Panel{
		Position: attr.Position{X: 1, Y: 2},
		Area:     attr.Area{Width: 10, Height: 5},
		Color:    attr.White,
	})
	assert.Equal(t, uint32(0), e.Panels().Count(), "nothing drawn before a frame")

	stats := frame(t, e)
	assert.Equal(t, uint64(1), stats.Frame)
	assert.Equal(t, uint32(1), stats.Panels)
	assert.Positive(t, stats.Writes)
	assert.Equal(t, attr.Position{X: 1, Y: 2}, panelPosition(t, e, id))

	require.NoError(t, e.SetPosition(id, attr.Position{X: 7, Y: 8}))
	stats = frame(t, e)
	assert.Equal(t, 1, stats.Writes, "only the position buffer changes")
	assert.Equal(t, attr.Position{X: 7, Y: 8}, panelPosition(t, e, id))

	stats = frame(t, e)
	assert.Zero(t, stats.Writes, "an unchanged world writes nothing")

	require.NoError(t, e.Despawn(id))
	stats = frame(t, e)
	assert.Zero(t, stats.Panels)
	assert.False(t, e.Alive(id))
	assert.ErrorIs(t, e.SetPosition(id, attr.Position{}), ErrUnknownEntity)
	assert.ErrorIs(t, e.Despawn(id), ErrUnknownEntity)
}

func TestEngineSetBackAndForthWritesNothing(t *testing.T) {
	e := newEngine(t)
	id := e.SpawnPanel(Panel{Color: attr.White})
	frame(t, e)

	require.NoError(t, e.SetColor(id, attr.RGBA(1, 0, 0, 1)))
	require.NoError(t, e.SetColor(id, attr.White))
	stats := frame(t, e)
	assert.Zero(t, stats.Writes)
}

func TestEngineVisibility(t *testing.T) {
	e := newEngine(t)
	a := e.SpawnPanel(Panel{Position: attr.Position{X: 1}})
	b := e.SpawnPanel(Panel{Position: attr.Position{X: 2}})
	require.Equal(t, uint32(2), frame(t, e).Panels)

	require.NoError(t, e.SetVisible(a, false))
	stats := frame(t, e)
	assert.Equal(t, uint32(1), stats.Panels)
	_, ok := e.Panels().Index(a)
	assert.False(t, ok)
	assert.Equal(t, attr.Position{X: 2}, panelPosition(t, e, b))

	require.NoError(t, e.SetPosition(a, attr.Position{X: 9}))
	require.NoError(t, e.SetVisible(a, true))
	stats = frame(t, e)
	assert.Equal(t, uint32(2), stats.Panels)
	assert.Equal(t, attr.Position{X: 9}, panelPosition(t, e, a), "shown with the values set while hidden")

	// Hidden and shown again between frames is no change at all.
	require.NoError(t, e.SetVisible(b, false))
	require.NoError(t, e.SetVisible(b, true))
	stats = frame(t, e)
	assert.Equal(t, uint32(2), stats.Panels)
	assert.Zero(t, stats.Writes)
}

func TestEngineSpawnHiddenIsNotDrawn(t *testing.T) {
	e := newEngine(t)
	id := e.SpawnPanel(Panel{})
	require.NoError(t, e.SetVisible(id, false))
	assert.Zero(t, frame(t, e).Panels)
}

func TestEngineUpdatesQueueUntilRender(t *testing.T) {
	e := newEngine(t)
	a := e.SpawnPanel(Panel{Position: attr.Position{X: 1}})
	require.NoError(t, e.Update())
	b := e.SpawnPanel(Panel{Position: attr.Position{X: 2}})
	require.NoError(t, e.SetPosition(a, attr.Position{X: 3}))
	require.NoError(t, e.Update())
	assert.Zero(t, e.Panels().Count(), "the render stage has not run")

	stats, err := e.Render()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Frame)
	assert.Equal(t, uint32(2), stats.Panels)
	assert.Equal(t, attr.Position{X: 3}, panelPosition(t, e, a))
	assert.Equal(t, attr.Position{X: 2}, panelPosition(t, e, b))
}

func TestEngineText(t *testing.T) {
	e := newEngine(t)
	id := e.SpawnText(Label{Text: "Hi there", Color: attr.White})
	stats := frame(t, e)
	assert.Equal(t, uint32(7), stats.Letters, "spaces produce no letter")
	assert.Equal(t, 1, e.Texts().Texts())
	assert.Positive(t, e.Texts().Atlas().Len())

	require.NoError(t, e.SetText(id, "Hi"))
	assert.Equal(t, uint32(2), frame(t, e).Letters)

	red := attr.RGBA(1, 0, 0, 1)
	require.NoError(t, e.SetLetterColor(id, 1, red))
	stats = frame(t, e)
	i, ok := e.Texts().Index(id, 1)
	require.True(t, ok)
	colors, ok := instance.Lookup[attr.Color](e.Texts().Registry(), instance.KindColor)
	require.True(t, ok)
	c, err := colors.Read(i)
	require.NoError(t, err)
	assert.Equal(t, red, c)
	assert.Equal(t, 2, stats.Writes, "an updated letter rewrites its position and color")

	require.NoError(t, e.Despawn(id))
	stats = frame(t, e)
	assert.Zero(t, stats.Letters)
	assert.Zero(t, e.Texts().Texts())
	assert.Zero(t, e.Texts().Atlas().Glyphs(), "unreferenced glyphs are evicted")
}

func TestEngineTextSetters(t *testing.T) {
	e := newEngine(t)
	p := e.SpawnPanel(Panel{})
	txt := e.SpawnText(Label{Text: "x"})

	assert.ErrorIs(t, e.SetText(p, "x"), ErrNotText)
	assert.ErrorIs(t, e.SetBounds(p, nil), ErrNotText)
	assert.ErrorIs(t, e.SetLetterColor(p, 0, attr.White), ErrNotText)
	assert.ErrorIs(t, e.SetScale(txt, 0), ErrInvalidConfig)
	require.NoError(t, e.SetScale(txt, 24))
	assert.Equal(t, uint32(1), frame(t, e).Letters)
}

func TestEngineViewportCulling(t *testing.T) {
	e := newEngine(t)
	e.SpawnText(Label{Text: "aaaa", Color: attr.White})
	require.Equal(t, uint32(4), frame(t, e).Letters)

	e.SetViewport(&attr.Section{
		Position: attr.Position{X: 1000, Y: 1000},
		Area:     attr.Area{Width: 10, Height: 10},
	})
	assert.Zero(t, frame(t, e).Letters)

	e.SetViewport(nil)
	assert.Equal(t, uint32(4), frame(t, e).Letters)
}

func TestEngineBounds(t *testing.T) {
	e := newEngine(t)
	far := attr.Section{
		Position: attr.Position{X: -500, Y: -500},
		Area:     attr.Area{Width: 10, Height: 10},
	}
	id := e.SpawnText(Label{Text: "ab", Bounds: &far})
	assert.Zero(t, frame(t, e).Letters)

	require.NoError(t, e.SetBounds(id, nil))
	assert.Equal(t, uint32(2), frame(t, e).Letters)

	near := attr.Section{Area: attr.Area{Width: 1000, Height: 1000}}
	require.NoError(t, e.SetBounds(id, &near))
	stats := frame(t, e)
	assert.Equal(t, uint32(2), stats.Letters)
	assert.Equal(t, 1, stats.Writes, "only the clip buffer changes")
}

var errDeviceLost = errors.New("device lost")

type failingBackend struct {
	*gpu.MemoryDevice
}

func (failingBackend) WriteBuffer(gpu.Buffer, uint64, []byte) error { return errDeviceLost }

func TestEngineFrameError(t *testing.T) {
	e, err := New(WithBackend(failingBackend{gpu.NewMemoryDevice()}))
	require.NoError(t, err)
	defer e.Close()

	e.SpawnPanel(Panel{})
	_, err = e.Frame()
	assert.ErrorIs(t, err, errDeviceLost)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text.Scale = 0
	_, err := New(WithConfig(cfg))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewMissingFontFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text.FontPath = t.TempDir() + "/missing.ttf"
	_, err := New(WithConfig(cfg))
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	defer e.Close()
	assert.IsType(t, &gpu.MemoryDevice{}, e.Backend())
	ft, ok := e.Font().(*text.OpenTypeFont)
	require.True(t, ok)
	assert.True(t, ft.Covers('A'))
}
