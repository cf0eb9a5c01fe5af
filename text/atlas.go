package text

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/gogpu/visualizer/gpu"
)

// Default atlas settings.
const (
	DefaultAtlasSize       = 64 << 10
	DefaultAtlasGrowth     = 64 << 10
	DefaultBitmapCacheSize = 256
)

// AtlasConfig configures an Atlas.
type AtlasConfig struct {
	// InitialSize is the starting GPU buffer size in bytes.
	InitialSize uint64

	// GrowthIncrement is the step the GPU buffer grows by.
	GrowthIncrement uint64

	// BitmapCacheSize bounds the bitmaps kept for evicted glyphs. Zero uses
	// DefaultBitmapCacheSize; a negative size keeps none.
	BitmapCacheSize int

	// Label is the GPU buffer label.
	Label string

	// Logger receives growth events. Nil disables logging.
	Logger *slog.Logger
}

func (c AtlasConfig) withDefaults() AtlasConfig {
	if c.InitialSize == 0 {
		c.InitialSize = DefaultAtlasSize
	}
	if c.GrowthIncrement == 0 {
		c.GrowthIncrement = DefaultAtlasGrowth
	}
	if c.BitmapCacheSize == 0 {
		c.BitmapCacheSize = DefaultBitmapCacheSize
	}
	if c.Label == "" {
		c.Label = "glyph-atlas"
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// GlyphKey identifies a rasterized glyph.
type GlyphKey struct {
	Font  FontID
	Rune  rune
	Scale float32
}

// GlyphRequest asks for a rune at a scale of a given font.
type GlyphRequest struct {
	Rune  rune
	Scale float32
}

// AtlasGlyph is a glyph resident in the atlas.
type AtlasGlyph struct {
	Descriptor Descriptor
	Metrics    Metrics
}

// span is a byte range [start, start+size) of the atlas.
type span struct {
	start, size uint32
}

func (s span) end() uint32 { return s.start + s.size }

// Atlas is a content-addressed rasterization cache. Glyph bitmaps are
// stored back to back in a CPU mirror and uploaded to one GPU storage
// buffer.
//
// Rasterizing a cached glyph returns its descriptor unchanged. Glyphs with
// no references are evicted by Collect; their regions are reused by later
// glyphs. The GPU buffer grows by recreation: Flush creates a larger buffer
// and uploads the whole mirror before any new region is written.
//
// Atlas is safe for concurrent use.
type Atlas struct {
	mu      sync.Mutex
	cfg     AtlasConfig
	device  gpu.Device
	data    []byte
	glyphs  map[GlyphKey]AtlasGlyph
	refs    *References[GlyphKey]
	free    []span
	dirty   []span
	buffer  gpu.Buffer
	evicted *bitmapCache
}

// NewAtlas creates an empty atlas and its GPU buffer.
func NewAtlas(device gpu.Device, cfg AtlasConfig) (*Atlas, error) {
	cfg = cfg.withDefaults()
	size := alignUp(cfg.InitialSize)
	buf, err := device.CreateBuffer(gpu.BufferDescriptor{Label: cfg.Label, Size: size, Usage: gpu.StorageUsage})
	if err != nil {
		return nil, fmt.Errorf("text: create atlas: %w", err)
	}
	return &Atlas{
		cfg:     cfg,
		device:  device,
		glyphs:  make(map[GlyphKey]AtlasGlyph),
		refs:    NewReferences[GlyphKey](),
		buffer:  buf,
		evicted: newBitmapCache(cfg.BitmapCacheSize),
	}, nil
}

// Rasterize returns the descriptor of req in font f, rasterizing and
// appending it on first use. On backend failure it returns MissingGlyph and
// a *RasterizationFailedError.
func (a *Atlas) Rasterize(f Font, req GlyphRequest) (Descriptor, error) {
	g, err := a.rasterize(f, req)
	return g.Descriptor, err
}

// Acquire rasterizes req like Rasterize and adds a reference to it. Failed
// glyphs are not referenced.
func (a *Atlas) Acquire(f Font, req GlyphRequest) (AtlasGlyph, error) {
	g, err := a.rasterize(f, req)
	if err != nil {
		return g, err
	}
	a.mu.Lock()
	a.refs.Increment(GlyphKey{Font: f.ID(), Rune: req.Rune, Scale: req.Scale})
	a.mu.Unlock()
	return g, nil
}

// Release drops a reference to a glyph and returns the remaining count.
func (a *Atlas) Release(key GlyphKey) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refs.Decrement(key)
}

// References returns the reference count of key.
func (a *Atlas) References(key GlyphKey) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refs.Count(key)
}

// Glyph returns the resident glyph for key.
func (a *Atlas) Glyph(key GlyphKey) (AtlasGlyph, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.glyphs[key]
	return g, ok
}

func (a *Atlas) rasterize(f Font, req GlyphRequest) (AtlasGlyph, error) {
	key := GlyphKey{Font: f.ID(), Rune: req.Rune, Scale: req.Scale}

	a.mu.Lock()
	defer a.mu.Unlock()

	if g, ok := a.glyphs[key]; ok {
		return g, nil
	}

	bitmap, ok := a.evicted.Take(key)
	if !ok {
		var err error
		if req.Scale <= 0 {
			err = ErrInvalidScale
		} else {
			bitmap, err = f.Rasterize(req.Rune, req.Scale)
		}
		if err != nil {
			return AtlasGlyph{Descriptor: MissingGlyph}, &RasterizationFailedError{Rune: req.Rune, Reason: err}
		}
	}
	size := uint64(bitmap.Width) * uint64(bitmap.Height)
	if size != uint64(len(bitmap.Coverage)) {
		return AtlasGlyph{Descriptor: MissingGlyph}, &RasterizationFailedError{
			Rune:   req.Rune,
			Reason: fmt.Errorf("bitmap is %d bytes, want %dx%d", len(bitmap.Coverage), bitmap.Width, bitmap.Height),
		}
	}

	start, err := a.alloc(uint32(size))
	if err != nil {
		return AtlasGlyph{Descriptor: MissingGlyph}, err
	}
	copy(a.data[start:], bitmap.Coverage)
	if size > 0 {
		a.dirty = append(a.dirty, span{start: start, size: uint32(size)})
	}

	g := AtlasGlyph{
		Descriptor: NewDescriptor(start, uint32(bitmap.Width), uint32(bitmap.Height)),
		Metrics:    bitmap.Metrics,
	}
	a.glyphs[key] = g
	return g, nil
}

// alloc reserves size bytes, reusing the first free region large enough
// and appending otherwise.
func (a *Atlas) alloc(size uint32) (uint32, error) {
	if size > 0 {
		for i, s := range a.free {
			if s.size < size {
				continue
			}
			start := s.start
			if s.size == size {
				a.free = append(a.free[:i], a.free[i+1:]...)
			} else {
				a.free[i] = span{start: s.start + size, size: s.size - size}
			}
			return start, nil
		}
	}
	start := uint64(len(a.data))
	if start+uint64(size) > math.MaxUint32 {
		return 0, ErrAtlasFull
	}
	a.data = append(a.data, make([]byte, size)...)
	return uint32(start), nil
}

// release returns s to the free list, merging it with adjacent regions.
func (a *Atlas) release(s span) {
	if s.size == 0 {
		return
	}
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].start >= s.start })
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = s

	if i+1 < len(a.free) && a.free[i].end() == a.free[i+1].start {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].end() == a.free[i].start {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
}

// Collect evicts every glyph without references and returns how many were
// evicted. Their bitmaps stay in a bounded cache.
func (a *Atlas) Collect() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for key, g := range a.glyphs {
		if a.refs.Count(key) > 0 {
			continue
		}
		d := g.Descriptor
		coverage := make([]byte, d.Size())
		copy(coverage, a.data[d.Start():d.End()])
		a.evicted.Put(key, Bitmap{Metrics: g.Metrics, Coverage: coverage})
		a.release(span{start: d.Start(), size: d.Size()})
		delete(a.glyphs, key)
		n++
	}
	return n
}

// Flush uploads pending bitmap bytes and returns the number of queue writes
// issued. When the mirror outgrew the GPU buffer, the buffer is recreated
// and the whole mirror uploaded in one write.
func (a *Atlas) Flush(queue gpu.Queue) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.dirty) == 0 {
		return 0, nil
	}
	need := alignUp(uint64(len(a.data)))
	if need > a.buffer.Size() {
		if err := a.grow(queue, need); err != nil {
			return 0, err
		}
		return 1, nil
	}

	sort.Slice(a.dirty, func(i, j int) bool { return a.dirty[i].start < a.dirty[j].start })
	writes := 0
	for i := 0; i < len(a.dirty); {
		start := uint64(a.dirty[i].start) &^ (gpu.WriteAlignment - 1)
		end := alignUp(uint64(a.dirty[i].end()))
		i++
		for i < len(a.dirty) && uint64(a.dirty[i].start)&^(gpu.WriteAlignment-1) <= end {
			end = max(end, alignUp(uint64(a.dirty[i].end())))
			i++
		}
		if err := queue.WriteBuffer(a.buffer, start, a.padded(start, end)); err != nil {
			return writes, fmt.Errorf("text: upload atlas [%d,%d): %w", start, end, err)
		}
		writes++
	}
	a.dirty = a.dirty[:0]
	return writes, nil
}

// grow replaces the GPU buffer with one of at least need bytes holding the
// whole mirror.
func (a *Atlas) grow(queue gpu.Queue, need uint64) error {
	size := a.buffer.Size()
	for size < need {
		size += alignUp(a.cfg.GrowthIncrement)
	}
	buf, err := a.device.CreateBuffer(gpu.BufferDescriptor{Label: a.cfg.Label, Size: size, Usage: gpu.StorageUsage})
	if err != nil {
		return fmt.Errorf("text: grow atlas to %d: %w", size, err)
	}
	if err := queue.WriteBuffer(buf, 0, a.padded(0, need)); err != nil {
		buf.Release()
		return fmt.Errorf("text: upload atlas: %w", err)
	}
	a.cfg.Logger.Debug("glyph atlas grown",
		slog.Uint64("from", a.buffer.Size()),
		slog.Uint64("to", size),
		slog.Int("used", len(a.data)))
	a.buffer.Release()
	a.buffer = buf
	a.dirty = a.dirty[:0]
	return nil
}

// padded returns data[start:end], zero-extended past the mirror's end.
func (a *Atlas) padded(start, end uint64) []byte {
	if end <= uint64(len(a.data)) {
		return a.data[start:end]
	}
	out := make([]byte, end-start)
	copy(out, a.data[start:])
	return out
}

// Buffer returns the GPU buffer. It changes when Flush grows the atlas.
func (a *Atlas) Buffer() gpu.Buffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffer
}

// Len returns the CPU mirror length in bytes.
func (a *Atlas) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.data)
}

// Glyphs returns the number of resident glyphs.
func (a *Atlas) Glyphs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.glyphs)
}

// ReleaseBuffer frees the GPU buffer.
func (a *Atlas) ReleaseBuffer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffer.Release()
}

func alignUp(n uint64) uint64 {
	return (n + gpu.WriteAlignment - 1) &^ (gpu.WriteAlignment - 1)
}
