// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/visualizer/attr"
	"github.com/gogpu/visualizer/extract"
	"github.com/gogpu/visualizer/gpu"
	"github.com/gogpu/visualizer/instance"
	"github.com/gogpu/visualizer/text"
)

// Unbounded is the clip section of glyphs whose text has no bounds.
var Unbounded = attr.Section{
	Position: attr.Position{X: -math.MaxFloat32 / 2, Y: -math.MaxFloat32 / 2},
	Area:     attr.Area{Width: math.MaxFloat32, Height: math.MaxFloat32},
}

// GlyphInstance identifies the instance of one letter of one text.
type GlyphInstance[K comparable] struct {
	Entity K
	Letter extract.LetterKey
}

// TextConfig configures a TextRenderer.
type TextConfig struct {
	Instances instance.Config
	Atlas     text.AtlasConfig
	Logger    *slog.Logger
}

// heldGlyph is the atlas glyph a letter currently draws.
type heldGlyph struct {
	key   text.GlyphKey
	glyph text.AtlasGlyph

	// held reports whether the letter owns a reference to key. Letters
	// drawing the missing glyph own none.
	held bool
}

type textEntity struct {
	snapshot extract.Snapshot
	glyphs   map[extract.LetterKey]heldGlyph
}

// TextRenderer draws the letters of texts as instances sampling a shared
// glyph atlas. Each letter references its atlas glyph while it is live;
// glyphs without references are evicted on Flush.
type TextRenderer[K comparable] struct {
	font  text.Font
	atlas *text.Atlas
	coord *instance.Coordinator[GlyphInstance[K]]
	queue gpu.Queue
	log   *slog.Logger

	position   *instance.AttributeBuffer[attr.Position]
	area       *instance.AttributeBuffer[attr.Area]
	color      *instance.AttributeBuffer[attr.Color]
	depth      *instance.AttributeBuffer[attr.Depth]
	descriptor *instance.AttributeBuffer[text.Descriptor]
	clip       *instance.AttributeBuffer[attr.Section]

	entities map[K]*textEntity
	dirty    map[GlyphInstance[K]]fields
}

// NewTextRenderer creates a text renderer drawing with font on backend.
func NewTextRenderer[K comparable](backend gpu.Backend, font text.Font, label string, cfg TextConfig) (*TextRenderer[K], error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Instances.Logger == nil {
		cfg.Instances.Logger = cfg.Logger
	}
	if cfg.Atlas.Logger == nil {
		cfg.Atlas.Logger = cfg.Logger
	}
	if cfg.Atlas.Label == "" {
		cfg.Atlas.Label = label + ".atlas"
	}
	atlas, err := text.NewAtlas(backend, cfg.Atlas)
	if err != nil {
		return nil, fmt.Errorf("render: %s: %w", label, err)
	}

	coord := instance.NewCoordinator[GlyphInstance[K]](backend, label, cfg.Instances)
	reg := coord.Registry()
	r := &TextRenderer[K]{
		font:       font,
		atlas:      atlas,
		coord:      coord,
		queue:      backend,
		log:        cfg.Logger.With("renderer", label),
		position:   register[attr.Position](reg, &err, instance.KindPosition, gputypes.VertexFormatFloat32x2),
		area:       register[attr.Area](reg, &err, instance.KindArea, gputypes.VertexFormatFloat32x2),
		color:      register[attr.Color](reg, &err, instance.KindColor, gputypes.VertexFormatFloat32x4),
		depth:      register[attr.Depth](reg, &err, instance.KindDepth, gputypes.VertexFormatFloat32),
		descriptor: register[text.Descriptor](reg, &err, instance.KindDescriptor, gputypes.VertexFormatUint32x3),
		clip:       register[attr.Section](reg, &err, instance.KindClip, gputypes.VertexFormatFloat32x4),
		entities:   make(map[K]*textEntity),
		dirty:      make(map[GlyphInstance[K]]fields),
	}
	if err != nil {
		coord.Release()
		atlas.ReleaseBuffer()
		return nil, fmt.Errorf("render: %s: %w", label, err)
	}
	return r, nil
}

// Prepare applies the structural changes of ext. Letters of removed texts
// free their slots and glyph references before letters of new texts
// acquire theirs; then every buffer grows if needed.
func (r *TextRenderer[K]) Prepare(ext extract.Extraction[K]) error {
	for key := range ext.Removed {
		if err := r.removeEntity(key); err != nil {
			return err
		}
	}
	for key, snap := range ext.Added {
		if err := r.removeEntity(key); err != nil {
			return err
		}
		e := &textEntity{
			snapshot: snap.Clone(),
			glyphs:   make(map[extract.LetterKey]heldGlyph, len(snap.Letters)),
		}
		r.entities[key] = e
		for lk, l := range snap.Letters {
			r.acquire(key, e, lk, l.Glyph)
			gi := GlyphInstance[K]{Entity: key, Letter: lk}
			if _, _, err := r.coord.Insert(gi); err != nil {
				return fmt.Errorf("render: insert letter %d: %w", lk, err)
			}
			r.dirty[gi] = allFields
		}
	}
	for key, d := range ext.Differences {
		e, ok := r.entities[key]
		if !ok {
			r.log.Warn("difference for unknown text dropped", slog.Any("key", key))
			continue
		}
		if err := r.applyDifference(key, e, d); err != nil {
			return err
		}
	}
	return r.coord.Prepare()
}

func (r *TextRenderer[K]) applyDifference(key K, e *textEntity, d extract.Difference) error {
	e.snapshot.Apply(d)

	for lk := range d.LetterRemove {
		if _, err := r.coord.Remove(GlyphInstance[K]{Entity: key, Letter: lk}); err != nil && !errors.Is(err, instance.ErrUnknownKey) {
			return fmt.Errorf("render: remove letter %d: %w", lk, err)
		}
		r.release(e, lk)
		delete(r.dirty, GlyphInstance[K]{Entity: key, Letter: lk})
	}
	for lk := range d.GlyphRemove {
		r.release(e, lk)
	}
	for lk, g := range d.GlyphAdd {
		r.acquire(key, e, lk, g)
		r.dirty[GlyphInstance[K]{Entity: key, Letter: lk}] |= fieldPosition | fieldArea | fieldDescriptor
	}
	for lk := range d.LetterAdd {
		gi := GlyphInstance[K]{Entity: key, Letter: lk}
		if _, _, err := r.coord.Insert(gi); err != nil {
			return fmt.Errorf("render: insert letter %d: %w", lk, err)
		}
		r.dirty[gi] = allFields
	}
	for lk := range d.LetterUpdate {
		r.dirty[GlyphInstance[K]{Entity: key, Letter: lk}] |= fieldPosition | fieldColor
	}

	// Entity-level changes reach every letter. Area and layer do not apply
	// to glyphs; color is resolved per letter during placement.
	if f := entityFields(d) & (fieldPosition | fieldDepth | fieldClip); f != 0 {
		for lk := range e.snapshot.Letters {
			r.dirty[GlyphInstance[K]{Entity: key, Letter: lk}] |= f
		}
	}
	return nil
}

// acquire points letter lk of e at glyph g. A glyph the atlas cannot
// rasterize is drawn as text.MissingGlyph.
func (r *TextRenderer[K]) acquire(key K, e *textEntity, lk extract.LetterKey, g extract.Glyph) {
	gk := text.GlyphKey{Font: r.font.ID(), Rune: g.Rune, Scale: g.Scale}
	ag, err := r.atlas.Acquire(r.font, text.GlyphRequest{Rune: g.Rune, Scale: g.Scale})
	if err != nil {
		r.log.Warn("glyph rasterization failed, drawing missing glyph",
			slog.Any("key", key),
			slog.Any("letter", lk),
			slog.String("rune", string(g.Rune)),
			slog.Any("error", err))
		e.glyphs[lk] = heldGlyph{key: gk, glyph: text.AtlasGlyph{Descriptor: text.MissingGlyph}}
		return
	}
	e.glyphs[lk] = heldGlyph{key: gk, glyph: ag, held: true}
}

// release drops the glyph reference of letter lk of e.
func (r *TextRenderer[K]) release(e *textEntity, lk extract.LetterKey) {
	h, ok := e.glyphs[lk]
	if !ok {
		return
	}
	if h.held {
		r.atlas.Release(h.key)
	}
	delete(e.glyphs, lk)
}

// removeEntity frees every letter of key.
func (r *TextRenderer[K]) removeEntity(key K) error {
	e, ok := r.entities[key]
	if !ok {
		return nil
	}
	for lk := range e.glyphs {
		gi := GlyphInstance[K]{Entity: key, Letter: lk}
		if _, err := r.coord.Remove(gi); err != nil && !errors.Is(err, instance.ErrUnknownKey) {
			return fmt.Errorf("render: remove letter %d: %w", lk, err)
		}
		r.release(e, lk)
		delete(r.dirty, gi)
	}
	delete(r.entities, key)
	return nil
}

// Write stores the changed attributes of every dirty letter in the CPU
// mirrors.
func (r *TextRenderer[K]) Write() error {
	for gi, f := range r.dirty {
		i, ok := r.coord.Index(gi)
		if !ok {
			continue
		}
		e, ok := r.entities[gi.Entity]
		if !ok {
			continue
		}
		l, ok := e.snapshot.Letters[gi.Letter]
		if !ok {
			continue
		}
		g := e.glyphs[gi.Letter].glyph
		clip := Unbounded
		if e.snapshot.Bounds != nil {
			clip = *e.snapshot.Bounds
		}
		err := errors.Join(
			writeField(r.position, f, fieldPosition, i, r.glyphOrigin(e.snapshot.Position, l, g.Metrics)),
			writeField(r.area, f, fieldArea, i, attr.Area{Width: float32(g.Metrics.Width), Height: float32(g.Metrics.Height)}),
			writeField(r.color, f, fieldColor, i, l.Color),
			writeField(r.depth, f, fieldDepth, i, e.snapshot.Depth),
			writeField(r.descriptor, f, fieldDescriptor, i, g.Descriptor),
			writeField(r.clip, f, fieldClip, i, clip),
		)
		if err != nil {
			return fmt.Errorf("render: write letter %d: %w", gi.Letter, err)
		}
	}
	clear(r.dirty)
	return nil
}

// glyphOrigin returns the top-left corner of the glyph bitmap of letter l of
// a text drawn at origin. The bitmap hangs from the baseline, one ascent
// below the top of the letter cell.
func (r *TextRenderer[K]) glyphOrigin(origin attr.Position, l extract.Letter, m text.Metrics) attr.Position {
	baseline := r.font.Ascent(l.Glyph.Scale)
	return origin.Add(l.Position).Add(attr.Position{
		X: float32(m.BearingX),
		Y: baseline + float32(m.BearingY),
	})
}

// Flush evicts unreferenced glyphs, uploads new atlas bytes and written
// attributes, and returns the number of queue writes issued.
func (r *TextRenderer[K]) Flush() (int, error) {
	if n := r.atlas.Collect(); n > 0 {
		r.log.Debug("glyphs evicted", slog.Int("count", n), slog.Int("resident", r.atlas.Glyphs()))
	}
	atlasWrites, err := r.atlas.Flush(r.queue)
	if err != nil {
		return atlasWrites, err
	}
	n, err := r.coord.Flush()
	return atlasWrites + n, err
}

// Apply runs Prepare and Write for a single extraction.
func (r *TextRenderer[K]) Apply(ext extract.Extraction[K]) error {
	if err := r.Prepare(ext); err != nil {
		return err
	}
	return r.Write()
}

// Index returns the slot of a letter.
func (r *TextRenderer[K]) Index(entity K, letter extract.LetterKey) (instance.Index, bool) {
	return r.coord.Index(GlyphInstance[K]{Entity: entity, Letter: letter})
}

// Count returns the number of live letters.
func (r *TextRenderer[K]) Count() uint32 { return r.coord.Count() }

// Texts returns the number of live texts.
func (r *TextRenderer[K]) Texts() int { return len(r.entities) }

// Atlas returns the glyph atlas.
func (r *TextRenderer[K]) Atlas() *text.Atlas { return r.atlas }

// Registry returns the attribute buffers.
func (r *TextRenderer[K]) Registry() *instance.Registry { return r.coord.Registry() }

// Layouts returns the per-instance vertex buffer layouts.
func (r *TextRenderer[K]) Layouts() []gputypes.VertexBufferLayout {
	return r.coord.Registry().Layouts()
}

// Release frees the GPU buffers and the atlas buffer.
func (r *TextRenderer[K]) Release() {
	r.coord.Release()
	r.atlas.ReleaseBuffer()
}
