package visualizer

import (
	"github.com/gogpu/visualizer/attr"
	"github.com/gogpu/visualizer/extract"
)

// SpawnPanel creates a panel. It is drawn from the next frame on.
func (e *Engine) SpawnPanel(p Panel) Entity {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.world.Spawn()
	e.positions.Set(id, p.Position)
	e.areas.Set(id, p.Area)
	e.colors.Set(id, p.Color)
	e.depths.Set(id, p.Depth)
	e.layers.Set(id, p.Layer)
	e.spawned[id] = struct{}{}
	return id
}

// SpawnText creates a text. It is drawn from the next frame on.
func (e *Engine) SpawnText(l Label) Entity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l.Scale <= 0 {
		l.Scale = e.cfg.Text.Scale
	}
	id := e.world.Spawn()
	e.positions.Set(id, l.Position)
	e.colors.Set(id, l.Color)
	e.depths.Set(id, l.Depth)
	e.texts.Set(id, Text{Value: l.Text, Scale: l.Scale})
	if l.Bounds != nil {
		e.bounds.Set(id, *l.Bounds)
	}
	e.spawned[id] = struct{}{}
	return id
}

// Despawn removes an entity at the next frame.
func (e *Engine) Despawn(id Entity) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.world.Alive(id) {
		return ErrUnknownEntity
	}
	e.world.Despawn(id)
	return nil
}

// Alive reports whether id is a live entity.
func (e *Engine) Alive(id Entity) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.Alive(id)
}

// SetPosition moves an entity.
func (e *Engine) SetPosition(id Entity, p attr.Position) error {
	return e.set(id, func() { e.positions.Set(id, p) })
}

// SetArea resizes a panel.
func (e *Engine) SetArea(id Entity, a attr.Area) error {
	return e.set(id, func() { e.areas.Set(id, a) })
}

// SetColor recolors an entity. For texts it is the color of letters
// without an override.
func (e *Engine) SetColor(id Entity, c attr.Color) error {
	return e.set(id, func() { e.colors.Set(id, c) })
}

// SetDepth changes the depth of an entity.
func (e *Engine) SetDepth(id Entity, d attr.Depth) error {
	return e.set(id, func() { e.depths.Set(id, d) })
}

// SetLayer changes the layer of a panel.
func (e *Engine) SetLayer(id Entity, l attr.Layer) error {
	return e.set(id, func() { e.layers.Set(id, l) })
}

// SetVisible shows or hides an entity. Hidden entities keep their
// components but leave the instance buffers.
func (e *Engine) SetVisible(id Entity, visible bool) error {
	return e.set(id, func() { e.visibility.Set(id, Visibility(visible)) })
}

// SetText replaces the content of a text, keeping its scale. Letter color
// overrides are cleared because letter keys change with the content.
func (e *Engine) SetText(id Entity, s string) error {
	return e.setText(id, func(t *Text) {
		t.Value = s
		t.Overrides = nil
	})
}

// SetScale changes the pixels-per-em of a text.
func (e *Engine) SetScale(id Entity, scale float32) error {
	if scale <= 0 {
		return ErrInvalidConfig
	}
	return e.setText(id, func(t *Text) { t.Scale = scale })
}

// SetLetterColor overrides the color of the letter at byte offset key.
func (e *Engine) SetLetterColor(id Entity, key extract.LetterKey, c attr.Color) error {
	return e.setText(id, func(t *Text) {
		o := make(map[extract.LetterKey]attr.Color, len(t.Overrides)+1)
		for k, v := range t.Overrides {
			o[k] = v
		}
		o[key] = c
		t.Overrides = o
	})
}

// SetBounds clips a text to s. Nil removes the bounds.
func (e *Engine) SetBounds(id Entity, s *attr.Section) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.world.Alive(id) {
		return ErrUnknownEntity
	}
	if !e.texts.Has(id) {
		return ErrNotText
	}
	if s == nil {
		if e.bounds.Has(id) {
			e.bounds.Remove(id)
			e.boundsCleared[id] = struct{}{}
		}
		return nil
	}
	e.bounds.Set(id, *s)
	delete(e.boundsCleared, id)
	return nil
}

func (e *Engine) set(id Entity, fn func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.world.Alive(id) {
		return ErrUnknownEntity
	}
	fn()
	return nil
}

func (e *Engine) setText(id Entity, fn func(*Text)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.world.Alive(id) {
		return ErrUnknownEntity
	}
	ok := e.texts.Mutate(id, func(t *Text) {
		*t = t.clone()
		fn(t)
	})
	if !ok {
		return ErrNotText
	}
	return nil
}
