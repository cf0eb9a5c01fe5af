package visualizer

import (
	"log/slog"

	"github.com/gogpu/visualizer/attr"
	"github.com/gogpu/visualizer/ecs"
	"github.com/gogpu/visualizer/extract"
	"github.com/gogpu/visualizer/text"
)

// despawnSystem destroys queued entities and stops tracking them.
func (e *Engine) despawnSystem(uint64) error {
	e.world.Flush()
	for _, id := range e.world.Despawned() {
		e.panelTracker.Despawn(id)
		e.textTracker.Despawn(id)
		delete(e.layouts, id)
		delete(e.culled, id)
		delete(e.spawned, id)
		delete(e.relayout, id)
		delete(e.recull, id)
		delete(e.relabel, id)
		delete(e.boundsCleared, id)
	}
	return nil
}

// trackSystem starts tracking spawned and shown entities and stops
// tracking hidden ones.
func (e *Engine) trackSystem(uint64) error {
	e.visibility.EachChanged(e.since, func(id Entity, _ Visibility) {
		e.spawned[id] = struct{}{}
	})
	for id := range e.spawned {
		if !e.world.Alive(id) {
			continue
		}
		isText := e.texts.Has(id)
		tracker := e.panelTracker
		if isText {
			tracker = e.textTracker
		}
		switch visible := e.visible(id); {
		case visible && !tracker.Tracked(id):
			tracker.Track(id, e.snapshot(id, isText))
			if isText {
				e.relayout[id] = struct{}{}
			}
		case !visible && tracker.Tracked(id):
			tracker.Despawn(id)
			delete(e.culled, id)
		}
	}
	clear(e.spawned)
	return nil
}

func (e *Engine) visible(id Entity) bool {
	v, ok := e.visibility.Get(id)
	return !ok || bool(v)
}

// snapshot reads the current components of id. Text letters are left out;
// letterDiff reports them once the text is placed.
func (e *Engine) snapshot(id Entity, isText bool) extract.Snapshot {
	var s extract.Snapshot
	s.Position, _ = e.positions.Get(id)
	s.Color, _ = e.colors.Get(id)
	s.Depth, _ = e.depths.Get(id)
	if !isText {
		s.Area, _ = e.areas.Get(id)
		s.Layer, _ = e.layers.Get(id)
		return s
	}
	if b, ok := e.bounds.Get(id); ok {
		s.Bounds = &b
	}
	return s
}

// placeSystem lays out the glyphs of changed texts.
func (e *Engine) placeSystem(uint64) error {
	e.texts.EachChanged(e.since, func(id Entity, _ Text) {
		e.relayout[id] = struct{}{}
	})
	for id := range e.relayout {
		t, ok := e.texts.Get(id)
		if !ok || !e.textTracker.Tracked(id) {
			continue
		}
		e.layouts[id] = text.Place(e.font, t.Value, t.Scale)
		e.recull[id] = struct{}{}
	}
	clear(e.relayout)
	return nil
}

// cullSystem drops the glyphs of moved, clipped or relaid texts that fall
// outside the viewport or the text bounds.
func (e *Engine) cullSystem(uint64) error {
	if e.viewDirty {
		ecs.Each2(e.texts, e.positions, func(id Entity, _ Text, _ attr.Position) {
			e.recull[id] = struct{}{}
		})
		e.viewDirty = false
	}
	e.positions.EachChanged(e.since, func(id Entity, _ attr.Position) {
		if e.texts.Has(id) {
			e.recull[id] = struct{}{}
		}
	})
	e.bounds.EachChanged(e.since, func(id Entity, _ attr.Section) {
		e.recull[id] = struct{}{}
	})
	for id := range e.boundsCleared {
		e.recull[id] = struct{}{}
	}

	for id := range e.recull {
		if !e.textTracker.Tracked(id) {
			continue
		}
		origin, _ := e.positions.Get(id)
		var bounds *attr.Section
		if b, ok := e.bounds.Get(id); ok {
			bounds = &b
		}
		e.culled[id] = text.Cull(e.layouts[id], origin, e.viewport, bounds)
		e.relabel[id] = struct{}{}
	}
	clear(e.recull)
	return nil
}

func (e *Engine) positionDiff(uint64) error {
	e.positions.EachChanged(e.since, func(id Entity, p attr.Position) {
		e.panelTracker.ObservePosition(id, p)
		e.textTracker.ObservePosition(id, p)
	})
	return nil
}

func (e *Engine) areaDiff(uint64) error {
	e.areas.EachChanged(e.since, func(id Entity, a attr.Area) {
		e.panelTracker.ObserveArea(id, a)
	})
	return nil
}

// colorDiff also relabels texts, whose letters carry the text color.
func (e *Engine) colorDiff(uint64) error {
	e.colors.EachChanged(e.since, func(id Entity, c attr.Color) {
		e.panelTracker.ObserveColor(id, c)
		if e.textTracker.ObserveColor(id, c) {
			e.relabel[id] = struct{}{}
		}
	})
	return nil
}

func (e *Engine) depthDiff(uint64) error {
	e.depths.EachChanged(e.since, func(id Entity, d attr.Depth) {
		e.panelTracker.ObserveDepth(id, d)
		e.textTracker.ObserveDepth(id, d)
	})
	return nil
}

func (e *Engine) layerDiff(uint64) error {
	e.layers.EachChanged(e.since, func(id Entity, l attr.Layer) {
		e.panelTracker.ObserveLayer(id, l)
	})
	return nil
}

func (e *Engine) boundsDiff(uint64) error {
	e.bounds.EachChanged(e.since, func(id Entity, b attr.Section) {
		e.textTracker.ObserveBounds(id, &b)
	})
	for id := range e.boundsCleared {
		e.textTracker.ObserveBounds(id, nil)
	}
	clear(e.boundsCleared)
	return nil
}

// letterDiff reports the visible letters of relabeled texts.
func (e *Engine) letterDiff(uint64) error {
	for id := range e.relabel {
		t, ok := e.texts.Get(id)
		if !ok {
			continue
		}
		color, _ := e.colors.Get(id)
		e.textTracker.ObserveLetters(id, text.Letters(e.culled[id], t.Scale, color, t.Overrides))
	}
	clear(e.relabel)
	return nil
}

// extractSystem drains both trackers into the mailboxes and starts a new
// tick. Component writes from now on belong to the next frame.
func (e *Engine) extractSystem(frame uint64) error {
	panels := extract.NewExtraction[Entity](frame)
	e.panelTracker.Drain(&panels)
	texts := extract.NewExtraction[Entity](frame)
	e.textTracker.Drain(&texts)

	e.log.Debug("visualizer: extracted",
		slog.Uint64("frame", frame),
		slog.Int("panels.added", len(panels.Added)),
		slog.Int("panels.changed", len(panels.Differences)),
		slog.Int("panels.removed", len(panels.Removed)),
		slog.Int("texts.added", len(texts.Added)),
		slog.Int("texts.changed", len(texts.Differences)),
		slog.Int("texts.removed", len(texts.Removed)))

	e.panelMail.Publish(panels)
	e.textMail.Publish(texts)
	e.world.Advance()
	e.since = e.world.Tick()
	return nil
}

// prepareSystem applies every queued extraction in publish order.
func (e *Engine) prepareSystem(uint64) error {
	for _, ext := range e.panelMail.Take() {
		if err := e.panels.Prepare(ext); err != nil {
			return err
		}
	}
	for _, ext := range e.textMail.Take() {
		if err := e.textDraws.Prepare(ext); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) writeSystem(uint64) error {
	if err := e.panels.Write(); err != nil {
		return err
	}
	return e.textDraws.Write()
}

func (e *Engine) flushSystem(frame uint64) error {
	n, err := e.panels.Flush()
	e.stats.Writes += n
	if err != nil {
		return err
	}
	n, err = e.textDraws.Flush()
	e.stats.Writes += n
	if err != nil {
		return err
	}
	e.log.Debug("visualizer: flushed",
		slog.Uint64("frame", frame),
		slog.Int("writes", e.stats.Writes))
	return nil
}
