// Package visualizer keeps GPU instance buffers in sync with a world of
// panels and texts.
//
// # Overview
//
// An Engine owns two worlds. The logic world holds entities and their
// components and is mutated through the Engine setters. The render world
// holds one attribute buffer per instance attribute and a glyph atlas.
// Every frame, diff systems compare the logic world against the last
// extracted state, and only the fields that actually changed travel to the
// render world as an extraction. The render stage turns extractions into
// attribute writes and uploads them with one queue write per contiguous
// index range.
//
// # Quick Start
//
//	import "github.com/gogpu/visualizer"
//
//	e, err := visualizer.New()
//	if err != nil {
//		return err
//	}
//	defer e.Close()
//
//	box := e.SpawnPanel(visualizer.Panel{
//		Area:  attr.Area{Width: 100, Height: 40},
//		Color: attr.White,
//	})
//	e.SpawnText(visualizer.Label{Text: "hello", Color: attr.White})
//
//	stats, err := e.Frame() // uploads both
//	_ = e.SetPosition(box, attr.Position{X: 10})
//	stats, err = e.Frame() // one write to the position buffer
//
// # Frames
//
// Frame runs the logic stage and the render stage back to back. Update and
// Render run them separately; extractions published by Update queue in a
// mailbox and are applied in order by the next Render, so a slow render
// stage never loses a change.
//
// A field set and set back before a frame produces no write. Hiding an
// entity removes its instance; showing it again adds it with its current
// components.
//
// # Texts
//
// Texts are NFC-normalized and laid out left to right with '\n' line
// breaks. Each visible letter is one instance sampling a shared glyph
// atlas; glyphs are rasterized on first use, reference counted, and
// evicted when no letter draws them. Letters outside the viewport or the
// text bounds are culled before extraction.
//
// # GPU
//
// Without options the engine runs on a headless gpu.MemoryDevice. Use
// WithDevice to share the device of a gogpu application, or WithBackend
// for any gpu.Backend. render.InstanceShader generates the WGSL vertex
// input matching a renderer's attribute registry.
//
// # Logging
//
// The engine logs through log/slog. Logging is silent unless SetLogger or
// WithLogger is used.
package visualizer
