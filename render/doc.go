// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render is the render-stage side of the extraction pipeline.
//
// Renderers consume the extract.Extraction values published by the logic
// stage and keep per-instance GPU attribute buffers in sync with them. Each
// frame runs three steps in order:
//
//	for _, ext := range mailbox.Take() {
//	    if err := r.Prepare(ext); err != nil { ... } // slots, growth, glyphs
//	}
//	if err := r.Write(); err != nil { ... }        // attribute values
//	if _, err := r.Flush(); err != nil { ... }     // coalesced uploads
//
// Prepare releases the slots of removed keys before allocating slots for new
// ones, then grows every buffer of the renderer at once. Write only touches
// the attributes that changed. Flush uploads one write per contiguous run of
// changed slots.
//
// Instances draw live keys densely: after Flush, slots [0, Count) hold every
// live instance, so a draw call uses Count as its instance count.
//
// InstanceShader generates the WGSL that reads a renderer's attribute
// buffers, and CompileShader turns it into SPIR-V with naga.
package render
