// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/visualizer/extract"
	"github.com/gogpu/visualizer/instance"
)

// fields is a set of attributes waiting to be written for one instance.
type fields uint8

const (
	fieldPosition fields = 1 << iota
	fieldArea
	fieldColor
	fieldDepth
	fieldLayer
	fieldDescriptor
	fieldClip

	allFields = fieldPosition | fieldArea | fieldColor | fieldDepth | fieldLayer | fieldDescriptor | fieldClip
)

func (f fields) has(x fields) bool { return f&x != 0 }

// entityFields returns the entity-level attributes changed by d.
func entityFields(d extract.Difference) fields {
	var f fields
	if d.Position != nil {
		f |= fieldPosition
	}
	if d.Area != nil {
		f |= fieldArea
	}
	if d.Color != nil {
		f |= fieldColor
	}
	if d.Depth != nil {
		f |= fieldDepth
	}
	if d.Layer != nil {
		f |= fieldLayer
	}
	if d.Bounds != extract.BoundsUnchanged {
		f |= fieldClip
	}
	return f
}

// writeField writes v to buf at i when f contains field and buf exists.
func writeField[A any](buf *instance.AttributeBuffer[A], f, field fields, i instance.Index, v A) error {
	if buf == nil || !f.has(field) {
		return nil
	}
	return buf.Write(i, v)
}

// register adds kind to reg unless *err is already set, recording any
// failure in *err.
func register[A any](reg *instance.Registry, err *error, kind instance.Kind, format gputypes.VertexFormat) *instance.AttributeBuffer[A] {
	if *err != nil {
		return nil
	}
	buf, e := instance.Register[A](reg, kind, format)
	if e != nil {
		*err = e
	}
	return buf
}
