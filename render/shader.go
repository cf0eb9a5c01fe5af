// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"

	"github.com/gogpu/visualizer/instance"
)

// Shader errors.
var (
	// ErrMissingAttribute is returned when a registry lacks the position or
	// area attribute every instance shader needs.
	ErrMissingAttribute = errors.New("render: registry lacks a required attribute")

	// ErrUnsupportedFormat is returned for vertex formats without a WGSL type.
	ErrUnsupportedFormat = errors.New("render: vertex format has no WGSL type")
)

var wgslTypes = map[gputypes.VertexFormat]string{
	gputypes.VertexFormatFloat32:   "f32",
	gputypes.VertexFormatFloat32x2: "vec2<f32>",
	gputypes.VertexFormatFloat32x3: "vec3<f32>",
	gputypes.VertexFormatFloat32x4: "vec4<f32>",
	gputypes.VertexFormatUint32:    "u32",
	gputypes.VertexFormatUint32x2:  "vec2<u32>",
	gputypes.VertexFormatUint32x3:  "vec3<u32>",
	gputypes.VertexFormatUint32x4:  "vec4<u32>",
}

// InstanceShader returns WGSL drawing one quad per instance of reg, four
// vertices as a triangle strip. Instance attributes are read from vertex
// buffers at the shader locations of reg.Layouts.
//
// Group 0 binding 0 holds the viewport size in pixels. When reg has a
// descriptor attribute, group 0 binding 1 holds the glyph atlas as a
// storage buffer of packed coverage bytes and the quad is shaded by glyph
// coverage.
func InstanceShader(reg *instance.Registry) (string, error) {
	kinds := reg.Kinds()
	has := make(map[instance.Kind]bool, len(kinds))
	for _, k := range kinds {
		has[k] = true
	}
	if !has[instance.KindPosition] || !has[instance.KindArea] {
		return "", ErrMissingAttribute
	}

	var b strings.Builder
	b.WriteString("struct Instance {\n")
	for i, k := range kinds {
		format, _ := reg.Format(k)
		typ, ok := wgslTypes[format]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, k)
		}
		fmt.Fprintf(&b, "    @location(%d) %s: %s,\n", i, k, typ)
	}
	b.WriteString("};\n\n")

	glyphs := has[instance.KindDescriptor]
	b.WriteString("struct VertexOutput {\n")
	b.WriteString("    @builtin(position) clip_position: vec4<f32>,\n")
	b.WriteString("    @location(0) color: vec4<f32>,\n")
	b.WriteString("    @location(1) local: vec2<f32>,\n")
	b.WriteString("    @location(2) pixel: vec2<f32>,\n")
	b.WriteString("    @location(3) clip: vec4<f32>,\n")
	if glyphs {
		b.WriteString("    @location(4) @interpolate(flat) descriptor: vec3<u32>,\n")
	}
	b.WriteString("};\n\n")

	b.WriteString("@group(0) @binding(0) var<uniform> viewport: vec4<f32>;\n")
	if glyphs {
		b.WriteString("@group(0) @binding(1) var<storage, read> atlas: array<u32>;\n")
	}
	b.WriteString("\n@vertex\nfn vs_main(@builtin(vertex_index) vertex_id: u32, inst: Instance) -> VertexOutput {\n")
	b.WriteString("    let corner = vec2<f32>(f32(vertex_id & 1u), f32((vertex_id >> 1u) & 1u));\n")
	b.WriteString("    let pixel = inst.position + corner * inst.area;\n")
	b.WriteString("    let ndc = pixel / viewport.xy * 2.0 - vec2<f32>(1.0, 1.0);\n")
	depth := "0.0"
	if has[instance.KindDepth] {
		depth = "inst.depth"
	}
	b.WriteString("    var out: VertexOutput;\n")
	fmt.Fprintf(&b, "    out.clip_position = vec4<f32>(ndc.x, -ndc.y, %s, 1.0);\n", depth)
	if has[instance.KindColor] {
		b.WriteString("    out.color = inst.color;\n")
	} else {
		b.WriteString("    out.color = vec4<f32>(1.0, 1.0, 1.0, 1.0);\n")
	}
	b.WriteString("    out.local = corner * inst.area;\n")
	b.WriteString("    out.pixel = pixel;\n")
	if has[instance.KindClip] {
		b.WriteString("    out.clip = inst.clip;\n")
	} else {
		b.WriteString("    out.clip = vec4<f32>(0.0, 0.0, viewport.x, viewport.y);\n")
	}
	if glyphs {
		b.WriteString("    out.descriptor = inst.descriptor;\n")
	}
	b.WriteString("    return out;\n}\n\n")

	b.WriteString("@fragment\nfn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {\n")
	b.WriteString("    let lo = in.clip.xy;\n")
	b.WriteString("    let hi = in.clip.xy + in.clip.zw;\n")
	b.WriteString("    let inside = select(0.0, 1.0, in.pixel.x >= lo.x && in.pixel.y >= lo.y && in.pixel.x < hi.x && in.pixel.y < hi.y);\n")
	if glyphs {
		b.WriteString("    let column = min(u32(in.local.x), max(in.descriptor.y, 1u) - 1u);\n")
		b.WriteString("    let row = min(u32(in.local.y), max(in.descriptor.z, 1u) - 1u);\n")
		b.WriteString("    let index = in.descriptor.x + row * in.descriptor.y + column;\n")
		b.WriteString("    let word = atlas[index / 4u];\n")
		b.WriteString("    let coverage = f32((word >> ((index % 4u) * 8u)) & 255u) / 255.0;\n")
		b.WriteString("    return vec4<f32>(in.color.rgb, in.color.a * coverage * inside);\n")
	} else {
		b.WriteString("    return vec4<f32>(in.color.rgb, in.color.a * inside);\n")
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// CompileShader compiles WGSL source to SPIR-V words.
func CompileShader(wgsl string) ([]uint32, error) {
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("render: compile shader: %w", err)
	}
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("render: compile shader: SPIR-V is %d bytes, not whole words", len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words, nil
}
