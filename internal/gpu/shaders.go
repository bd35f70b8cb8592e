// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"

	"github.com/gogpu/gsts/elevation"
	"github.com/gogpu/gsts/internal/filter"
	"github.com/gogpu/gsts/shading"
)

// workgroupSize is the edge of the square compute workgroup.
const workgroupSize = 8

// fieldParamsSize is the byte size of the FieldParams uniform.
const fieldParamsSize = 16

// combineParamsSize is the byte size of the CombineParams uniform.
const combineParamsSize = 64

var decodeTemplate = template.Must(template.New("decode").Parse(`
struct FieldParams {
    width: u32,
    height: u32,
    horizontal: u32,
    dst_offset: u32,
}

@group(0) @binding(0) var<uniform> params: FieldParams;
@group(0) @binding(1) var<storage, read> src: array<u32>;
@group(0) @binding(2) var<storage, read_write> dst: array<f32>;

@compute @workgroup_size({{.Workgroup}}, {{.Workgroup}}, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    if (id.x >= params.width || id.y >= params.height) {
        return;
    }
    let i = id.y * params.width + id.x;
    let p = src[i];
    let r = f32(p & 0xffu);
    let g = f32((p >> 8u) & 0xffu);
    let b = f32((p >> 16u) & 0xffu);
    dst[params.dst_offset + i] = (r * 256.0 - {{.Offset}}) + g + b / 256.0;
}
`))

// blurTemplate unrolls every kernel tap so the shader has no loops.
var blurTemplate = template.Must(template.New("blur").Parse(`
struct FieldParams {
    width: u32,
    height: u32,
    horizontal: u32,
    dst_offset: u32,
}

@group(0) @binding(0) var<uniform> params: FieldParams;
@group(0) @binding(1) var<storage, read> src: array<f32>;
@group(0) @binding(2) var<storage, read_write> dst: array<f32>;

fn tap(x: i32, y: i32) -> f32 {
    let cx = clamp(x, 0, i32(params.width) - 1);
    let cy = clamp(y, 0, i32(params.height) - 1);
    return src[u32(cy) * params.width + u32(cx)];
}

// Gaussian blur, radius {{.Radius}}.
@compute @workgroup_size({{.Workgroup}}, {{.Workgroup}}, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    if (id.x >= params.width || id.y >= params.height) {
        return;
    }
    let x = i32(id.x);
    let y = i32(id.y);
    var dx = 0;
    var dy = 1;
    if (params.horizontal == 1u) {
        dx = 1;
        dy = 0;
    }
    var sum = 0.0;
{{- range .Taps}}
    sum = sum + {{.Weight}} * tap(x + dx * ({{.Offset}}), y + dy * ({{.Offset}}));
{{- end}}
    dst[params.dst_offset + id.y * params.width + id.x] = sum;
}
`))

var combineTemplate = template.Must(template.New("combine").Parse(`
const PI: f32 = 3.14159265358979;

struct CombineParams {
    width: u32,
    height: u32,
    tile_size: u32,
    padding: u32,
    layer_size: u32,
    tint: u32,
    _pad0: u32,
    _pad1: u32,
    w0: f32,
    w1: f32,
    w2: f32,
    w3: f32,
    w4: f32,
    _pad2: f32,
    _pad3: f32,
    _pad4: f32,
}

@group(0) @binding(0) var<uniform> params: CombineParams;
@group(0) @binding(1) var<storage, read> original: array<f32>;
@group(0) @binding(2) var<storage, read> blurred: array<f32>;
@group(0) @binding(3) var<storage, read_write> result: array<u32>;

{{.Respond}}
fn delta(layer: u32, i: u32, o: f32) -> f32 {
    return max(0.0, blurred[layer * params.layer_size + i] - o);
}

@compute @workgroup_size({{.Workgroup}}, {{.Workgroup}}, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    if (id.x >= params.tile_size || id.y >= params.tile_size) {
        return;
    }
    let i = (id.y + params.padding) * params.width + id.x + params.padding;
    let o = original[i];
    let sum = delta(0u, i, o) * params.w0
        + delta(1u, i, o) * params.w1
        + delta(2u, i, o) * params.w2
        + delta(3u, i, o) * params.w3
        + delta(4u, i, o) * params.w4;
    let a = clamp(floor(respond(sum) + 0.5), 0.0, 255.0);
    result[id.y * params.tile_size + id.x] = params.tint | (u32(a) << 24u);
}
`))

type kernelTap struct {
	Offset int
	Weight string
}

// decodeShader returns the terrarium decode shader.
func decodeShader() (string, error) {
	return execute(decodeTemplate, map[string]any{
		"Workgroup": workgroupSize,
		"Offset":    wgslFloat(elevation.Offset),
	})
}

// blurShader returns the separable blur shader for radius with the kernel
// weights of filter.RadiusKernel inlined.
func blurShader(radius int) (string, error) {
	kernel := filter.RadiusKernel(radius)
	taps := make([]kernelTap, len(kernel))
	for i, w := range kernel {
		taps[i] = kernelTap{Offset: i - radius, Weight: wgslFloat(w)}
	}
	return execute(blurTemplate, map[string]any{
		"Workgroup": workgroupSize,
		"Radius":    radius,
		"Taps":      taps,
	})
}

// combineShader returns the combine shader using r's WGSL respond function.
func combineShader(r shading.Response) (string, error) {
	return execute(combineTemplate, map[string]any{
		"Workgroup": workgroupSize,
		"Respond":   r.WGSL(),
	})
}

func execute(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("gpu-gsts: %s shader template: %w", t.Name(), err)
	}
	return sb.String(), nil
}

// wgslFloat formats f as a WGSL float literal.
func wgslFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// fieldParams packs the FieldParams uniform.
func fieldParams(width, height uint32, horizontal bool, dstOffset uint32) []byte {
	b := make([]byte, fieldParamsSize)
	binary.LittleEndian.PutUint32(b[0:], width)
	binary.LittleEndian.PutUint32(b[4:], height)
	if horizontal {
		binary.LittleEndian.PutUint32(b[8:], 1)
	}
	binary.LittleEndian.PutUint32(b[12:], dstOffset)
	return b
}

// combineParams packs the CombineParams uniform.
func combineParams(width, height, tileSize, padding uint32, w shading.Weights, tint shading.RGB) []byte {
	b := make([]byte, combineParamsSize)
	binary.LittleEndian.PutUint32(b[0:], width)
	binary.LittleEndian.PutUint32(b[4:], height)
	binary.LittleEndian.PutUint32(b[8:], tileSize)
	binary.LittleEndian.PutUint32(b[12:], padding)
	binary.LittleEndian.PutUint32(b[16:], width*height)
	binary.LittleEndian.PutUint32(b[20:], uint32(tint.R)|uint32(tint.G)<<8|uint32(tint.B)<<16)
	for i, v := range w.Values() {
		binary.LittleEndian.PutUint32(b[32+i*4:], math.Float32bits(v))
	}
	return b
}
