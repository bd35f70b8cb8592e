// Package gpu is the wgpu compute backend of the shading pipeline.
//
// Importing the package registers the "gpu" backend:
//
//	import _ "github.com/gogpu/gsts/internal/gpu"
//
// The pipeline runs as a chain of compute passes over storage buffers:
//
//  1. decode: terrarium RGBA8 words to f32 meters
//  2. blur: per radius, a horizontal and a vertical pass
//  3. combine: delta, weighted sum, response and tint per output pixel
//
// Blur kernels are baked into generated WGSL as constants, one shader per
// radius, and compiled to SPIR-V with naga. The device and pipelines are
// created once and reused; buffers and bind groups live for one Compute call.
//
// Build with -tags nogpu to leave the backend out.
package gpu
