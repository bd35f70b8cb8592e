// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/sync/semaphore"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/gsts/backend"
	"github.com/gogpu/gsts/raster"
	"github.com/gogpu/gsts/shading"
)

// Fence polling.
const (
	pollInterval = 50 * time.Millisecond
	stageTimeout = 5 * time.Second
)

var errTimeout = errors.New("gpu-gsts: GPU stage timed out")

func init() {
	backend.Register(backend.GPU, func(cfg backend.Config) (backend.Backend, error) {
		return New(cfg)
	})
}

// Backend computes tiles with wgpu compute shaders.
//
// One device serves all tiles; computations are serialized so that no two
// tiles write the same device queue at once.
type Backend struct {
	// gate admits one computation at a time and lets waiters give up when
	// their context ends.
	gate *semaphore.Weighted

	cfg backend.Config

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool // shared device, not destroyed on Close

	fieldLayout       hal.BindGroupLayout
	fieldPipeLayout   hal.PipelineLayout
	combineLayout     hal.BindGroupLayout
	combinePipeLayout hal.PipelineLayout

	decode  computeStage
	blurs   [shading.NumScales]computeStage
	combine computeStage
}

type computeStage struct {
	module   hal.ShaderModule
	pipeline hal.ComputePipeline
}

var _ backend.Backend = (*Backend)(nil)

// New opens a GPU device, or adopts cfg.DeviceProvider, and builds the
// pipelines. It returns an error wrapping backend.ErrUnavailable when no
// usable device exists.
func New(cfg backend.Config) (*Backend, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Encoding.Check(); err != nil {
		return nil, fmt.Errorf("gpu-gsts: %w", err)
	}

	b := &Backend{gate: semaphore.NewWeighted(1), cfg: cfg}
	b.SetLogger(cfg.Logger)

	var err error
	if cfg.DeviceProvider != nil {
		err = b.useProvider(cfg.DeviceProvider)
	} else {
		err = b.openDevice()
	}
	if err != nil {
		b.releaseDevice()
		return nil, fmt.Errorf("%w: gpu-gsts: %w", backend.ErrUnavailable, err)
	}

	if err := b.createPipelines(); err != nil {
		b.destroyPipelines()
		b.releaseDevice()
		return nil, fmt.Errorf("%w: gpu-gsts: %w", backend.ErrUnavailable, err)
	}
	return b, nil
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return backend.GPU }

// SetLogger sets the logger for GPU diagnostics.
func (b *Backend) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// useProvider adopts a shared device. The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func (b *Backend) useProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("provider HalQueue is not hal.Queue")
	}
	b.device = device
	b.queue = queue
	b.external = true
	slogger().Info("gpu-gsts: using shared GPU device")
	return nil
}

func (b *Backend) openDevice() error {
	vk, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := vk.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	b.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	b.device = openDev.Device
	b.queue = openDev.Queue
	slogger().Info("gpu-gsts: GPU backend initialized", "adapter", selected.Info.Name)
	return nil
}

func (b *Backend) createPipelines() error {
	var err error
	b.fieldLayout, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gsts_field_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create field bind group layout: %w", err)
	}
	b.fieldPipeLayout, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "gsts_field_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{b.fieldLayout},
	})
	if err != nil {
		return fmt.Errorf("create field pipeline layout: %w", err)
	}

	b.combineLayout, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gsts_combine_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create combine bind group layout: %w", err)
	}
	b.combinePipeLayout, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "gsts_combine_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{b.combineLayout},
	})
	if err != nil {
		return fmt.Errorf("create combine pipeline layout: %w", err)
	}

	src, err := decodeShader()
	if err != nil {
		return err
	}
	if b.decode, err = b.createStage("gsts_decode", src, b.fieldPipeLayout); err != nil {
		return err
	}
	for i, r := range shading.Radii {
		if src, err = blurShader(r); err != nil {
			return err
		}
		if b.blurs[i], err = b.createStage("gsts_blur_r"+strconv.Itoa(r), src, b.fieldPipeLayout); err != nil {
			return err
		}
	}
	if src, err = combineShader(b.cfg.Response); err != nil {
		return err
	}
	b.combine, err = b.createStage("gsts_combine", src, b.combinePipeLayout)
	return err
}

func (b *Backend) createStage(label, src string, layout hal.PipelineLayout) (computeStage, error) {
	module, err := createShaderModule(b.device, label, src)
	if err != nil {
		return computeStage{}, err
	}
	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: label + "_pipeline", Layout: layout,
		Compute: hal.ComputeState{Module: module, EntryPoint: "main"},
	})
	if err != nil {
		b.device.DestroyShaderModule(module)
		return computeStage{}, fmt.Errorf("create %s compute pipeline: %w", label, err)
	}
	return computeStage{module: module, pipeline: pipeline}, nil
}

func (b *Backend) destroyStage(s *computeStage) {
	if s.pipeline != nil {
		b.device.DestroyComputePipeline(s.pipeline)
	}
	if s.module != nil {
		b.device.DestroyShaderModule(s.module)
	}
	*s = computeStage{}
}

func (b *Backend) destroyPipelines() {
	if b.device == nil {
		return
	}
	b.destroyStage(&b.decode)
	for i := range b.blurs {
		b.destroyStage(&b.blurs[i])
	}
	b.destroyStage(&b.combine)
	if b.fieldPipeLayout != nil {
		b.device.DestroyPipelineLayout(b.fieldPipeLayout)
		b.fieldPipeLayout = nil
	}
	if b.combinePipeLayout != nil {
		b.device.DestroyPipelineLayout(b.combinePipeLayout)
		b.combinePipeLayout = nil
	}
	if b.fieldLayout != nil {
		b.device.DestroyBindGroupLayout(b.fieldLayout)
		b.fieldLayout = nil
	}
	if b.combineLayout != nil {
		b.device.DestroyBindGroupLayout(b.combineLayout)
		b.combineLayout = nil
	}
}

func (b *Backend) releaseDevice() {
	if !b.external {
		if b.device != nil {
			b.device.Destroy()
		}
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.device = nil
	b.queue = nil
	b.instance = nil
	b.external = false
}

// Close releases the pipelines and, unless shared, the device.
func (b *Backend) Close() error {
	_ = b.gate.Acquire(context.Background(), 1)
	defer b.gate.Release(1)

	b.destroyPipelines()
	b.releaseDevice()
	return nil
}

// Compute implements backend.Backend.
func (b *Backend) Compute(ctx context.Context, job *backend.Job) (*image.NRGBA, error) {
	m := job.Take()
	if m == nil {
		return nil, backend.ErrJobConsumed
	}
	defer m.Release()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.gate.Release(1)

	if b.device == nil {
		return nil, backend.ErrClosed
	}

	start := time.Now()
	out, err := b.run(ctx, m, job.Weights)
	if err != nil {
		return nil, err
	}
	slogger().Debug("gpu-gsts: tile computed",
		"tile", job.Label,
		"size", m.TileSize,
		"padding", m.Padding,
		"elapsed", time.Since(start))
	return out, nil
}

// run executes the stages, one submission each, and checks ctx in between.
func (b *Backend) run(ctx context.Context, m *raster.Mosaic, w shading.Weights) (*image.NRGBA, error) {
	bounds := m.Image.Bounds()
	width, height := uint32(bounds.Dx()), uint32(bounds.Dy()) //nolint:gosec // tile dimensions fit uint32
	ts, pad := uint32(m.TileSize), uint32(m.Padding)          //nolint:gosec // tile dimensions fit uint32
	n := uint64(width) * uint64(height)
	fieldSize := n * 4
	resultSize := uint64(ts) * uint64(ts) * 4

	f := &frame{device: b.device}
	defer f.destroy()

	srcBuf := f.buffer(&hal.BufferDescriptor{
		Label: "gsts_source", Size: fieldSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	originalBuf := f.buffer(&hal.BufferDescriptor{
		Label: "gsts_original", Size: fieldSize,
		Usage: gputypes.BufferUsageStorage,
	})
	tempBuf := f.buffer(&hal.BufferDescriptor{
		Label: "gsts_temp", Size: fieldSize,
		Usage: gputypes.BufferUsageStorage,
	})
	blurredBuf := f.buffer(&hal.BufferDescriptor{
		Label: "gsts_blurred", Size: fieldSize * shading.NumScales,
		Usage: gputypes.BufferUsageStorage,
	})
	resultBuf := f.buffer(&hal.BufferDescriptor{
		Label: "gsts_result", Size: resultSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	stagingBuf := f.buffer(&hal.BufferDescriptor{
		Label: "gsts_staging", Size: resultSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})

	decodeParams := f.uniform(b.queue, "gsts_decode_params", fieldParams(width, height, false, 0))
	hParams := f.uniform(b.queue, "gsts_blur_h_params", fieldParams(width, height, true, 0))
	var vParams [shading.NumScales]hal.Buffer
	for i := range vParams {
		vParams[i] = f.uniform(b.queue, "gsts_blur_v_params", fieldParams(width, height, false, uint32(uint64(i)*n))) //nolint:gosec // layer offset fits uint32
	}
	cParams := f.uniform(b.queue, "gsts_combine_params", combineParams(width, height, ts, pad, w, b.cfg.Tint))
	if f.err != nil {
		return nil, f.err
	}

	b.queue.WriteBuffer(srcBuf, 0, m.Image.Pix[:fieldSize])

	field := func(label string, params, src, dst hal.Buffer, srcSize, dstSize uint64) hal.BindGroup {
		return f.bindGroup(&hal.BindGroupDescriptor{
			Label: label, Layout: b.fieldLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: params.NativeHandle(), Offset: 0, Size: fieldParamsSize}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: src.NativeHandle(), Offset: 0, Size: srcSize}},
				{Binding: 2, Resource: gputypes.BufferBinding{Buffer: dst.NativeHandle(), Offset: 0, Size: dstSize}},
			},
		})
	}
	decodeBG := field("gsts_decode_bind", decodeParams, srcBuf, originalBuf, fieldSize, fieldSize)
	hBG := field("gsts_blur_h_bind", hParams, originalBuf, tempBuf, fieldSize, fieldSize)
	var vBG [shading.NumScales]hal.BindGroup
	for i := range vBG {
		vBG[i] = field("gsts_blur_v_bind", vParams[i], tempBuf, blurredBuf, fieldSize, fieldSize*shading.NumScales)
	}
	combineBG := f.bindGroup(&hal.BindGroupDescriptor{
		Label: "gsts_combine_bind", Layout: b.combineLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: cParams.NativeHandle(), Offset: 0, Size: combineParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: originalBuf.NativeHandle(), Offset: 0, Size: fieldSize}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: blurredBuf.NativeHandle(), Offset: 0, Size: fieldSize * shading.NumScales}},
			{Binding: 3, Resource: gputypes.BufferBinding{Buffer: resultBuf.NativeHandle(), Offset: 0, Size: resultSize}},
		},
	})
	if f.err != nil {
		return nil, f.err
	}

	gx, gy := groups(width), groups(height)

	err := b.submit(ctx, "gsts_decode", func(enc hal.CommandEncoder) {
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "gsts_decode_pass"})
		pass.SetPipeline(b.decode.pipeline)
		pass.SetBindGroup(0, decodeBG, nil)
		pass.Dispatch(gx, gy, 1)
		pass.End()
	})
	if err != nil {
		return nil, err
	}

	for i := range shading.Radii {
		err := b.submit(ctx, "gsts_blur", func(enc hal.CommandEncoder) {
			for _, bg := range []hal.BindGroup{hBG, vBG[i]} {
				pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "gsts_blur_pass"})
				pass.SetPipeline(b.blurs[i].pipeline)
				pass.SetBindGroup(0, bg, nil)
				pass.Dispatch(gx, gy, 1)
				pass.End()
			}
		})
		if err != nil {
			return nil, err
		}
	}

	err = b.submit(ctx, "gsts_combine", func(enc hal.CommandEncoder) {
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "gsts_combine_pass"})
		pass.SetPipeline(b.combine.pipeline)
		pass.SetBindGroup(0, combineBG, nil)
		pass.Dispatch(groups(ts), groups(ts), 1)
		pass.End()
		enc.CopyBufferToBuffer(resultBuf, stagingBuf, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: resultSize},
		})
	})
	if err != nil {
		return nil, err
	}

	readback := make([]byte, resultSize)
	if err := b.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("gpu-gsts: readback: %w", err)
	}
	// Result words are r | g<<8 | b<<16 | a<<24, the NRGBA byte order.
	return &image.NRGBA{
		Pix:    readback,
		Stride: int(ts) * 4,
		Rect:   image.Rect(0, 0, int(ts), int(ts)),
	}, nil
}

// submit records one command buffer, submits it and waits for its fence.
// A context that ends before submission skips the stage; a stage already on
// the GPU is always waited for so its buffers can be freed safely.
func (b *Backend) submit(ctx context.Context, label string, record func(hal.CommandEncoder)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return fmt.Errorf("gpu-gsts: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("gpu-gsts: begin encoding: %w", err)
	}
	record(encoder)
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("gpu-gsts: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu-gsts: create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu-gsts: submit %s: %w", label, err)
	}

	deadline := time.Now().Add(stageTimeout)
	for {
		ok, err := b.device.Wait(fence, 1, pollInterval)
		if err != nil {
			return fmt.Errorf("gpu-gsts: wait for %s: %w", label, err)
		}
		if ok {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", errTimeout, label)
		}
	}
}

func groups(n uint32) uint32 {
	return (n + workgroupSize - 1) / workgroupSize
}

// frame owns the per-call buffers and bind groups of one computation.
type frame struct {
	device  hal.Device
	buffers []hal.Buffer
	groups  []hal.BindGroup
	err     error
}

func (f *frame) buffer(desc *hal.BufferDescriptor) hal.Buffer {
	if f.err != nil {
		return nil
	}
	buf, err := f.device.CreateBuffer(desc)
	if err != nil {
		f.err = fmt.Errorf("gpu-gsts: create %s buffer: %w", desc.Label, err)
		return nil
	}
	f.buffers = append(f.buffers, buf)
	return buf
}

func (f *frame) uniform(queue hal.Queue, label string, data []byte) hal.Buffer {
	buf := f.buffer(&hal.BufferDescriptor{
		Label: label, Size: uint64(len(data)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if buf != nil {
		queue.WriteBuffer(buf, 0, data)
	}
	return buf
}

func (f *frame) bindGroup(desc *hal.BindGroupDescriptor) hal.BindGroup {
	if f.err != nil {
		return nil
	}
	bg, err := f.device.CreateBindGroup(desc)
	if err != nil {
		f.err = fmt.Errorf("gpu-gsts: create %s: %w", desc.Label, err)
		return nil
	}
	f.groups = append(f.groups, bg)
	return bg
}

func (f *frame) destroy() {
	for _, bg := range f.groups {
		f.device.DestroyBindGroup(bg)
	}
	for _, buf := range f.buffers {
		f.device.DestroyBuffer(buf)
	}
}
