package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// readbackPollInterval is how long ReadBuffer sleeps between non-blocking device polls.
const readbackPollInterval = 200 * time.Microsecond

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	limits   Limits
	ledger   *bufferLedger

	surfaceFormat *wgpu.TextureFormat
	targets       *renderTargets

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// Compute frame state for batching all compute dispatches into a single GPU submission
	computeFrameEncoder *wgpu.CommandEncoder
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// wgpuBuffer wraps a device buffer with the metadata the facade validates against.
type wgpuBuffer struct {
	buf      *wgpu.Buffer
	label    string
	size     uint64
	usage    wgpu.BufferUsage
	ledger   *bufferLedger
	released bool
	mu       sync.Mutex
}

var _ resource.Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Label() string           { return b.label }
func (b *wgpuBuffer) Size() uint64            { return b.size }
func (b *wgpuBuffer) Usage() wgpu.BufferUsage { return b.usage }

func (b *wgpuBuffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

func (b *wgpuBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.buf.Release()
	b.ledger.remove(b.size)
}

// wgpuBindGroup wraps a device bind group and the layout it was created with.
type wgpuBindGroup struct {
	group    *wgpu.BindGroup
	layout   *wgpu.BindGroupLayout
	label    string
	released bool
}

var _ resource.BindGroup = &wgpuBindGroup{}

func (g *wgpuBindGroup) Label() string { return g.label }

func (g *wgpuBindGroup) Release() {
	if g.released {
		return
	}
	g.released = true
	g.group.Release()
	g.layout.Release()
}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) *wgpuRendererBackendImpl {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: sampleCount,
		ledger:      &bufferLedger{},
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	// Point clouds need the adapter's full storage binding size, not the WebGPU default limit.
	supported := a.GetLimits().Limits
	limits := wgpu.DefaultLimits()
	limits.MaxStorageBufferBindingSize = supported.MaxStorageBufferBindingSize
	limits.MaxBufferSize = supported.MaxBufferSize

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()
	w.limits = Limits{
		MaxStorageBufferBindingSize:      limits.MaxStorageBufferBindingSize,
		MaxBufferSize:                    limits.MaxBufferSize,
		MaxComputeWorkgroupsPerDimension: limits.MaxComputeWorkgroupsPerDimension,
	}

	logger.Info("wgpu device ready",
		zap.Bool("fallback_adapter", forceFallbackAdapter),
		zap.Uint64("max_buffer_size", w.limits.MaxBufferSize),
	)
	return w
}

func (b *wgpuRendererBackendImpl) Limits() Limits {
	return b.limits
}

func (b *wgpuRendererBackendImpl) LiveBuffers() (int, uint64) {
	return b.ledger.snapshot()
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.targets.release()
	targets, err := newRenderTargets(b.device, *b.surfaceFormat, width, height, b.sampleCount)
	if err != nil {
		panic(err)
	}
	b.targets = targets
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (resource.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	b.ledger.add(size)
	return &wgpuBuffer{buf: buf, label: label, size: size, usage: usage, ledger: b.ledger}, nil
}

// unwrapBuffer returns the device buffer behind a handle created by this backend.
func (b *wgpuRendererBackendImpl) unwrapBuffer(buf resource.Buffer) (*wgpu.Buffer, error) {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return nil, ErrForeignResource
	}
	if wb.Released() {
		return nil, ErrBufferReleased
	}
	return wb.buf, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf resource.Buffer, offset uint64, data []byte) error {
	dst, err := b.unwrapBuffer(buf)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(dst, offset, data)
	return nil
}

func (b *wgpuRendererBackendImpl) ReadBuffer(ctx context.Context, buf resource.Buffer) ([]byte, error) {
	src, err := b.unwrapBuffer(buf)
	if err != nil {
		return nil, err
	}
	size := buf.Size()

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: buf.Label() + " Readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	b.mu.Lock()
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.mu.Unlock()

	done := make(chan wgpu.BufferMapAsyncStatus, 1)
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		done <- s
	})
	if err != nil {
		return nil, err
	}

	for {
		b.device.Poll(false, nil)
		select {
		case status := <-done:
			if status != wgpu.BufferMapAsyncStatusSuccess {
				return nil, fmt.Errorf("map %q for reading: status %v", buf.Label(), status)
			}
			out := make([]byte, size)
			copy(out, staging.GetMappedRange(0, uint(size)))
			staging.Unmap()
			return out, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(readbackPollInterval):
		}
	}
}

func (b *wgpuRendererBackendImpl) CreateBindGroup(label string, descriptor wgpu.BindGroupLayoutDescriptor, buffers map[int]resource.Buffer) (resource.BindGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layout, err := b.device.CreateBindGroupLayout(&descriptor)
	if err != nil {
		return nil, err
	}

	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		buf, err := b.unwrapBuffer(buffers[int(entry.Binding)])
		if err != nil {
			layout.Release()
			return nil, fmt.Errorf("binding %d: %w", entry.Binding, err)
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: entry.Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		layout.Release()
		return nil, err
	}
	return &wgpuBindGroup{group: group, layout: layout, label: label}, nil
}

// bindGroupHandle returns the device bind group behind a provider.
func bindGroupHandle(provider bind_group_provider.BindGroupProvider) (*wgpu.BindGroup, error) {
	if provider == nil || provider.BindGroup() == nil {
		return nil, errors.New("provider has no bind group; call InitBindGroup first")
	}
	g, ok := provider.BindGroup().(*wgpuBindGroup)
	if !ok {
		return nil, ErrForeignResource
	}
	return g.group, nil
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.computeFrameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	computeProvider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	bindGroup, err := bindGroupHandle(computeProvider)
	if err != nil {
		return err
	}
	for _, n := range workGroupCount {
		if n > b.limits.MaxComputeWorkgroupsPerDimension {
			return fmt.Errorf("workgroup count %v exceeds %d per dimension", workGroupCount, b.limits.MaxComputeWorkgroupsPerDimension)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	computePipeline := p.Pipeline().(*wgpu.ComputePipeline)
	pass := b.computeFrameEncoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	return nil
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder := b.computeFrameEncoder
	b.computeFrameEncoder = nil
	defer encoder.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

// createPipelineLayout creates one bind group layout per group index and the pipeline layout over them.
func (b *wgpuRendererBackendImpl) createPipelineLayout(label string, descriptors map[int]wgpu.BindGroupLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, desc := range descriptors {
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		bindGroupLayouts[g] = layout
	}
	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: bindGroupLayouts,
	})
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return err
	}
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return err
	}

	pipelineLayout, err := b.createPipelineLayout(p.Key(), pipelineLayouts(p))
	if err != nil {
		return err
	}

	state := p.RenderState()
	depthCompare := wgpu.CompareFunctionLess
	if !state.DepthTest {
		depthCompare = wgpu.CompareFunctionAlways
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.Key() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexBuffers(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{{
				Format:    *b.surfaceFormat,
				Blend:     state.Blend,
				WriteMask: state.WriteMask,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  state.Topology,
			FrontFace: state.FrontFace,
			CullMode:  state.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              DepthFormat,
			DepthWriteEnabled:   state.DepthWrite,
			DepthCompare:        depthCompare,
			DepthBias:           state.DepthBias,
			DepthBiasSlopeScale: state.DepthBiasSlopeScale,
			StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	})
	if err != nil {
		return err
	}

	p.SetPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	computeShader := p.Shader(shader.ShaderTypeCompute)
	s, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}

	layout, err := b.createPipelineLayout(p.Key(), pipelineLayouts(p))
	if err != nil {
		return err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.Key() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A held surface texture means the previous frame was never presented.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	pass := encoder.BeginRenderPass(b.targets.pass(view))

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(
	p pipeline.Pipeline,
	mesh bind_group_provider.BindGroupProvider,
	bindGroups []bind_group_provider.BindGroupProvider,
) error {
	vertexBuffer, err := b.unwrapBuffer(mesh.VertexBuffer())
	if err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	groups := make([]*wgpu.BindGroup, len(bindGroups))
	for i, bg := range bindGroups {
		if groups[i], err = bindGroupHandle(bg); err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.SetPipeline(p.Pipeline().(*wgpu.RenderPipeline))
	for i, g := range groups {
		b.framePass.SetBindGroup(uint32(i), g, nil)
	}
	b.framePass.SetVertexBuffer(0, vertexBuffer, 0, wgpu.WholeSize)
	b.framePass.Draw(mesh.VertexCount(), 1, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.End()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameSurface = nil
		b.frameView = nil
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) WaitIdle() {
	b.device.Poll(true, nil)
}

func (b *wgpuRendererBackendImpl) Snapshot() (*image.RGBA, error) {
	return nil, ErrUnsupported
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.targets.release()
	b.targets = nil
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
}
