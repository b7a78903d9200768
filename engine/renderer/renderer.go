package renderer

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// bufferAlignment is the granularity every buffer size and write length is rounded up to.
const bufferAlignment = 4

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	computeOpen bool
	frameOpen   bool
	stats       Stats

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	workers              int
	limits               *Limits
	frameSize            [2]int
}

// Renderer is the GPU resource facade. Every component allocates, writes, reads, dispatches and
// draws through it, so the device is reached through one explicit handle passed to constructors.
//
// Per frame the owner drives two phases in order:
//  1. BeginComputeFrame, any number of DispatchCompute, EndComputeFrame
//  2. BeginFrame, any number of DrawCall, EndFrame, Present
type Renderer interface {
	// BackendType reports which backend the renderer was created with.
	BackendType() RendererBackendType

	// Limits reports the device limits allocations and dispatches are validated against.
	//
	// Returns:
	//   - Limits: the active device limits
	Limits() Limits

	// CreateBuffer allocates a zero-filled buffer. The size is rounded up to a multiple of 4 bytes.
	//
	// Parameters:
	//   - label: a debug label
	//   - size: the requested size in bytes
	//   - usage: the wgpu usage flags
	//
	// Returns:
	//   - resource.Buffer: the new buffer
	//   - error: a *ResourceLimitError when the rounded size exceeds MaxBufferSize
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (resource.Buffer, error)

	// CreateBufferInit allocates a buffer sized to data rounded up to 4 bytes and writes data into it.
	// When the rounded size differs from len(data) a zero-padded copy is written instead of data.
	//
	// Parameters:
	//   - label: a debug label
	//   - usage: the wgpu usage flags; CopyDst is added
	//   - data: the initial contents
	//
	// Returns:
	//   - resource.Buffer: the new buffer
	//   - error: a *ResourceLimitError or a backend error
	CreateBufferInit(label string, usage wgpu.BufferUsage, data []byte) (resource.Buffer, error)

	// WriteBuffer queues a write of data at offset. Lengths that are not a multiple of 4 are
	// written from a zero-padded copy. Writes that would extend past the end of the buffer are rejected.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the byte offset, a multiple of 4
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error for misaligned offsets, out of range writes or released buffers
	WriteBuffer(buf resource.Buffer, offset uint64, data []byte) error

	// WriteBuffers writes each staged write into the buffer its provider holds at the given binding.
	// Writes whose provider has no buffer at that binding are skipped.
	//
	// Parameters:
	//   - writes: the staged writes
	//
	// Returns:
	//   - error: the first write error
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// ReadBuffer copies the buffer back to host memory after all submitted work completes.
	// The buffer must have been created with wgpu.BufferUsageCopySrc.
	//
	// Parameters:
	//   - ctx: cancels the wait for the device
	//   - buf: the buffer to read
	//
	// Returns:
	//   - []byte: the buffer contents
	//   - error: ctx.Err() on cancellation or a backend error
	ReadBuffer(ctx context.Context, buf resource.Buffer) ([]byte, error)

	// Pipeline retrieves the registered Pipeline for key, or nil.
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves a copy of the pipeline cache.
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines creates the backend objects for each pipeline and caches it by key.
	// Keys that are already registered are skipped. Compute pipelines must declare a
	// @workgroup_size equal to dispatch.WorkgroupSize.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if validation or backend creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// BindGroupLayoutDescriptor returns the layout of one bind group of a registered pipeline.
	// For render pipelines the vertex and fragment layouts are merged.
	//
	// Parameters:
	//   - pipelineKey: the registered pipeline key
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout descriptor
	//   - error: ErrPipelineNotFound if the key is unknown
	BindGroupLayoutDescriptor(pipelineKey string, group int) (wgpu.BindGroupLayoutDescriptor, error)

	// InitBindGroup builds the provider's bind group. Bindings the provider has no buffer for are
	// allocated from the descriptor's MinBindingSize and attached as owned buffers.
	//
	// Parameters:
	//   - provider: the provider to fill in
	//   - descriptor: the layout descriptor defining the entries
	//
	// Returns:
	//   - error: an error if a buffer or the bind group could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// BeginComputeFrame opens the single command encoder all dispatches of the frame record into.
	//
	// Returns:
	//   - error: ErrComputeFrameOpen if a frame is already open
	BeginComputeFrame() error

	// DispatchCompute records a dispatch of the registered compute pipeline with the provider's
	// bind group at group 0.
	//
	// Parameters:
	//   - pipelineKey: the registered compute pipeline
	//   - provider: the provider whose bind group is bound
	//   - workGroupCount: workgroups per dimension, usually from dispatch.Grid.Workgroups
	//
	// Returns:
	//   - error: ErrNoComputeFrame, ErrPipelineNotFound or a backend validation error
	DispatchCompute(pipelineKey string, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// EndComputeFrame submits the recorded dispatches in order.
	//
	// Returns:
	//   - error: ErrNoComputeFrame or a submission error
	EndComputeFrame() error

	// BeginFrame acquires the frame target and begins the main render pass.
	BeginFrame() error

	// DrawCall draws mesh.VertexCount() vertices of the mesh's vertex buffer with the registered
	// render pipeline, binding bindGroups[i] at group i.
	//
	// Parameters:
	//   - pipelineKey: the registered render pipeline
	//   - mesh: the provider holding the vertex buffer and count
	//   - bindGroups: providers whose bind groups are bound in order
	//
	// Returns:
	//   - error: ErrNoFrame, ErrPipelineNotFound or a backend error
	DrawCall(pipelineKey string, mesh bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame ends the render pass and submits it.
	EndFrame() error

	// Present displays the frame and releases the frame target.
	Present()

	// Resize reconfigures the surface and the MSAA and depth targets.
	Resize(width, height int)

	// SetPresentMode changes the present mode; it takes effect on the next Resize.
	SetPresentMode(mode PresentMode)

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle()

	// Snapshot returns a copy of the last presented frame.
	//
	// Returns:
	//   - *image.RGBA: the frame
	//   - error: ErrUnsupported on backends that present to a window only
	Snapshot() (*image.RGBA, error)

	// Stats returns the facade's counters.
	Stats() Stats

	// Release waits for the device and frees the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer on the selected backend. The wgpu backend requires a surface and
// panics when no adapter or device is available; the software backend accepts a nil surface.
//
// Parameters:
//   - backendType: the backend to create
//   - surface: the window surface, or nil for the software backend
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the configured renderer
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		frameSize:     [2]int{640, 480},
	}
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	width, height := r.frameSize[0], r.frameSize[1]
	if surface != nil {
		width, height = surface.Width(), surface.Height()
	}

	switch backendType {
	case BackendTypeSoftware:
		r.backend = newSoftwareRendererBackend(r.workers, r.limits)
	case BackendTypeWGPU:
		fallthrough
	default:
		if surface == nil {
			panic("renderer: the wgpu backend requires a surface")
		}
		r.backend = newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.ConfigureSurface(width, height)

	limits := r.backend.Limits()
	logger.Info("renderer created",
		zap.Stringer("backend", backendType),
		zap.Uint32("msaa", uint32(msaa)),
		zap.Uint64("max_storage_binding", limits.MaxStorageBufferBindingSize),
		zap.Uint32("max_workgroups_per_dim", limits.MaxComputeWorkgroupsPerDimension),
	)
	return r
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Limits() Limits {
	return r.backend.Limits()
}

func (r *renderer) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (resource.Buffer, error) {
	aligned := common.AlignUp(size, bufferAlignment)
	if limit := r.backend.Limits().MaxBufferSize; limit > 0 && aligned > limit {
		return nil, &ResourceLimitError{Label: label, Requested: aligned, Limit: limit}
	}
	buf, err := r.backend.CreateBuffer(label, aligned, usage)
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	return buf, nil
}

func (r *renderer) CreateBufferInit(label string, usage wgpu.BufferUsage, data []byte) (resource.Buffer, error) {
	buf, err := r.CreateBuffer(label, uint64(len(data)), usage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return buf, nil
	}
	if err := r.backend.WriteBuffer(buf, 0, padded(data, buf.Size())); err != nil {
		buf.Release()
		return nil, fmt.Errorf("initialize buffer %q: %w", label, err)
	}
	return buf, nil
}

func (r *renderer) WriteBuffer(buf resource.Buffer, offset uint64, data []byte) error {
	if buf == nil {
		return fmt.Errorf("write buffer: nil buffer")
	}
	if buf.Released() {
		return fmt.Errorf("write buffer %q: %w", buf.Label(), ErrBufferReleased)
	}
	if offset%bufferAlignment != 0 {
		return fmt.Errorf("write buffer %q: offset %d is not a multiple of %d", buf.Label(), offset, bufferAlignment)
	}
	aligned := common.AlignUp(uint64(len(data)), bufferAlignment)
	if offset+aligned > buf.Size() {
		return fmt.Errorf("write buffer %q: %d bytes at offset %d overruns size %d", buf.Label(), aligned, offset, buf.Size())
	}
	if aligned == 0 {
		return nil
	}
	return r.backend.WriteBuffer(buf, offset, padded(data, aligned))
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		if err := r.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) ReadBuffer(ctx context.Context, buf resource.Buffer) ([]byte, error) {
	if buf == nil {
		return nil, fmt.Errorf("read buffer: nil buffer")
	}
	if buf.Released() {
		return nil, fmt.Errorf("read buffer %q: %w", buf.Label(), ErrBufferReleased)
	}
	if buf.Usage()&wgpu.BufferUsageCopySrc == 0 {
		return nil, fmt.Errorf("read buffer %q: created without CopySrc usage", buf.Label())
	}
	return r.backend.ReadBuffer(ctx, buf)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, v := range r.pipelineCache {
		out[k] = v
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.Key()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			cs := p.Shader(shader.ShaderTypeCompute)
			if cs == nil {
				return fmt.Errorf("register %q: compute shader must be set", key)
			}
			if wg := cs.WorkgroupSize(); wg != [3]uint32{dispatch.WorkgroupSize, 1, 1} {
				return fmt.Errorf("register %q: workgroup size %v, kernels must use [%d 1 1]", key, wg, dispatch.WorkgroupSize)
			}
			if err := r.backend.RegisterComputePipeline(p); err != nil {
				return fmt.Errorf("register %q: %w", key, err)
			}
		case pipeline.PipelineTypeRender:
			if p.Shader(shader.ShaderTypeVertex) == nil || p.Shader(shader.ShaderTypeFragment) == nil {
				return fmt.Errorf("register %q: both vertex and fragment shaders must be set", key)
			}
			if err := r.backend.RegisterRenderPipeline(p); err != nil {
				return fmt.Errorf("register %q: %w", key, err)
			}
		}
		r.pipelineCache[key] = p
		logger.Debug("pipeline registered", zap.String("key", key))
	}
	return nil
}

func (r *renderer) BindGroupLayoutDescriptor(pipelineKey string, group int) (wgpu.BindGroupLayoutDescriptor, error) {
	p := r.Pipeline(pipelineKey)
	if p == nil {
		return wgpu.BindGroupLayoutDescriptor{}, fmt.Errorf("%w: %q", ErrPipelineNotFound, pipelineKey)
	}
	return pipelineLayouts(p)[group], nil
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	if len(descriptor.Entries) == 0 {
		return nil
	}

	buffers := provider.Buffers()
	for _, entry := range descriptor.Entries {
		binding := int(entry.Binding)
		if buf, ok := buffers[binding]; ok && buf != nil {
			if buf.Released() {
				return fmt.Errorf("bind group %q binding %d: %w", provider.Label(), binding, ErrBufferReleased)
			}
			continue
		}
		var usage wgpu.BufferUsage
		switch entry.Buffer.Type {
		case wgpu.BufferBindingTypeUniform:
			usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
		case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
			usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
		default:
			return fmt.Errorf("bind group %q binding %d: only buffer bindings are supported", provider.Label(), binding)
		}
		buf, err := r.CreateBuffer(fmt.Sprintf("%s binding %d", provider.Label(), binding), entry.Buffer.MinBindingSize, usage)
		if err != nil {
			return err
		}
		provider.SetBuffer(binding, buf)
		buffers[binding] = buf
	}

	bg, err := r.backend.CreateBindGroup(provider.Label()+" Bind Group", descriptor, buffers)
	if err != nil {
		return fmt.Errorf("bind group %q: %w", provider.Label(), err)
	}
	provider.SetBindGroup(bg)

	r.mu.Lock()
	r.stats.BindGroupsCreated++
	r.mu.Unlock()
	return nil
}

func (r *renderer) BeginComputeFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.computeOpen {
		return ErrComputeFrameOpen
	}
	if err := r.backend.BeginComputeFrame(); err != nil {
		return err
	}
	r.computeOpen = true
	return nil
}

func (r *renderer) DispatchCompute(pipelineKey string, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.computeOpen {
		return ErrNoComputeFrame
	}
	p, exists := r.pipelineCache[pipelineKey]
	if !exists || p.Type() != pipeline.PipelineTypeCompute {
		return fmt.Errorf("%w: compute %q", ErrPipelineNotFound, pipelineKey)
	}
	if err := r.backend.DispatchCompute(p, provider, workGroupCount); err != nil {
		return fmt.Errorf("dispatch %q: %w", pipelineKey, err)
	}
	r.stats.Dispatches++
	return nil
}

func (r *renderer) EndComputeFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.computeOpen {
		return ErrNoComputeFrame
	}
	r.computeOpen = false
	r.stats.Submissions++
	return r.backend.EndComputeFrame()
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	r.frameOpen = true
	return nil
}

func (r *renderer) DrawCall(pipelineKey string, mesh bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.frameOpen {
		return ErrNoFrame
	}
	p, exists := r.pipelineCache[pipelineKey]
	if !exists || p.Type() != pipeline.PipelineTypeRender {
		return fmt.Errorf("%w: render %q", ErrPipelineNotFound, pipelineKey)
	}
	if err := r.backend.DrawCall(p, mesh, bindGroups); err != nil {
		return fmt.Errorf("draw %q: %w", pipelineKey, err)
	}
	r.stats.DrawCalls++
	r.stats.VerticesDrawn += uint64(mesh.VertexCount())
	return nil
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.frameOpen {
		return ErrNoFrame
	}
	r.frameOpen = false
	r.stats.Submissions++
	return r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) WaitIdle() {
	r.backend.WaitIdle()
}

func (r *renderer) Snapshot() (*image.RGBA, error) {
	return r.backend.Snapshot()
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	s := r.stats
	r.mu.Unlock()
	s.LiveBuffers, s.BufferBytes = r.backend.LiveBuffers()
	return s
}

func (r *renderer) Release() {
	r.backend.WaitIdle()
	r.backend.Release()
}

// padded returns data when it is already size bytes long, otherwise a zero-padded copy of
// length size.
func padded(data []byte, size uint64) []byte {
	if uint64(len(data)) == size {
		return data
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}
