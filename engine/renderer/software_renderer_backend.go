package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-luv/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/compute"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// Default limits of the software backend. They match what common desktop adapters report.
const (
	softwareMaxStorageBinding = 128 << 20
	softwareMaxBufferSize     = 256 << 20
)

// softwareClearValue is the clear color of the main render pass, matching the wgpu backend.
const softwareClearValue = 0.1

// recordedDispatch is one DispatchCompute call waiting for EndComputeFrame.
type recordedDispatch struct {
	key       string
	kernel    compute.Kernel
	group     *softwareBindGroup
	groupSize [3]uint32
	counts    [3]uint32
}

// softwareRendererBackendImpl runs compute kernels on a worker pool and rasterizes point lists
// into an RGBA frame with a depth buffer.
type softwareRendererBackendImpl struct {
	mu     *sync.Mutex
	limits Limits
	ledger *bufferLedger

	pool    worker.DynamicWorkerPool
	workers int

	recorded []recordedDispatch

	width, height int
	target        *image.RGBA
	depth         []float32
	presented     *image.RGBA
}

var _ RendererBackend = &softwareRendererBackendImpl{}

func newSoftwareRendererBackend(workers int, limits *Limits) *softwareRendererBackendImpl {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	b := &softwareRendererBackendImpl{
		mu:      &sync.Mutex{},
		ledger:  &bufferLedger{},
		pool:    worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		workers: workers,
		limits: Limits{
			MaxStorageBufferBindingSize:      softwareMaxStorageBinding,
			MaxBufferSize:                    softwareMaxBufferSize,
			MaxComputeWorkgroupsPerDimension: dispatch.DefaultLimit,
		},
	}
	if limits != nil {
		b.limits = *limits
	}
	logger.Debug("software backend ready", zap.Int("workers", workers))
	return b
}

func (b *softwareRendererBackendImpl) Limits() Limits {
	return b.limits
}

func (b *softwareRendererBackendImpl) LiveBuffers() (int, uint64) {
	return b.ledger.snapshot()
}

func (b *softwareRendererBackendImpl) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (resource.Buffer, error) {
	return newSoftwareBuffer(label, size, usage, b.ledger), nil
}

func (b *softwareRendererBackendImpl) unwrapBuffer(buf resource.Buffer) (*softwareBuffer, error) {
	sb, ok := buf.(*softwareBuffer)
	if !ok {
		return nil, ErrForeignResource
	}
	if sb.Released() {
		return nil, ErrBufferReleased
	}
	return sb, nil
}

func (b *softwareRendererBackendImpl) WriteBuffer(buf resource.Buffer, offset uint64, data []byte) error {
	sb, err := b.unwrapBuffer(buf)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	copy(sb.bytes()[offset:], data)
	return nil
}

func (b *softwareRendererBackendImpl) ReadBuffer(ctx context.Context, buf resource.Buffer) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sb, err := b.unwrapBuffer(buf)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, sb.Size())
	copy(out, sb.bytes())
	return out, nil
}

func (b *softwareRendererBackendImpl) CreateBindGroup(label string, descriptor wgpu.BindGroupLayoutDescriptor, buffers map[int]resource.Buffer) (resource.BindGroup, error) {
	g := &softwareBindGroup{label: label, buffers: make(map[int]*softwareBuffer, len(descriptor.Entries))}
	for _, entry := range descriptor.Entries {
		sb, err := b.unwrapBuffer(buffers[int(entry.Binding)])
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", entry.Binding, err)
		}
		if entry.Buffer.Type == wgpu.BufferBindingTypeStorage || entry.Buffer.Type == wgpu.BufferBindingTypeReadOnlyStorage {
			if sb.Size() > b.limits.MaxStorageBufferBindingSize {
				return nil, &ResourceLimitError{Label: sb.Label(), Requested: sb.Size(), Limit: b.limits.MaxStorageBufferBindingSize}
			}
		}
		if sb.Size() < entry.Buffer.MinBindingSize {
			return nil, fmt.Errorf("binding %d: buffer %q is %d bytes, layout needs %d", entry.Binding, sb.Label(), sb.Size(), entry.Buffer.MinBindingSize)
		}
		g.buffers[int(entry.Binding)] = sb
	}
	return g, nil
}

// softwareGroup returns the software bind group behind a provider.
func softwareGroup(provider bind_group_provider.BindGroupProvider) (*softwareBindGroup, error) {
	if provider == nil || provider.BindGroup() == nil {
		return nil, errors.New("provider has no bind group; call InitBindGroup first")
	}
	g, ok := provider.BindGroup().(*softwareBindGroup)
	if !ok {
		return nil, ErrForeignResource
	}
	return g, nil
}

func (b *softwareRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if p.Kernel() == nil {
		return fmt.Errorf("%w: compute pipeline %q has no Go kernel", ErrUnsupported, p.Key())
	}
	p.SetPipeline(p.Kernel())
	return nil
}

func (b *softwareRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if p.Vertex() == nil {
		return fmt.Errorf("%w: render pipeline %q has no Go vertex stage", ErrUnsupported, p.Key())
	}
	layouts := p.Shader(shader.ShaderTypeVertex).VertexBuffers()
	if len(layouts) == 0 || layouts[0].ArrayStride == 0 {
		return fmt.Errorf("render pipeline %q declares no vertex input struct", p.Key())
	}
	p.SetPipeline(p.Vertex())
	return nil
}

func (b *softwareRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recorded = b.recorded[:0]
	return nil
}

func (b *softwareRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	computeProvider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	g, err := softwareGroup(computeProvider)
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
	b.recorded = append(b.recorded, recordedDispatch{
		key:       p.Key(),
		kernel:    p.Kernel(),
		group:     g,
		groupSize: p.Shader(shader.ShaderTypeCompute).WorkgroupSize(),
		counts:    workGroupCount,
	})
	return nil
}

// EndComputeFrame runs the recorded dispatches in submission order. Each dispatch completes
// before the next one starts, matching the ordering of passes within one command buffer.
func (b *softwareRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	recorded := b.recorded
	b.recorded = b.recorded[:0]

	for _, d := range recorded {
		if err := b.run(d); err != nil {
			return fmt.Errorf("dispatch %q: %w", d.key, err)
		}
	}
	return nil
}

// run executes one dispatch, spreading its workgroups across the worker pool.
func (b *softwareRendererBackendImpl) run(d recordedDispatch) error {
	if d.group.released {
		return fmt.Errorf("bind group %q: %w", d.group.label, ErrBufferReleased)
	}
	total := uint64(d.counts[0]) * uint64(d.counts[1]) * uint64(d.counts[2])
	if total == 0 {
		return nil
	}
	lane, err := d.kernel(d.group)
	if err != nil {
		return err
	}

	chunks := min(uint64(b.workers), total)
	per := (total + chunks - 1) / chunks

	var wg sync.WaitGroup
	for c := range chunks {
		start := c * per
		end := min(start+per, total)
		if start >= end {
			break
		}
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: int(c),
			Do: func() (any, error) {
				defer wg.Done()
				runWorkgroups(lane, d.counts, d.groupSize, start, end)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return nil
}

// runWorkgroups invokes lane for every invocation of the linear workgroup range [start, end).
func runWorkgroups(lane compute.Lane, counts, size [3]uint32, start, end uint64) {
	nx, ny := uint64(counts[0]), uint64(counts[1])
	for k := start; k < end; k++ {
		wgID := [3]uint32{uint32(k % nx), uint32((k / nx) % ny), uint32(k / (nx * ny))}
		for lz := range size[2] {
			for ly := range size[1] {
				for lx := range size[0] {
					lane(compute.Invocation{
						GlobalID: [3]uint32{
							wgID[0]*size[0] + lx,
							wgID[1]*size[1] + ly,
							wgID[2]*size[2] + lz,
						},
						LocalID:       [3]uint32{lx, ly, lz},
						WorkgroupID:   wgID,
						NumWorkgroups: counts,
					})
				}
			}
		}
	}
}

func (b *softwareRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	gray := toByte(softwareClearValue)
	pix := b.target.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = gray, gray, gray, 255
	}
	for i := range b.depth {
		b.depth[i] = 1.0
	}
	return nil
}

// DrawCall rasterizes each vertex as a one pixel point. Clip space follows WebGPU: x and y in
// [-1, 1] with y up, depth in [0, 1].
func (b *softwareRendererBackendImpl) DrawCall(
	p pipeline.Pipeline,
	mesh bind_group_provider.BindGroupProvider,
	bindGroups []bind_group_provider.BindGroupProvider,
) error {
	vb, err := b.unwrapBuffer(mesh.VertexBuffer())
	if err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	groups := make([]compute.Bindings, len(bindGroups))
	for i, provider := range bindGroups {
		g, err := softwareGroup(provider)
		if err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
		groups[i] = g
	}
	lane, err := p.Vertex()(groups)
	if err != nil {
		return err
	}

	stride := int(p.Shader(shader.ShaderTypeVertex).VertexBuffers()[0].ArrayStride / 4)
	attrs := vb.floats()
	count := int(mesh.VertexCount())
	if count*stride > len(attrs) {
		return fmt.Errorf("vertex buffer %q holds %d floats, %d vertices need %d", vb.Label(), len(attrs), count, count*stride)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	state := p.RenderState()
	depthTest, depthWrite := state.DepthTest, state.DepthWrite
	w, h := float32(b.width), float32(b.height)
	for v := range count {
		clip, col := lane(attrs[v*stride : (v+1)*stride])
		if clip[3] <= 0 {
			continue
		}
		x, y, z := clip[0]/clip[3], clip[1]/clip[3], clip[2]/clip[3]
		if x < -1 || x > 1 || y < -1 || y > 1 || z < 0 || z > 1 {
			continue
		}
		px := min(int((x+1)*0.5*w), b.width-1)
		py := min(int((1-y)*0.5*h), b.height-1)
		idx := py*b.width + px
		if depthTest && !(z < b.depth[idx]) {
			continue
		}
		if depthWrite {
			b.depth[idx] = z
		}
		b.target.SetRGBA(px, py, color.RGBA{R: toByte(col[0]), G: toByte(col[1]), B: toByte(col[2]), A: toByte(col[3])})
	}
	return nil
}

func (b *softwareRendererBackendImpl) EndFrame() error {
	return nil
}

func (b *softwareRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.presented == nil || b.presented.Rect != b.target.Rect {
		b.presented = image.NewRGBA(b.target.Rect)
	}
	copy(b.presented.Pix, b.target.Pix)
}

func (b *softwareRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = max(width, 1), max(height, 1)
	b.target = image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	b.depth = make([]float32, b.width*b.height)
}

func (b *softwareRendererBackendImpl) SetPresentMode(PresentMode) {}

// WaitIdle returns immediately; dispatches complete inside EndComputeFrame.
func (b *softwareRendererBackendImpl) WaitIdle() {}

func (b *softwareRendererBackendImpl) Snapshot() (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.presented == nil {
		return nil, ErrNoFrame
	}
	out := image.NewRGBA(b.presented.Rect)
	copy(out.Pix, b.presented.Pix)
	return out, nil
}

func (b *softwareRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target, b.presented, b.depth = nil, nil, nil
	b.recorded = nil
}

// toByte converts a [0, 1] channel to 8 bits, clamping out of range values.
func toByte(c float32) uint8 {
	return uint8(math32.Round(min(max(c, 0), 1) * 255))
}
