// Package pointcloud owns a GPU resident point buffer, the kernels that clear and transform it in
// place, and the render pass that draws it as a point list.
//
// A cloud carries two independent transforms. The model transform (SetTransform and friends)
// only feeds the 64-byte model matrix of the raster pass. ApplyTransform and its Translate, Rotate
// and Scale forms are baked into the stored positions by a compute dispatch, so successive calls
// compound.
package pointcloud

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/camera"
	"github.com/Carmen-Shannon/oxy-luv/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// cloudCount generates default labels.
var cloudCount atomic.Uint64

// Bindings of the transform and render bind groups.
const (
	verticesBinding = 0
	paramsBinding   = 1
	cameraBinding   = 0
	modelBinding    = 1
)

// Populator fills a cloud's vertex buffer. Generators implement it.
type Populator interface {
	// Name identifies the populator in logs.
	Name() string

	// PointCount is the number of points Populate writes.
	PointCount() uint32

	// Populate writes count point records into vertices through r.
	Populate(r renderer.Renderer, vertices resource.Buffer, count uint32) error

	// PresentationRotation is applied through ApplyTransform after Populate. The zero vector means none.
	PresentationRotation() common.Vec3
}

type pointCloud struct {
	mu *sync.Mutex

	r     renderer.Renderer
	cam   camera.Camera
	label string
	count uint32
	grid  dispatch.Grid

	transform common.Transform

	// mesh owns the vertex buffer; the other providers borrow it.
	mesh        bind_group_provider.BindGroupProvider
	clearer     bind_group_provider.BindGroupProvider
	transformer bind_group_provider.BindGroupProvider
	render      bind_group_provider.BindGroupProvider

	destroyed bool
}

// PointCloud is a GPU point buffer of interleaved [x, y, z, r, g, b] float32 records.
type PointCloud interface {
	// Label returns the cloud's label.
	Label() string

	// Count returns the number of points.
	Count() uint32

	// Grid returns the dispatch grid every kernel over this cloud uses.
	Grid() dispatch.Grid

	// VertexBuffer returns the vertex buffer. It must not be retained past Destroy.
	VertexBuffer() resource.Buffer

	// Generate runs the populator then its presentation rotation.
	//
	// Parameters:
	//   - p: the populator to run
	//
	// Returns:
	//   - error: ErrCountMismatch if p.PointCount() differs from Count, or a dispatch error
	Generate(p Populator) error

	// ApplyTransform bakes a transform into the stored positions: rotation about X then Y then Z,
	// then componentwise scale, then translation. Colors are untouched.
	//
	// Parameters:
	//   - translation: added last
	//   - rotation: Euler angles in radians; zero axes are skipped
	//   - scale: componentwise multiplier
	//
	// Returns:
	//   - error: a write or dispatch error
	ApplyTransform(translation, rotation, scale common.Vec3) error

	// Translate is ApplyTransform(t, 0, 1).
	Translate(x, y, z float32) error

	// Rotate is ApplyTransform(0, r, 1).
	Rotate(x, y, z float32) error

	// Scale is ApplyTransform(0, 0, s).
	Scale(x, y, z float32) error

	// Transform returns the model transform.
	Transform() common.Transform

	// SetTransform replaces the model transform and rewrites the model matrix.
	SetTransform(t common.Transform) error

	// SetPosition replaces the model translation.
	SetPosition(p common.Vec3) error

	// SetRotation replaces the model rotation.
	SetRotation(q common.Quat) error

	// SetScale replaces the model scale.
	SetScale(s common.Vec3) error

	// Render draws the cloud into the open frame. The render bind group is created on the first call
	// and reused afterwards.
	//
	// Returns:
	//   - error: renderer.ErrNoFrame outside BeginFrame/EndFrame, or a draw error
	Render() error

	// ReadVertices copies the vertex buffer back to the host.
	//
	// Parameters:
	//   - ctx: cancels the wait for the device
	//
	// Returns:
	//   - []float32: count*6 floats
	//   - error: a readback error
	ReadVertices(ctx context.Context) ([]float32, error)

	// Destroy waits for the device, then releases the owned buffers and bind groups.
	// Calling it again is a no-op.
	Destroy()
}

var _ PointCloud = &pointCloud{}

// New allocates a cloud of count points on r, zero-fills it with the clear kernel and writes the
// model matrix. The render bind group is built lazily by Render.
//
// Parameters:
//   - r: the renderer owning the device
//   - cam: the camera whose uniform buffer the render pass borrows
//   - count: the number of points
//   - options: variadic list of PointCloudBuilderOption functions
//
// Returns:
//   - PointCloud: the new cloud
//   - error: ErrEmptyCloud, *renderer.ResourceLimitError, *dispatch.DispatchLimitError or a setup error
func New(r renderer.Renderer, cam camera.Camera, count uint32, options ...PointCloudBuilderOption) (PointCloud, error) {
	if count == 0 {
		return nil, ErrEmptyCloud
	}
	pc := &pointCloud{
		mu:        &sync.Mutex{},
		r:         r,
		cam:       cam,
		count:     count,
		label:     "pointcloud_" + strconv.FormatUint(cloudCount.Add(1)-1, 10),
		transform: common.IdentityTransform(),
	}
	for _, opt := range options {
		opt(pc)
	}

	limits := r.Limits()
	size := uint64(count) * PointStride
	if limit := limits.MaxStorageBufferBindingSize; size > limit {
		return nil, &renderer.ResourceLimitError{Label: pc.label + " vertices", Requested: size, Limit: limit}
	}
	grid, err := dispatch.NewPlanner(limits.MaxComputeWorkgroupsPerDimension).Plan(count, dispatch.WorkgroupSize)
	if err != nil {
		return nil, err
	}
	pc.grid = grid

	if err := EnsurePipelines(r); err != nil {
		return nil, err
	}
	if err := pc.allocate(size); err != nil {
		pc.release()
		return nil, err
	}
	if err := pc.dispatch(ClearPipelineKey, pc.clearer); err != nil {
		pc.release()
		return nil, fmt.Errorf("clear %s: %w", pc.label, err)
	}

	logger.Debug("point cloud created",
		zap.String("label", pc.label),
		zap.Uint32("points", count),
		zap.Uint32("groups_x", grid.X),
		zap.Uint32("groups_y", grid.Y),
	)
	return pc, nil
}

// allocate creates the three owned buffers and the compute bind groups.
func (pc *pointCloud) allocate(size uint64) error {
	vertices, err := pc.r.CreateBuffer(pc.label+" vertices", size,
		wgpu.BufferUsageVertex|wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst|wgpu.BufferUsageCopySrc)
	if err != nil {
		return err
	}
	pc.mesh = bind_group_provider.NewBindGroupProvider(pc.label + " mesh")
	pc.mesh.SetVertexBuffer(vertices, pc.count, true)

	params := GPUTransformParams{Scale: common.One3}
	paramsBuf, err := pc.r.CreateBufferInit(pc.label+" transform", wgpu.BufferUsageUniform, params.Marshal())
	if err != nil {
		return err
	}
	pc.transformer = bind_group_provider.NewBindGroupProvider(pc.label+" transform",
		bind_group_provider.WithBorrowedBuffer(verticesBinding, vertices),
		bind_group_provider.WithBuffer(paramsBinding, paramsBuf),
	)

	var model [16]float32
	pc.transform.ModelMatrix(model[:])
	modelBuf, err := pc.r.CreateBufferInit(pc.label+" model", wgpu.BufferUsageUniform, marshalMatrix(model))
	if err != nil {
		return err
	}
	pc.render = bind_group_provider.NewBindGroupProvider(pc.label+" render",
		bind_group_provider.WithBuffer(modelBinding, modelBuf),
	)

	pc.clearer = bind_group_provider.NewBindGroupProvider(pc.label+" clear",
		bind_group_provider.WithBorrowedBuffer(verticesBinding, vertices),
	)

	for key, provider := range map[string]bind_group_provider.BindGroupProvider{
		ClearPipelineKey:     pc.clearer,
		TransformPipelineKey: pc.transformer,
	} {
		desc, err := pc.r.BindGroupLayoutDescriptor(key, 0)
		if err != nil {
			return err
		}
		if err := pc.r.InitBindGroup(provider, desc); err != nil {
			return err
		}
	}
	return nil
}

// dispatch runs one kernel over the cloud's grid in its own compute frame.
func (pc *pointCloud) dispatch(key string, provider bind_group_provider.BindGroupProvider) error {
	if err := pc.r.BeginComputeFrame(); err != nil {
		return err
	}
	if err := pc.r.DispatchCompute(key, provider, pc.grid.Workgroups()); err != nil {
		// The frame is still open; close it so the renderer stays usable.
		_ = pc.r.EndComputeFrame()
		return err
	}
	return pc.r.EndComputeFrame()
}

func (pc *pointCloud) Label() string {
	return pc.label
}

func (pc *pointCloud) Count() uint32 {
	return pc.count
}

func (pc *pointCloud) Grid() dispatch.Grid {
	return pc.grid
}

func (pc *pointCloud) VertexBuffer() resource.Buffer {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.destroyed {
		return nil
	}
	return pc.mesh.VertexBuffer()
}

func (pc *pointCloud) Generate(p Populator) error {
	if p.PointCount() != pc.count {
		return fmt.Errorf("%w: %s writes %d points, cloud %s holds %d", ErrCountMismatch, p.Name(), p.PointCount(), pc.label, pc.count)
	}
	vertices := pc.VertexBuffer()
	if vertices == nil {
		return ErrDestroyed
	}
	if err := p.Populate(pc.r, vertices, pc.count); err != nil {
		return fmt.Errorf("generate %s with %s: %w", pc.label, p.Name(), err)
	}
	if rot := p.PresentationRotation(); rot != common.Zero3 {
		if err := pc.ApplyTransform(common.Zero3, rot, common.One3); err != nil {
			return err
		}
	}
	logger.Debug("point cloud generated", zap.String("label", pc.label), zap.String("generator", p.Name()))
	return nil
}

func (pc *pointCloud) ApplyTransform(translation, rotation, scale common.Vec3) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.destroyed {
		return ErrDestroyed
	}

	params := transformParams(translation, rotation, scale)
	if err := pc.r.WriteBuffer(pc.transformer.Buffer(paramsBinding), 0, params.Marshal()); err != nil {
		return fmt.Errorf("transform %s: %w", pc.label, err)
	}
	if err := pc.dispatch(TransformPipelineKey, pc.transformer); err != nil {
		return fmt.Errorf("transform %s: %w", pc.label, err)
	}
	return nil
}

func (pc *pointCloud) Translate(x, y, z float32) error {
	return pc.ApplyTransform(common.Vec3{x, y, z}, common.Zero3, common.One3)
}

func (pc *pointCloud) Rotate(x, y, z float32) error {
	return pc.ApplyTransform(common.Zero3, common.Vec3{x, y, z}, common.One3)
}

func (pc *pointCloud) Scale(x, y, z float32) error {
	return pc.ApplyTransform(common.Zero3, common.Zero3, common.Vec3{x, y, z})
}

func (pc *pointCloud) Transform() common.Transform {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.transform
}

func (pc *pointCloud) SetTransform(t common.Transform) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.transform = t
	return pc.writeModelMatrix()
}

func (pc *pointCloud) SetPosition(p common.Vec3) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.transform.Position = p
	return pc.writeModelMatrix()
}

func (pc *pointCloud) SetRotation(q common.Quat) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.transform.Rotation = q
	return pc.writeModelMatrix()
}

func (pc *pointCloud) SetScale(s common.Vec3) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.transform.Scale = s
	return pc.writeModelMatrix()
}

// writeModelMatrix uploads T * R * S of the model transform. Caller must hold the mutex.
func (pc *pointCloud) writeModelMatrix() error {
	if pc.destroyed {
		return ErrDestroyed
	}
	var m [16]float32
	pc.transform.ModelMatrix(m[:])
	return pc.r.WriteBuffer(pc.render.Buffer(modelBinding), 0, marshalMatrix(m))
}

func (pc *pointCloud) Render() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.destroyed {
		return ErrDestroyed
	}

	if pc.render.BindGroup() == nil {
		if err := pc.cam.Init(pc.r); err != nil {
			return err
		}
		pc.render.BorrowBuffer(cameraBinding, pc.cam.UniformBuffer())
		desc, err := pc.r.BindGroupLayoutDescriptor(PointsPipelineKey, 0)
		if err != nil {
			return err
		}
		if err := pc.r.InitBindGroup(pc.render, desc); err != nil {
			return fmt.Errorf("render %s: %w", pc.label, err)
		}
	}
	return pc.r.DrawCall(PointsPipelineKey, pc.mesh, []bind_group_provider.BindGroupProvider{pc.render})
}

func (pc *pointCloud) ReadVertices(ctx context.Context) ([]float32, error) {
	vertices := pc.VertexBuffer()
	if vertices == nil {
		return nil, ErrDestroyed
	}
	raw, err := pc.r.ReadBuffer(ctx, vertices)
	if err != nil {
		return nil, err
	}
	return bytesToFloats(raw), nil
}

func (pc *pointCloud) Destroy() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.destroyed {
		return
	}
	pc.destroyed = true
	pc.r.WaitIdle()
	pc.release()
	logger.Debug("point cloud destroyed", zap.String("label", pc.label))
}

// release frees whatever allocate managed to create. Borrowed buffers are left alone.
func (pc *pointCloud) release() {
	for _, p := range []bind_group_provider.BindGroupProvider{pc.render, pc.transformer, pc.clearer, pc.mesh} {
		if p != nil {
			p.Release()
		}
	}
}
