package camera

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/resource"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNotInitialized is returned by Flush before Init allocated the uniform buffer.
var ErrNotInitialized = errors.New("camera uniform buffer not initialized")

// uniformBinding is the binding the uniform buffer occupies in the camera's provider.
const uniformBinding = 0

var cameraSeq atomic.Uint64

// Lens is the perspective projection: vertical field of view in radians, width over height,
// and the clip plane distances.
type Lens struct {
	Fov    float32
	Aspect float32
	Near   float32
	Far    float32
}

// DefaultLens is a 45 degree lens with a square aspect and clip planes at 0.1 and 100.
func DefaultLens() Lens {
	return Lens{Fov: math32.Pi / 4, Aspect: 1, Near: 0.1, Far: 100}
}

// Camera turns a controller's eye and target into view and projection matrices and keeps them
// in a 144-byte uniform buffer that render passes bind read-only: view at offset 0, projection
// at 64 and the eye position at 128.
type Camera interface {
	// Lens returns the projection settings.
	Lens() Lens

	// SetLens replaces the projection settings.
	SetLens(lens Lens)

	// SetAspect changes only the aspect ratio, as a window resize does.
	SetAspect(aspect float32)

	// Up returns the up vector used to orient the view.
	Up() common.Vec3

	// SetUp replaces the up vector.
	SetUp(up common.Vec3)

	// View returns the view matrix, column-major.
	View() [16]float32

	// Projection returns the projection matrix, column-major.
	Projection() [16]float32

	// ViewProjection returns Projection * View, column-major.
	ViewProjection() [16]float32

	// Position returns the eye position as of the last update.
	Position() common.Vec3

	// Uniform packs the current matrices and eye position in GPU layout.
	Uniform() GPUCameraUniform

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// SetController attaches ctrl and rebuilds the view from it.
	SetController(ctrl CameraController)

	// BindGroupProvider returns the provider holding the uniform buffer at binding 0.
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// UniformBuffer returns the uniform buffer, or nil before Init.
	UniformBuffer() resource.Buffer

	// Init allocates the uniform buffer on r holding the current uniform. Later calls do nothing.
	//
	// Parameters:
	//   - r: the renderer to allocate on
	//
	// Returns:
	//   - error: the allocation failure, if any
	Init(r renderer.Renderer) error

	// Flush uploads the current uniform.
	//
	// Parameters:
	//   - r: the renderer owning the buffer
	//
	// Returns:
	//   - error: ErrNotInitialized before Init, or the write failure
	Flush(r renderer.Renderer) error

	// Update rebuilds the view from the controller's current eye and target. Without a
	// controller it does nothing.
	Update()

	// Release frees the uniform buffer.
	Release()
}

type cameraImpl struct {
	mu *sync.Mutex

	lens Lens
	up   common.Vec3
	eye  common.Vec3

	view, proj, viewProj [16]float32

	controller CameraController
	provider   bind_group_provider.BindGroupProvider
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera with DefaultLens looking down -Z from the origin. The view follows
// a controller once one is attached.
//
// Parameters:
//   - options: lens, up vector and controller options
//
// Returns:
//   - Camera: the camera, without a uniform buffer until Init
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		lens:     DefaultLens(),
		up:       common.Vec3{0, 1, 0},
		provider: bind_group_provider.NewBindGroupProvider(fmt.Sprintf("camera_%d", cameraSeq.Add(1))),
	}
	common.Identity(c.view[:])
	for _, option := range options {
		option(c)
	}
	c.rebuild()
	return c
}

// rebuild recomputes every matrix. Caller must hold the mutex.
func (c *cameraImpl) rebuild() {
	l := c.lens
	common.Perspective(c.proj[:], l.Fov, l.Aspect, l.Near, l.Far)
	if c.controller != nil {
		c.eye = c.controller.Position()
		common.LookAt(c.view[:], c.eye, c.controller.Target(), c.up)
	}
	common.Mul4(c.viewProj[:], c.proj[:], c.view[:])
}

// locked runs fn under the mutex and rebuilds the matrices afterwards.
func (c *cameraImpl) locked(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
	c.rebuild()
}

func (c *cameraImpl) Lens() Lens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lens
}

func (c *cameraImpl) SetLens(lens Lens) {
	c.locked(func() { c.lens = lens })
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.locked(func() { c.lens.Aspect = aspect })
}

func (c *cameraImpl) Up() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) SetUp(up common.Vec3) {
	c.locked(func() { c.up = up })
}

func (c *cameraImpl) View() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) Projection() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proj
}

func (c *cameraImpl) ViewProjection() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProj
}

func (c *cameraImpl) Position() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		View:     c.view,
		Proj:     c.proj,
		Position: [4]float32{c.eye[0], c.eye[1], c.eye[2], 1},
	}
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.locked(func() { c.controller = ctrl })
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller != nil {
		c.rebuild()
	}
}

func (c *cameraImpl) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return c.provider
}

func (c *cameraImpl) UniformBuffer() resource.Buffer {
	return c.provider.Buffer(uniformBinding)
}

func (c *cameraImpl) Init(r renderer.Renderer) error {
	if c.UniformBuffer() != nil {
		return nil
	}
	u := c.Uniform()
	buf, err := r.CreateBufferInit(c.provider.Label()+" uniform", wgpu.BufferUsageUniform, u.Marshal())
	if err != nil {
		return fmt.Errorf("camera uniform: %w", err)
	}
	c.provider.SetBuffer(uniformBinding, buf)
	return nil
}

func (c *cameraImpl) Flush(r renderer.Renderer) error {
	buf := c.UniformBuffer()
	if buf == nil {
		return ErrNotInitialized
	}
	u := c.Uniform()
	return r.WriteBuffer(buf, 0, u.Marshal())
}

func (c *cameraImpl) Release() {
	c.provider.Release()
}
