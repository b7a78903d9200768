package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/camera"
	"github.com/Carmen-Shannon/oxy-luv/engine/generator"
	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"github.com/Carmen-Shannon/oxy-luv/engine/pointcloud"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer"
	"go.uber.org/zap"
)

// ErrNoCloud is returned by operations that need a point cloud before a generator has been set.
var ErrNoCloud = errors.New("scene: no point cloud")

// Op mutates the scene's point cloud. Ops run on the render goroutine during PrepareCompute.
type Op func(pc pointcloud.PointCloud) error

// Status is a snapshot of what the scene is showing.
type Status struct {
	Generator string `json:"generator"`
	Points    uint32 `json:"points"`
}

// Scene owns one point cloud and the generator that populated it, with a Camera and Renderer for
// rendering. Changes coming from other goroutines (input, the control server) are queued and
// applied at the start of the next compute phase, so the cloud is only ever touched by the render
// goroutine. Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Renderer returns the scene's renderer.
	Renderer() renderer.Renderer

	// Cloud returns the current point cloud, or nil before the first generator is applied.
	Cloud() pointcloud.PointCloud

	// Generator returns the generator that populated the current cloud.
	Generator() generator.Generator

	// SetGenerator queues a swap to a new cloud populated by g. The swap happens during the next
	// PrepareCompute: a cloud sized for g is created and generated, then the previous cloud is
	// destroyed and the previous generator released. On failure the previous cloud stays and g is
	// released. The scene takes ownership of g.
	//
	// Parameters:
	//   - g: the generator for the new cloud
	//
	// Returns:
	//   - <-chan error: receives the swap result once it has been applied
	SetGenerator(g generator.Generator) <-chan error

	// Enqueue queues op to run against the current cloud during the next PrepareCompute.
	//
	// Parameters:
	//   - op: the operation
	//
	// Returns:
	//   - <-chan error: receives the op result, or ErrNoCloud if there is no cloud
	Enqueue(op Op) <-chan error

	// Spin returns the continuous rotation in radians per second about X, Y and Z.
	Spin() common.Vec3

	// SetSpin sets the continuous rotation in radians per second about X, Y and Z.
	SetSpin(spin common.Vec3)

	// Status returns a snapshot of the current generator name and point count.
	Status() Status

	// PrepareCompute updates and uploads the camera, applies queued operations and advances the
	// spin by deltaTime. Each operation opens its own compute frame, so this must NOT be called
	// inside BeginComputeFrame/EndComputeFrame.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	//
	// Returns:
	//   - error: every failure joined, or nil
	PrepareCompute(deltaTime float32) error

	// DrawCalls records the cloud's draw call. Must be called between BeginFrame and EndFrame.
	DrawCalls() error

	// Release destroys the cloud, releases the generator and fails every queued operation.
	Release()
}

// pending pairs a queued operation with its result channel.
type pending struct {
	run    func() error
	drop   func()
	result chan error
}

type sceneImpl struct {
	mu *sync.Mutex

	name   string
	active bool

	r   renderer.Renderer
	cam camera.Camera

	cloud pointcloud.PointCloud
	gen   generator.Generator
	spin  common.Vec3

	queue    []pending
	released bool
}

var _ Scene = &sceneImpl{}

// NewScene creates a scene over r and cam. With WithGenerator the first cloud is built and
// populated before NewScene returns.
//
// Parameters:
//   - r: the renderer owning the device
//   - cam: the camera the cloud renders through
//   - options: variadic list of SceneBuilderOption functions
//
// Returns:
//   - Scene: the new scene
//   - error: the initial cloud could not be built
func NewScene(r renderer.Renderer, cam camera.Camera, options ...SceneBuilderOption) (Scene, error) {
	s := &sceneImpl{
		mu:     &sync.Mutex{},
		name:   "scene",
		active: true,
		r:      r,
		cam:    cam,
	}
	b := &sceneBuilder{scene: s}
	for _, opt := range options {
		opt(b)
	}

	if err := cam.Init(r); err != nil {
		return nil, err
	}
	if b.gen != nil {
		if err := s.swap(b.gen); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *sceneImpl) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *sceneImpl) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *sceneImpl) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *sceneImpl) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *sceneImpl) Camera() camera.Camera {
	return s.cam
}

func (s *sceneImpl) Renderer() renderer.Renderer {
	return s.r
}

func (s *sceneImpl) Cloud() pointcloud.PointCloud {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloud
}

func (s *sceneImpl) Generator() generator.Generator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *sceneImpl) SetGenerator(g generator.Generator) <-chan error {
	return s.enqueue(func() error { return s.swap(g) }, g.Release)
}

func (s *sceneImpl) Enqueue(op Op) <-chan error {
	return s.enqueue(func() error {
		pc := s.Cloud()
		if pc == nil {
			return ErrNoCloud
		}
		return op(pc)
	}, nil)
}

// enqueue appends run to the queue. On a released scene run is dropped, onDrop is called and
// the channel receives pointcloud.ErrDestroyed straight away.
func (s *sceneImpl) enqueue(run func() error, onDrop func()) <-chan error {
	result := make(chan error, 1)
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		if onDrop != nil {
			onDrop()
		}
		result <- pointcloud.ErrDestroyed
		return result
	}
	s.queue = append(s.queue, pending{run: run, drop: onDrop, result: result})
	s.mu.Unlock()
	return result
}

func (s *sceneImpl) Spin() common.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spin
}

func (s *sceneImpl) SetSpin(spin common.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spin = spin
}

func (s *sceneImpl) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Status
	if s.gen != nil {
		st.Generator = s.gen.Name()
	}
	if s.cloud != nil {
		st.Points = s.cloud.Count()
	}
	return st
}

func (s *sceneImpl) PrepareCompute(deltaTime float32) error {
	s.mu.Lock()
	queue := s.queue
	s.queue = nil
	spin := s.spin
	s.mu.Unlock()

	var errs []error

	s.cam.Update()
	if err := s.cam.Flush(s.r); err != nil {
		errs = append(errs, err)
	}

	for _, p := range queue {
		err := p.run()
		p.result <- err
		if err != nil {
			errs = append(errs, err)
		}
	}

	if spin != common.Zero3 && deltaTime > 0 {
		if pc := s.Cloud(); pc != nil {
			if err := pc.Rotate(spin[0]*deltaTime, spin[1]*deltaTime, spin[2]*deltaTime); err != nil {
				errs = append(errs, fmt.Errorf("spin: %w", err))
			}
		}
	}

	return errors.Join(errs...)
}

func (s *sceneImpl) DrawCalls() error {
	pc := s.Cloud()
	if pc == nil {
		return nil
	}
	return pc.Render()
}

func (s *sceneImpl) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	queue := s.queue
	s.queue = nil
	cloud, gen := s.cloud, s.gen
	s.cloud, s.gen = nil, nil
	s.mu.Unlock()

	for _, p := range queue {
		if p.drop != nil {
			p.drop()
		}
		p.result <- pointcloud.ErrDestroyed
	}
	if cloud != nil {
		cloud.Destroy()
	}
	if gen != nil {
		gen.Release()
	}
}

// swap builds and populates a cloud for g, then retires the current cloud and generator.
// The new cloud inherits the current model transform.
func (s *sceneImpl) swap(g generator.Generator) error {
	var opts []pointcloud.PointCloudBuilderOption
	if old := s.Cloud(); old != nil {
		opts = append(opts, pointcloud.WithTransform(old.Transform()))
	}

	pc, err := pointcloud.New(s.r, s.cam, g.PointCount(), opts...)
	if err != nil {
		g.Release()
		return fmt.Errorf("generator %s: %w", g.Name(), err)
	}
	if err := pc.Generate(g); err != nil {
		pc.Destroy()
		g.Release()
		return fmt.Errorf("generator %s: %w", g.Name(), err)
	}

	s.mu.Lock()
	oldCloud, oldGen := s.cloud, s.gen
	s.cloud, s.gen = pc, g
	s.mu.Unlock()

	if oldCloud != nil {
		oldCloud.Destroy()
	}
	if oldGen != nil && oldGen != g {
		oldGen.Release()
	}

	logger.Info("point cloud ready",
		zap.String("generator", g.Name()),
		zap.Uint32("points", g.PointCount()),
		zap.String("label", pc.Label()),
	)
	return nil
}
