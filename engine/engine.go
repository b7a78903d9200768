package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"github.com/Carmen-Shannon/oxy-luv/engine/profiler"
	"github.com/Carmen-Shannon/oxy-luv/engine/scene"
	"github.com/Carmen-Shannon/oxy-luv/engine/window"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultTickRate = 60

// ErrRenderPanic is returned by the frame loop when a frame panicked.
var ErrRenderPanic = errors.New("render loop panicked")

// Engine drives the viewer. A tick loop runs the input callback at a fixed rate, a frame loop
// steps every active scene as fast as the frame limit allows, and the window (when present)
// pumps OS messages on the calling goroutine. Without a window the engine is headless and Run
// blocks until Quit.
type Engine interface {
	// Window returns the window the engine was built with, nil when headless.
	Window() window.Window

	// EnableProfiler turns on the once-per-second frame rate log line.
	EnableProfiler()

	// DisableProfiler turns the frame rate log line off. FPS keeps updating.
	DisableProfiler()

	// FPS returns the render frame rate measured over the last second.
	FPS() float64

	// SetTickRate changes the tick loop rate, taking effect on the next tick when running.
	//
	// Parameters:
	//   - hz: ticks per second, values <= 0 select 60
	SetTickRate(hz float64)

	// SetTickCallback sets the function run on every tick with the seconds since the last one.
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback sets the function run after every frame with the frame's delta time.
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit caps the frame loop.
	//
	// Parameters:
	//   - fps: frames per second, 0 or less removes the cap
	SetRenderFrameLimit(fps float64)

	// AddScene registers s under key, replacing any scene already there. Lower keys draw first.
	AddScene(key int, s scene.Scene)

	// RemoveScene unregisters the scene under key. The scene is not released.
	RemoveScene(key int)

	// Scene returns the scene under key, or nil.
	Scene(key int) scene.Scene

	// Scenes returns a snapshot of the registered scenes.
	Scenes() map[int]scene.Scene

	// Step renders one frame on the calling goroutine. Every active scene runs its compute
	// phase, then all of them draw into one render pass owned by the lowest active scene's
	// renderer. A failed compute phase skips the render pass and a failed draw skips Present.
	// The pass is still ended so the next frame can begin.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous frame
	//
	// Returns:
	//   - error: the scene and frame failures joined, nil when the frame was clean
	Step(deltaTime float32) error

	// Run starts the loops and blocks. With a window it returns after the window closes,
	// headless it returns after Quit.
	Run()

	// Quit stops the loops. Calling it more than once is harmless.
	Quit()
}

type engine struct {
	mu     sync.Mutex
	scenes map[int]scene.Scene
	window window.Window

	prof      *profiler.Profiler
	profiling atomic.Bool

	onTick  atomic.Pointer[func(float32)]
	onFrame atomic.Pointer[func(float32)]

	tickInterval atomic.Int64
	frameBudget  atomic.Int64
	retune       chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

var _ Engine = &engine{}

// NewEngine builds an engine. A window passed with WithWindow gets a resize callback that
// resizes every scene's renderer and re-aspects its camera.
//
// Parameters:
//   - options: window, scenes, rates and profiling
//
// Returns:
//   - Engine: the engine, not yet running
func NewEngine(options ...EngineBuilderOption) Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &engine{
		scenes: make(map[int]scene.Scene),
		prof:   profiler.NewProfiler(),
		retune: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	e.tickInterval.Store(int64(hzToInterval(defaultTickRate)))

	for _, opt := range options {
		opt(e)
	}
	e.prof.SetLogging(e.profiling.Load())

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
	}
	return e
}

func hzToInterval(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}

func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	aspect := float32(width) / float32(height)
	for _, s := range e.Scenes() {
		if r := s.Renderer(); r != nil {
			r.Resize(width, height)
		}
		if c := s.Camera(); c != nil {
			c.SetAspect(aspect)
		}
	}
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() {
	g, ctx := errgroup.WithContext(e.ctx)
	g.Go(func() error {
		e.tickLoop(ctx)
		return nil
	})
	g.Go(func() error {
		return e.frameLoop(ctx)
	})

	if e.window != nil {
		e.window.ProcessMessages()
		e.cancel()
	}
	if err := g.Wait(); err != nil {
		logger.Error("engine stopped", zap.Error(err))
	}
}

func (e *engine) Quit() {
	e.cancel()
}

// tickLoop fires the tick callback until ctx ends, picking up rate changes between ticks.
func (e *engine) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(e.tickInterval.Load()))
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.retune:
			ticker.Reset(time.Duration(e.tickInterval.Load()))
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			if cb := e.onTick.Load(); cb != nil {
				(*cb)(dt)
			}
		}
	}
}

// frameLoop steps frames until ctx ends. A panicking frame stops the engine.
func (e *engine) frameLoop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("render loop recovered from panic", zap.Any("panic", r))
			err = fmt.Errorf("%w: %v", ErrRenderPanic, r)
		}
	}()

	last := time.Now()
	for ctx.Err() == nil {
		start := time.Now()
		dt := float32(start.Sub(last).Seconds())
		last = start

		if err := e.Step(dt); err != nil {
			logger.Warn("frame failed", zap.Error(err))
		}
		if cb := e.onFrame.Load(); cb != nil {
			(*cb)(dt)
		}
		e.prof.Tick()

		budget := time.Duration(e.frameBudget.Load())
		if budget <= 0 {
			continue
		}
		if wait := budget - time.Since(start); wait > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
		}
	}
	return nil
}

func (e *engine) Step(deltaTime float32) error {
	active := e.activeScenes()
	if len(active) == 0 {
		return nil
	}
	target := active[0].Renderer()
	if target == nil {
		return nil
	}

	var errs []error
	for _, s := range active {
		if err := s.PrepareCompute(deltaTime); err != nil {
			errs = append(errs, fmt.Errorf("scene %s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if err := target.BeginFrame(); err != nil {
		return err
	}
	for _, s := range active {
		if err := s.DrawCalls(); err != nil {
			errs = append(errs, fmt.Errorf("scene %s: %w", s.Name(), err))
		}
	}
	if err := target.EndFrame(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	target.Present()
	return nil
}

// activeScenes returns the active scenes by ascending key.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]int, 0, len(e.scenes))
	for k, s := range e.scenes {
		if s.Active() {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	active := make([]scene.Scene, len(keys))
	for i, k := range keys {
		active[i] = e.scenes[k]
	}
	return active
}

func (e *engine) EnableProfiler() {
	e.profiling.Store(true)
	e.prof.SetLogging(true)
}

func (e *engine) DisableProfiler() {
	e.profiling.Store(false)
	e.prof.SetLogging(false)
}

func (e *engine) FPS() float64 {
	return e.prof.FPS()
}

func (e *engine) SetTickRate(hz float64) {
	if hz <= 0 {
		hz = defaultTickRate
	}
	e.tickInterval.Store(int64(hzToInterval(hz)))
	select {
	case e.retune <- struct{}{}:
	default:
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	storeCallback(&e.onTick, callback)
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	storeCallback(&e.onFrame, callback)
}

func storeCallback(slot *atomic.Pointer[func(float32)], callback func(float32)) {
	if callback == nil {
		slot.Store(nil)
		return
	}
	slot.Store(&callback)
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.frameBudget.Store(0)
		return
	}
	e.frameBudget.Store(int64(hzToInterval(fps)))
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[int]scene.Scene, len(e.scenes))
	for k, s := range e.scenes {
		out[k] = s
	}
	return out
}
