package engine

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-luv/engine/camera"
	"github.com/Carmen-Shannon/oxy-luv/engine/generator"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer"
	"github.com/Carmen-Shannon/oxy-luv/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCubeScene(t *testing.T, r renderer.Renderer, options ...scene.SceneBuilderOption) scene.Scene {
	t.Helper()
	cam := camera.NewCamera(camera.WithController(camera.NewOrbitController()))
	t.Cleanup(cam.Release)
	g, err := generator.NewRGBCube(1, nil)
	require.NoError(t, err)

	s, err := scene.NewScene(r, cam, append([]scene.SceneBuilderOption{scene.WithGenerator(g)}, options...)...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func newSoftware(t *testing.T) renderer.Renderer {
	t.Helper()
	r := renderer.NewRenderer(renderer.BackendTypeSoftware, nil, renderer.WithWorkers(2), renderer.WithFrameSize(16, 16))
	t.Cleanup(r.Release)
	return r
}

func TestStepWithoutScenes(t *testing.T) {
	e := NewEngine()
	assert.NoError(t, e.Step(0.016))
	assert.Nil(t, e.Window())
}

func TestStepRendersActiveScenesInOnePass(t *testing.T) {
	r := newSoftware(t)
	e := NewEngine(WithScene(1, newCubeScene(t, r)))
	hidden := newCubeScene(t, r, scene.WithActive(false))
	e.AddScene(0, hidden)

	require.NoError(t, e.Step(0.016))
	stats := r.Stats()
	assert.Equal(t, 1, stats.DrawCalls)
	assert.Equal(t, uint64(8), stats.VerticesDrawn)

	hidden.SetActive(true)
	require.NoError(t, e.Step(0.016))
	assert.Equal(t, 3, r.Stats().DrawCalls)

	assert.Len(t, e.Scenes(), 2)
	assert.Same(t, hidden, e.Scene(0))
	e.RemoveScene(0)
	assert.Nil(t, e.Scene(0))
}

// faultyScene fails one phase of a working scene.
type faultyScene struct {
	scene.Scene
	computeErr error
	drawErr    error
	draws      int
}

func (f *faultyScene) PrepareCompute(deltaTime float32) error {
	if f.computeErr != nil {
		return f.computeErr
	}
	return f.Scene.PrepareCompute(deltaTime)
}

func (f *faultyScene) DrawCalls() error {
	f.draws++
	if f.drawErr != nil {
		return f.drawErr
	}
	return f.Scene.DrawCalls()
}

func TestStepAbortsFrameWhenComputeFails(t *testing.T) {
	r := newSoftware(t)
	errDispatch := errors.New("dispatch failed")
	healthy := &faultyScene{Scene: newCubeScene(t, r)}
	broken := &faultyScene{Scene: newCubeScene(t, r), computeErr: errDispatch}
	e := NewEngine(WithScene(0, healthy), WithScene(1, broken))

	before := r.Stats()
	err := e.Step(0.016)
	require.ErrorIs(t, err, errDispatch)

	after := r.Stats()
	assert.Equal(t, before.DrawCalls, after.DrawCalls)
	assert.Zero(t, healthy.draws)
	assert.Zero(t, broken.draws)
	_, err = r.Snapshot()
	assert.ErrorIs(t, err, renderer.ErrNoFrame, "nothing was presented")
}

func TestStepSkipsPresentWhenDrawFails(t *testing.T) {
	r := newSoftware(t)
	errDraw := errors.New("draw failed")
	s := &faultyScene{Scene: newCubeScene(t, r)}
	e := NewEngine(WithScene(0, s))

	s.drawErr = errDraw
	require.ErrorIs(t, e.Step(0.016), errDraw)
	_, err := r.Snapshot()
	assert.ErrorIs(t, err, renderer.ErrNoFrame)

	s.drawErr = nil
	require.NoError(t, e.Step(0.016), "the pass was ended, so the next frame begins cleanly")
	_, err = r.Snapshot()
	assert.NoError(t, err)
}

func TestRunHeadlessUntilQuit(t *testing.T) {
	r := newSoftware(t)
	e := NewEngine(WithScene(0, newCubeScene(t, r)), WithRenderFrameLimit(500), WithTickRate(500))

	var frames, ticks atomic.Int32
	e.SetRenderCallback(func(float32) {
		if frames.Add(1) == 5 {
			e.Quit()
		}
	})
	e.SetTickCallback(func(float32) { ticks.Add(1) })

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
	assert.GreaterOrEqual(t, frames.Load(), int32(5))
	assert.GreaterOrEqual(t, r.Stats().DrawCalls, 5)

	e.Quit()
}

func TestRatesAndCallbacks(t *testing.T) {
	e := NewEngine().(*engine)
	assert.Equal(t, int64(time.Second/60), e.tickInterval.Load())

	e.SetTickRate(0)
	assert.Equal(t, int64(time.Second/60), e.tickInterval.Load())
	e.SetTickRate(120)
	assert.Equal(t, int64(time.Second/120), e.tickInterval.Load())
	e.SetTickRate(30)
	assert.Len(t, e.retune, 1, "pending retunes collapse into one")

	e.SetRenderFrameLimit(50)
	assert.Equal(t, int64(20*time.Millisecond), e.frameBudget.Load())
	e.SetRenderFrameLimit(0)
	assert.Zero(t, e.frameBudget.Load())

	e.SetTickCallback(func(float32) {})
	assert.NotNil(t, e.onTick.Load())
	e.SetTickCallback(nil)
	assert.Nil(t, e.onTick.Load())
}

func TestRunReturnsWhenFramePanics(t *testing.T) {
	e := NewEngine()
	e.SetRenderCallback(func(float32) { panic("boom") })

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Run kept going after the frame loop panicked")
	}
}

func TestQuitBeforeRun(t *testing.T) {
	e := NewEngine()
	e.Quit()
	e.Quit()

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return for a quit engine")
	}
}
