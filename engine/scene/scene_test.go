package scene

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/camera"
	"github.com/Carmen-Shannon/oxy-luv/engine/generator"
	"github.com/Carmen-Shannon/oxy-luv/engine/pointcloud"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScene(t *testing.T, options ...SceneBuilderOption) (Scene, renderer.Renderer) {
	t.Helper()
	r := renderer.NewRenderer(renderer.BackendTypeSoftware, nil, renderer.WithWorkers(2), renderer.WithFrameSize(16, 16))
	t.Cleanup(r.Release)
	cam := camera.NewCamera(camera.WithController(camera.NewOrbitController(camera.WithRadius(4))))
	t.Cleanup(cam.Release)

	s, err := NewScene(r, cam, options...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s, r
}

func mustGenerator(t *testing.T, name string, p generator.Params) generator.Generator {
	t.Helper()
	g, err := generator.New(name, p, nil)
	require.NoError(t, err)
	return g
}

func TestNewSceneBuildsInitialCloud(t *testing.T) {
	s, _ := newScene(t, WithName("cube"), WithGenerator(mustGenerator(t, generator.NameRGBCube, generator.Params{BitDepth: 2})))

	assert.Equal(t, "cube", s.Name())
	assert.True(t, s.Active())
	require.NotNil(t, s.Cloud())
	assert.Equal(t, Status{Generator: generator.NameRGBCube, Points: 64}, s.Status())
}

func TestEmptySceneDrawsNothing(t *testing.T) {
	s, r := newScene(t)
	assert.Nil(t, s.Cloud())
	assert.Equal(t, Status{}, s.Status())

	require.NoError(t, r.BeginFrame())
	require.NoError(t, s.DrawCalls())
	require.NoError(t, r.EndFrame())
	assert.Zero(t, r.Stats().DrawCalls)

	done := s.Enqueue(func(pc pointcloud.PointCloud) error { return nil })
	assert.ErrorIs(t, s.PrepareCompute(0), ErrNoCloud)
	assert.ErrorIs(t, <-done, ErrNoCloud)
}

func TestSetGeneratorSwapsOnPrepare(t *testing.T) {
	s, r := newScene(t, WithGenerator(mustGenerator(t, generator.NameRGBCube, generator.Params{BitDepth: 1})))
	first := s.Cloud()
	require.NoError(t, first.SetPosition(common.Vec3{0, 1, 0}))
	buffers := r.Stats().LiveBuffers

	done := s.SetGenerator(mustGenerator(t, generator.NameFibonacci, generator.Params{Count: 100}))
	assert.Same(t, first, s.Cloud(), "swap waits for the compute phase")

	require.NoError(t, s.PrepareCompute(0))
	require.NoError(t, <-done)

	assert.Equal(t, Status{Generator: generator.NameFibonacci, Points: 100}, s.Status())
	assert.Nil(t, first.VertexBuffer(), "the previous cloud is destroyed")
	assert.Equal(t, common.Vec3{0, 1, 0}, s.Cloud().Transform().Position)

	// Three cloud buffers and one generator input buffer, before and after.
	assert.Equal(t, buffers, r.Stats().LiveBuffers)
}

func TestFailedSwapKeepsCurrentCloud(t *testing.T) {
	s, _ := newScene(t, WithGenerator(mustGenerator(t, generator.NameLUVGrid, generator.Params{GridSize: 2})))
	current := s.Cloud()

	huge := mustGenerator(t, generator.NameFibonacci, generator.Params{Count: 1 << 31})
	done := s.SetGenerator(huge)

	err := s.PrepareCompute(0)
	require.Error(t, err)
	var limitErr *renderer.ResourceLimitError
	assert.True(t, errors.As(<-done, &limitErr))

	assert.Same(t, current, s.Cloud())
	assert.Equal(t, generator.NameLUVGrid, s.Status().Generator)
}

func TestEnqueueRunsAgainstCurrentCloud(t *testing.T) {
	s, _ := newScene(t, WithGenerator(mustGenerator(t, generator.NameRGBCube, generator.Params{BitDepth: 1})))

	done := s.Enqueue(func(pc pointcloud.PointCloud) error { return pc.Translate(0, 0, 5) })
	require.NoError(t, s.PrepareCompute(0))
	require.NoError(t, <-done)

	got, err := s.Cloud().ReadVertices(context.Background())
	require.NoError(t, err)
	for i := 0; i < len(got); i += pointcloud.FloatsPerPoint {
		require.GreaterOrEqual(t, got[i+2], float32(5))
	}
}

func TestSpinRotatesByDeltaTime(t *testing.T) {
	s, _ := newScene(t, WithGenerator(mustGenerator(t, generator.NameFibonacci, generator.Params{Count: 1})))
	before, err := s.Cloud().ReadVertices(context.Background())
	require.NoError(t, err)
	require.InDelta(t, generator.LatticeRadius, before[1], 1e-5)

	require.NoError(t, s.PrepareCompute(0.25))
	unchanged, err := s.Cloud().ReadVertices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, unchanged, "no spin, no rotation")

	// 0.25s at 2 rad/s about X turns the pole point by half a radian.
	s.SetSpin(common.Vec3{2, 0, 0})
	assert.Equal(t, common.Vec3{2, 0, 0}, s.Spin())
	require.NoError(t, s.PrepareCompute(0.25))

	after, err := s.Cloud().ReadVertices(context.Background())
	require.NoError(t, err)
	want := pointcloud.RotateEuler(common.Vec3{before[0], before[1], before[2]}, common.Vec3{0.5, 0, 0})
	assert.InDelta(t, want[1], after[1], 1e-4)
	assert.InDelta(t, want[2], after[2], 1e-4)
}

func TestDrawCallsRendersCloud(t *testing.T) {
	s, r := newScene(t, WithGenerator(mustGenerator(t, generator.NameRGBCube, generator.Params{BitDepth: 1})))

	require.NoError(t, s.PrepareCompute(0.016))
	require.NoError(t, r.BeginFrame())
	require.NoError(t, s.DrawCalls())
	require.NoError(t, r.EndFrame())

	assert.Equal(t, 1, r.Stats().DrawCalls)
	assert.Equal(t, uint64(8), r.Stats().VerticesDrawn)
}

func TestReleaseFailsQueuedWork(t *testing.T) {
	s, r := newScene(t, WithGenerator(mustGenerator(t, generator.NameRGBCube, generator.Params{BitDepth: 1})))
	cloud := s.Cloud()

	done := s.SetGenerator(mustGenerator(t, generator.NameFibonacci, generator.Params{Count: 10}))
	s.Release()
	s.Release()

	assert.ErrorIs(t, <-done, pointcloud.ErrDestroyed)
	assert.Nil(t, cloud.VertexBuffer())
	assert.Nil(t, s.Cloud())
	assert.ErrorIs(t, <-s.Enqueue(func(pointcloud.PointCloud) error { return nil }), pointcloud.ErrDestroyed)

	// Only the camera uniform is left.
	assert.Equal(t, 1, r.Stats().LiveBuffers)
}
