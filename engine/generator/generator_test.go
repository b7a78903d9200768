package generator

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/camera"
	"github.com/Carmen-Shannon/oxy-luv/engine/color"
	"github.com/Carmen-Shannon/oxy-luv/engine/config"
	"github.com/Carmen-Shannon/oxy-luv/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-luv/engine/pointcloud"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader/shadertest"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSoftware(t *testing.T, opts ...renderer.RendererBuilderOption) renderer.Renderer {
	t.Helper()
	r := renderer.NewRenderer(renderer.BackendTypeSoftware, nil, append([]renderer.RendererBuilderOption{renderer.WithWorkers(4)}, opts...)...)
	t.Cleanup(r.Release)
	return r
}

// generate builds a cloud sized for g, populates it and reads it back.
func generate(t *testing.T, r renderer.Renderer, g Generator) []float32 {
	t.Helper()
	t.Cleanup(g.Release)
	cam := camera.NewCamera()
	t.Cleanup(cam.Release)

	pc, err := pointcloud.New(r, cam, g.PointCount())
	require.NoError(t, err)
	t.Cleanup(pc.Destroy)
	require.NoError(t, pc.Generate(g))

	got, err := pc.ReadVertices(context.Background())
	require.NoError(t, err)
	require.Len(t, got, int(g.PointCount())*pointcloud.FloatsPerPoint)
	return got
}

func record(v []float32, i int) []float32 {
	return v[i*pointcloud.FloatsPerPoint : (i+1)*pointcloud.FloatsPerPoint]
}

func testImage() *common.ImageBuffer {
	return &common.ImageBuffer{
		Width:  2,
		Height: 2,
		Pixels: []uint32{
			common.PackRGBA(0, 0, 0, 255),
			common.PackRGBA(255, 0, 0, 255),
			common.PackRGBA(0, 255, 0, 255),
			common.PackRGBA(255, 255, 255, 255),
		},
	}
}

func TestPointCounts(t *testing.T) {
	grid, err := NewLUVGrid(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), grid.PointCount())

	cube, err := NewRGBCube(2, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), cube.PointCount())

	lattice, err := NewFibonacci(1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), lattice.PointCount())

	img, err := NewLUVImage(testImage(), 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), img.PointCount())
	assert.Equal(t, NameLUVImage, img.Name())
}

func TestInvalidParams(t *testing.T) {
	_, err := NewLUVGrid(0)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = NewLUVGrid(1 << 11)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = NewRGBCube(0, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = NewRGBCube(MaxBitDepth+1, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = NewFibonacci(0)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestFactory(t *testing.T) {
	assert.Equal(t, config.Generators, Names)

	for _, name := range Names {
		g, err := New(name, Params{GridSize: 3, BitDepth: 1, Count: 10}, nil)
		require.NoError(t, err, name)
		assert.NotZero(t, g.PointCount(), name)
	}

	_, err := New("mandelbulb", Params{}, nil)
	assert.ErrorIs(t, err, ErrUnknownGenerator)
}

func TestImageGeneratorsFallBack(t *testing.T) {
	g, err := NewLUVImage(nil, 3)
	require.NoError(t, err)
	assert.Equal(t, NameLUVGrid, g.Name())
	assert.Equal(t, uint32(27), g.PointCount())

	broken := &common.ImageBuffer{Width: 3, Height: 3, Pixels: make([]uint32, 4)}
	g, err = NewLUVImage(broken, 2)
	require.NoError(t, err)
	assert.Equal(t, NameLUVGrid, g.Name())

	g, err = NewRGBCube(1, broken)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), g.PointCount())
}

func TestPresentationRotation(t *testing.T) {
	grid, _ := NewLUVGrid(2)
	img, _ := NewLUVImage(testImage(), 2)
	cube, _ := NewRGBCube(1, nil)
	lattice, _ := NewFibonacci(8)

	assert.Equal(t, common.Vec3{0, 0, math32.Pi / 2}, grid.PresentationRotation())
	assert.Equal(t, common.Vec3{0, 0, math32.Pi / 2}, img.PresentationRotation())
	assert.Equal(t, common.Zero3, cube.PresentationRotation())
	assert.Equal(t, common.Zero3, lattice.PresentationRotation())
}

func TestKernelsCompile(t *testing.T) {
	planner := dispatch.NewPlanner(0)
	for key := range kernels {
		t.Run(key, func(t *testing.T) {
			cs := Shader(key, planner)
			assert.NoError(t, shader.RequireBindings(cs, 0, map[string]int{"vertices": verticesBinding, kernels[key].input: inputBinding}))
			shadertest.RequireCompiles(t, key, cs.Source())
		})
	}
	assert.Nil(t, Shader("generator.unknown", planner))
}

func TestLUVGridEndToEnd(t *testing.T) {
	r := newSoftware(t)
	g, err := NewLUVGrid(8)
	require.NoError(t, err)
	got := generate(t, r, g)

	black := record(got, 0)
	assert.Equal(t, []float32{0, 0, 0}, black[3:])
	assert.InDelta(t, 0, black[0], 1e-6)
	assert.InDelta(t, 0, black[1], 1e-6)
	assert.InDelta(t, 0, black[2], 1e-6)

	white := record(got, 7+7*8+7*64)
	assert.Equal(t, []float32{1, 1, 1}, white[3:])
	assert.InDelta(t, 1.0, white[1], 1e-3, "L is the vertical axis after the presentation rotation")
	for i := range int(g.PointCount()) {
		require.LessOrEqual(t, record(got, i)[1], white[1]+1e-5, "point %d is lighter than white", i)
	}

	// Grid cell (1, 2, 3): position is the scaled LUV of its RGB turned 90 degrees about Z.
	cell := record(got, 1+2*8+3*64)
	r0, g0, b0 := float32(1)/7, float32(2)/7, float32(3)/7
	assert.InDeltaSlice(t, []float32{r0, g0, b0}, cell[3:], 1e-6)
	l, u, v := color.RGBToLUV(r0, g0, b0)
	want := pointcloud.RotateEuler(common.Vec3{l * LUVScale, u * LUVScale, v * LUVScale}, luvRotation)
	assert.InDelta(t, want[0], cell[0], 1e-5)
	assert.InDelta(t, want[1], cell[1], 1e-5)
	assert.InDelta(t, want[2], cell[2], 1e-5)
}

func TestLUVImageUsesPixels(t *testing.T) {
	r := newSoftware(t)
	g, err := NewLUVImage(testImage(), 4)
	require.NoError(t, err)
	got := generate(t, r, g)

	assert.Equal(t, []float32{1, 0, 0}, record(got, 1)[3:])
	assert.Equal(t, []float32{0, 1, 0}, record(got, 2)[3:])
	assert.InDelta(t, 1.0, record(got, 3)[1], 1e-3)
}

func TestRGBCube(t *testing.T) {
	r := newSoftware(t)
	g, err := NewRGBCube(2, nil)
	require.NoError(t, err)
	got := generate(t, r, g)

	for i := range 64 {
		rec := record(got, i)
		require.Equal(t, rec[:3], rec[3:], "point %d position must equal color", i)
	}
	assert.Equal(t, []float32{1, 1, 1}, record(got, 63)[:3])
	assert.InDeltaSlice(t, []float32{1.0 / 3, 2.0 / 3, 0}, record(got, 1+2*4)[:3], 1e-6)
}

func TestRGBCubeFromImage(t *testing.T) {
	r := newSoftware(t)
	g, err := NewRGBCube(3, testImage())
	require.NoError(t, err)
	require.Equal(t, uint32(4), g.PointCount())
	got := generate(t, r, g)

	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0}, record(got, 0))
	assert.Equal(t, []float32{1, 0, 0, 1, 0, 0}, record(got, 1))
	assert.Equal(t, []float32{1, 1, 1, 1, 1, 1}, record(got, 3))
}

func TestFibonacciSphere(t *testing.T) {
	r := newSoftware(t)
	g, err := NewFibonacci(1000)
	require.NoError(t, err)
	got := generate(t, r, g)

	prevHue := float32(-1)
	for i := range 1000 {
		rec := record(got, i)
		radius := math32.Sqrt(rec[0]*rec[0] + rec[1]*rec[1] + rec[2]*rec[2])
		require.InDelta(t, LatticeRadius, radius, 1e-4, "point %d", i)

		h, _, _ := color.RGBToHSL(rec[3], rec[4], rec[5])
		require.GreaterOrEqual(t, h, prevHue-1e-4, "hue must not decrease at point %d", i)
		prevHue = h
	}
	assert.InDelta(t, LatticeRadius, record(got, 0)[1], 1e-6, "the first point sits on the pole")
}

func TestPopulateRebindsForNewCloud(t *testing.T) {
	r := newSoftware(t)
	g, err := NewRGBCube(1, nil)
	require.NoError(t, err)

	first := generate(t, r, g)
	created := r.Stats().BindGroupsCreated
	second := generate(t, r, g)

	assert.Equal(t, first, second)
	assert.Greater(t, r.Stats().BindGroupsCreated, created)
}

func TestPopulateRejectsCountMismatch(t *testing.T) {
	r := newSoftware(t)
	g, err := NewFibonacci(10)
	require.NoError(t, err)
	t.Cleanup(g.Release)

	pc, err := pointcloud.New(r, camera.NewCamera(), 20)
	require.NoError(t, err)
	t.Cleanup(pc.Destroy)

	assert.ErrorIs(t, g.Populate(r, pc.VertexBuffer(), 20), pointcloud.ErrCountMismatch)
}

func TestPopulateLargeCloudUsesSecondDimension(t *testing.T) {
	r := newSoftware(t, renderer.WithLimits(renderer.Limits{
		MaxStorageBufferBindingSize:      1 << 24,
		MaxBufferSize:                    1 << 24,
		MaxComputeWorkgroupsPerDimension: 16,
	}))
	g, err := NewLUVGrid(20)
	require.NoError(t, err)
	got := generate(t, r, g)

	white := record(got, int(g.PointCount())-1)
	assert.Equal(t, []float32{1, 1, 1}, white[3:])
}
