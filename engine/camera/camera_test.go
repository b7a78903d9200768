package camera

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader/shadertest"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformLayout(t *testing.T) {
	u := GPUCameraUniform{}
	u.View[0] = 1
	u.Proj[5] = 2
	u.Position = [4]float32{3, 4, 5, 1}

	assert.Equal(t, 144, u.Size())
	b := u.Marshal()
	require.Len(t, b, 144)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(b[0:])))
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(b[64+5*4:])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(b[128:])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(b[140:])))
}

func TestUniformSourceCompiles(t *testing.T) {
	src := GPUCameraUniformSource + `
@group(0) @binding(0) var<uniform> camera: CameraUniform;

@vertex
fn vs_main(@location(0) p: vec3<f32>) -> @builtin(position) vec4<f32> {
    return camera.proj * camera.view * vec4<f32>(p, camera.position.w);
}
`
	shadertest.RequireCompiles(t, "camera", src)
}

func TestOrbitControllerPosition(t *testing.T) {
	cc := NewOrbitController(WithRadius(2), WithElevation(0), WithAzimuth(0))
	assert.Equal(t, common.Vec3{0, 0, 2}, roundVec(cc.Position()))

	cc.Orbit(math32.Pi/2, 0)
	assert.Equal(t, common.Vec3{2, 0, 0}, roundVec(cc.Position()))

	cc.SetTarget(common.Vec3{1, 1, 1})
	assert.Equal(t, common.Vec3{3, 1, 1}, roundVec(cc.Position()))
	assert.Equal(t, common.Vec3{1, 1, 1}, cc.Target())
}

func TestOrbitControllerSteps(t *testing.T) {
	cc := NewOrbitController(WithOrbitSpeed(0.1), WithMouseSensitivity(0.01), WithElevation(0))

	cc.OrbitRight()
	cc.OrbitRight()
	cc.OrbitLeft()
	assert.InDelta(t, 0.1, cc.Azimuth(), 1e-6)

	cc.OrbitUp()
	assert.InDelta(t, 0.1, cc.Elevation(), 1e-6)
	cc.OrbitDown()
	assert.InDelta(t, 0, cc.Elevation(), 1e-6)

	cc.Drag(10, 5)
	assert.InDelta(t, 0, cc.Azimuth(), 1e-6)
	assert.InDelta(t, 0.05, cc.Elevation(), 1e-6)
}

func TestOrbitControllerClamps(t *testing.T) {
	cc := NewOrbitController(WithRadiusBounds(1, 3), WithRadius(2), WithZoomSpeed(1))

	cc.Zoom(10)
	assert.Equal(t, float32(1), cc.Radius())
	cc.Zoom(-10)
	assert.Equal(t, float32(3), cc.Radius())

	cc.SetRadius(100)
	assert.Equal(t, float32(3), cc.Radius())

	cc.Orbit(0, 10)
	assert.Equal(t, float32(elevationLimit), cc.Elevation())
	cc.Orbit(0, -20)
	assert.Equal(t, float32(-elevationLimit), cc.Elevation())
}

func TestCameraLooksAtTarget(t *testing.T) {
	c := NewCamera(WithController(NewOrbitController(WithRadius(4), WithElevation(0))))

	assert.Equal(t, common.Vec3{0, 0, 4}, roundVec(c.Position()))

	// The target projects to the center of clip space in front of the camera.
	vp := c.ViewProjection()
	clip := common.MulPoint(vp[:], common.Vec3{})
	require.Greater(t, clip[3], float32(0))
	assert.InDelta(t, 0, clip[0]/clip[3], 1e-6)
	assert.InDelta(t, 0, clip[1]/clip[3], 1e-6)
	ndcZ := clip[2] / clip[3]
	assert.True(t, ndcZ > 0 && ndcZ < 1, "depth %v inside [0, 1]", ndcZ)
}

func TestCameraUniformBuffer(t *testing.T) {
	r := renderer.NewRenderer(renderer.BackendTypeSoftware, nil)
	defer r.Release()

	c := NewCamera(WithController(NewOrbitController()))
	assert.ErrorIs(t, c.Flush(r), ErrNotInitialized)
	require.NoError(t, c.Init(r))
	require.NoError(t, c.Init(r))

	buf := c.UniformBuffer()
	require.NotNil(t, buf)
	assert.Equal(t, uint64(144), buf.Size())
	assert.NotZero(t, buf.Usage()&wgpu.BufferUsageUniform)
	assert.Equal(t, 1, r.Stats().LiveBuffers)

	c.SetAspect(2)
	assert.Equal(t, float32(2), c.Lens().Aspect)
	require.NoError(t, c.Flush(r))

	c.Release()
	assert.True(t, buf.Released())
	assert.Equal(t, 0, r.Stats().LiveBuffers)
	_, err := r.ReadBuffer(context.Background(), buf)
	assert.Error(t, err)
}

func roundVec(v common.Vec3) common.Vec3 {
	for i := range v {
		v[i] = math32.Round(v[i]*1e4) / 1e4
	}
	return v
}

func TestLensAndUp(t *testing.T) {
	c := NewCamera(WithFov(1), WithClipPlanes(1, 10), WithUp(common.Vec3{0, 0, 1}))
	assert.Equal(t, Lens{Fov: 1, Aspect: 1, Near: 1, Far: 10}, c.Lens())
	assert.Equal(t, common.Vec3{0, 0, 1}, c.Up())

	proj := c.Projection()
	c.SetLens(DefaultLens())
	assert.NotEqual(t, proj, c.Projection())

	var identity [16]float32
	common.Identity(identity[:])
	assert.Equal(t, identity, c.View(), "no controller leaves the view at identity")
	assert.Nil(t, c.Controller())
}
