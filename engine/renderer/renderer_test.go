package renderer

import (
	"context"
	"encoding/binary"
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/compute"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doubleSource = `
//@oxy:group 0 0 read_write data array<f32>
//@oxy:group 0 1 uniform count u32

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= count) {
        return;
    }
    data[gid.x] = data[gid.x] * 2.0;
}
`

const pointSource = `
struct VertexIn {
    @location(0) position: vec3<f32>,
    @location(1) color: vec3<f32>,
};

struct VertexOut {
    @builtin(position) clip: vec4<f32>,
    @location(0) color: vec3<f32>,
};

@group(0) @binding(0) var<uniform> offset: vec4<f32>;

@vertex
fn vs_main(in: VertexIn) -> VertexOut {
    var out: VertexOut;
    out.clip = vec4<f32>(in.position + offset.xyz, 1.0);
    out.color = in.color;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    return vec4<f32>(in.color, 1.0);
}
`

func doubleKernel(b compute.Bindings) (compute.Lane, error) {
	data, err := compute.Required(b, 0, 1)
	if err != nil {
		return nil, err
	}
	count, err := compute.RequiredWords(b, 1, 1)
	if err != nil {
		return nil, err
	}
	n := count[0]
	return func(inv compute.Invocation) {
		if inv.GlobalID[0] >= n {
			return
		}
		data[inv.GlobalID[0]] *= 2
	}, nil
}

func offsetVertex(groups []compute.Bindings) (compute.VertexLane, error) {
	offset, err := compute.Required(groups[0], 0, 4)
	if err != nil {
		return nil, err
	}
	return func(a []float32) ([4]float32, [4]float32) {
		return [4]float32{a[0] + offset[0], a[1] + offset[1], a[2] + offset[2], 1},
			[4]float32{a[3], a[4], a[5], 1}
	}, nil
}

func newSoftware(t *testing.T, opts ...RendererBuilderOption) Renderer {
	t.Helper()
	r := NewRenderer(BackendTypeSoftware, nil, append([]RendererBuilderOption{WithWorkers(4)}, opts...)...)
	t.Cleanup(r.Release)
	return r
}

func doublePipeline() pipeline.Pipeline {
	return pipeline.NewPipeline("double", pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(shader.NewShader("double", shader.ShaderTypeCompute, doubleSource)),
		pipeline.WithKernel(doubleKernel),
	)
}

func pointPipeline() pipeline.Pipeline {
	return pipeline.NewPipeline("points", pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(shader.NewShader("points", shader.ShaderTypeVertex, pointSource)),
		pipeline.WithFragmentShader(shader.NewShader("points", shader.ShaderTypeFragment, pointSource)),
		pipeline.WithVertex(offsetVertex),
	)
}

func floatsToBytes(f []float32) []byte {
	out := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func bytesToFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func TestCreateBufferPadsToFourBytes(t *testing.T) {
	r := newSoftware(t)

	buf, err := r.CreateBuffer("odd", 10, wgpu.BufferUsageStorage)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), buf.Size())

	stats := r.Stats()
	assert.Equal(t, 1, stats.LiveBuffers)
	assert.Equal(t, uint64(12), stats.BufferBytes)

	buf.Release()
	buf.Release()
	stats = r.Stats()
	assert.Equal(t, 0, stats.LiveBuffers)
	assert.Equal(t, uint64(0), stats.BufferBytes)
}

func TestCreateBufferInitZeroPads(t *testing.T) {
	r := newSoftware(t)

	buf, err := r.CreateBufferInit("init", wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc, []byte{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(8), buf.Size())
	assert.NotZero(t, buf.Usage()&wgpu.BufferUsageCopyDst)

	got, err := r.ReadBuffer(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, got)
}

func TestWriteBufferValidation(t *testing.T) {
	r := newSoftware(t)
	buf, err := r.CreateBuffer("dst", 8, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst|wgpu.BufferUsageCopySrc)
	require.NoError(t, err)

	assert.Error(t, r.WriteBuffer(buf, 2, []byte{1}), "misaligned offset")
	assert.Error(t, r.WriteBuffer(buf, 4, []byte{1, 2, 3, 4, 5}), "padded write overruns")
	require.NoError(t, r.WriteBuffer(buf, 4, []byte{9, 9, 9}))

	got, err := r.ReadBuffer(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 9, 9, 9, 0}, got)

	buf.Release()
	assert.ErrorIs(t, r.WriteBuffer(buf, 0, []byte{1, 2, 3, 4}), ErrBufferReleased)
	_, err = r.ReadBuffer(context.Background(), buf)
	assert.ErrorIs(t, err, ErrBufferReleased)
}

func TestReadBufferRequiresCopySrc(t *testing.T) {
	r := newSoftware(t)
	buf, err := r.CreateBuffer("uniform", 16, wgpu.BufferUsageUniform)
	require.NoError(t, err)

	_, err = r.ReadBuffer(context.Background(), buf)
	assert.Error(t, err)
}

func TestReadBufferCancelled(t *testing.T) {
	r := newSoftware(t)
	buf, err := r.CreateBuffer("src", 16, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.ReadBuffer(ctx, buf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateBufferLimit(t *testing.T) {
	r := newSoftware(t, WithLimits(Limits{
		MaxStorageBufferBindingSize:      64,
		MaxBufferSize:                    128,
		MaxComputeWorkgroupsPerDimension: dispatch.DefaultLimit,
	}))

	_, err := r.CreateBuffer("big", 130, wgpu.BufferUsageStorage)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceLimit)

	var limitErr *ResourceLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, uint64(132), limitErr.Requested)
	assert.Equal(t, uint64(128), limitErr.Limit)
	assert.Equal(t, 0, r.Stats().LiveBuffers)
}

func TestBindGroupStorageLimit(t *testing.T) {
	r := newSoftware(t, WithLimits(Limits{
		MaxStorageBufferBindingSize:      64,
		MaxBufferSize:                    1024,
		MaxComputeWorkgroupsPerDimension: dispatch.DefaultLimit,
	}))
	require.NoError(t, r.RegisterPipelines(doublePipeline()))

	data, err := r.CreateBuffer("data", 128, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	provider := bind_group_provider.NewBindGroupProvider("double", bind_group_provider.WithBuffer(0, data))
	desc, err := r.BindGroupLayoutDescriptor("double", 0)
	require.NoError(t, err)

	assert.ErrorIs(t, r.InitBindGroup(provider, desc), ErrResourceLimit)
}

func TestRegisterPipelinesValidatesWorkgroupSize(t *testing.T) {
	r := newSoftware(t)
	src := `
@group(0) @binding(0) var<storage, read_write> data: array<f32>;

@compute @workgroup_size(32)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    data[gid.x] = 0.0;
}
`
	p := pipeline.NewPipeline("narrow", pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(shader.NewShader("narrow", shader.ShaderTypeCompute, src)),
		pipeline.WithKernel(doubleKernel),
	)
	assert.Error(t, r.RegisterPipelines(p))
	assert.Nil(t, r.Pipeline("narrow"))
}

func TestRegisterPipelinesNeedsKernelOnSoftware(t *testing.T) {
	r := newSoftware(t)
	p := pipeline.NewPipeline("nokernel", pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(shader.NewShader("nokernel", shader.ShaderTypeCompute, doubleSource)),
	)
	assert.ErrorIs(t, r.RegisterPipelines(p), ErrUnsupported)
}

func TestFrameStateErrors(t *testing.T) {
	r := newSoftware(t)
	require.NoError(t, r.RegisterPipelines(doublePipeline(), pointPipeline()))
	provider := bind_group_provider.NewBindGroupProvider("empty")

	assert.ErrorIs(t, r.DispatchCompute("double", provider, [3]uint32{1, 1, 1}), ErrNoComputeFrame)
	assert.ErrorIs(t, r.EndComputeFrame(), ErrNoComputeFrame)

	require.NoError(t, r.BeginComputeFrame())
	assert.ErrorIs(t, r.BeginComputeFrame(), ErrComputeFrameOpen)
	assert.ErrorIs(t, r.DispatchCompute("missing", provider, [3]uint32{1, 1, 1}), ErrPipelineNotFound)
	assert.ErrorIs(t, r.DispatchCompute("points", provider, [3]uint32{1, 1, 1}), ErrPipelineNotFound)
	require.NoError(t, r.EndComputeFrame())

	assert.ErrorIs(t, r.DrawCall("points", provider, nil), ErrNoFrame)
	assert.ErrorIs(t, r.EndFrame(), ErrNoFrame)
}

func TestDispatchComputeDoublesData(t *testing.T) {
	r := newSoftware(t)
	require.NoError(t, r.RegisterPipelines(doublePipeline()))

	const n = 100
	input := make([]float32, n)
	for i := range input {
		input[i] = float32(i)
	}
	data, err := r.CreateBufferInit("data", wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc, floatsToBytes(input))
	require.NoError(t, err)

	provider := bind_group_provider.NewBindGroupProvider("double", bind_group_provider.WithBuffer(0, data))
	desc, err := r.BindGroupLayoutDescriptor("double", 0)
	require.NoError(t, err)
	require.NoError(t, r.InitBindGroup(provider, desc))
	require.NotNil(t, provider.Buffer(1), "count uniform allocated from the layout")
	require.NoError(t, r.WriteBuffer(provider.Buffer(1), 0, common.SliceToBytes([]uint32{n})))

	grid, err := dispatch.NewPlanner(0).Plan(n, dispatch.WorkgroupSize)
	require.NoError(t, err)

	require.NoError(t, r.BeginComputeFrame())
	require.NoError(t, r.DispatchCompute("double", provider, grid.Workgroups()))
	require.NoError(t, r.DispatchCompute("double", provider, grid.Workgroups()))
	require.NoError(t, r.EndComputeFrame())

	raw, err := r.ReadBuffer(context.Background(), data)
	require.NoError(t, err)
	got := bytesToFloats(raw)
	for i := range n {
		assert.Equal(t, float32(i*4), got[i], "element %d", i)
	}

	stats := r.Stats()
	assert.Equal(t, 2, stats.Dispatches)
	assert.Equal(t, 1, stats.Submissions)
	assert.Equal(t, 1, stats.BindGroupsCreated)
	assert.Equal(t, 2, stats.LiveBuffers)
}

func TestDispatchComputeRejectsOversizedGrid(t *testing.T) {
	r := newSoftware(t)
	require.NoError(t, r.RegisterPipelines(doublePipeline()))
	provider := bind_group_provider.NewBindGroupProvider("double")
	desc, err := r.BindGroupLayoutDescriptor("double", 0)
	require.NoError(t, err)
	require.NoError(t, r.InitBindGroup(provider, desc))

	require.NoError(t, r.BeginComputeFrame())
	assert.Error(t, r.DispatchCompute("double", provider, [3]uint32{dispatch.DefaultLimit + 1, 1, 1}))
	require.NoError(t, r.EndComputeFrame())
}

func TestDrawCallRastersPointsWithDepthTest(t *testing.T) {
	r := newSoftware(t, WithFrameSize(4, 4))
	require.NoError(t, r.RegisterPipelines(pointPipeline()))

	// Two points share the center pixel; the nearer red one is drawn second and passes the depth test.
	vertices := []float32{
		0, 0, 0.8, 0, 0, 1,
		0, 0, 0.2, 1, 0, 0,
		-0.9, 0.9, 0.5, 0, 1, 0,
	}
	vb, err := r.CreateBufferInit("vertices", wgpu.BufferUsageVertex, floatsToBytes(vertices))
	require.NoError(t, err)
	mesh := bind_group_provider.NewBindGroupProvider("mesh", bind_group_provider.WithVertexBuffer(vb, 3))

	uniforms := bind_group_provider.NewBindGroupProvider("uniforms")
	desc, err := r.BindGroupLayoutDescriptor("points", 0)
	require.NoError(t, err)
	require.Len(t, desc.Entries, 1)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, desc.Entries[0].Visibility)
	require.NoError(t, r.InitBindGroup(uniforms, desc))

	_, err = r.Snapshot()
	assert.ErrorIs(t, err, ErrNoFrame)

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.DrawCall("points", mesh, []bind_group_provider.BindGroupProvider{uniforms}))
	require.NoError(t, r.EndFrame())
	r.Present()

	img, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(2, 2))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 26, G: 26, B: 26, A: 255}, img.RGBAAt(3, 3))

	stats := r.Stats()
	assert.Equal(t, 1, stats.DrawCalls)
	assert.Equal(t, uint64(3), stats.VerticesDrawn)
}

func TestDrawCallClipsOutsidePoints(t *testing.T) {
	r := newSoftware(t, WithFrameSize(2, 2))
	require.NoError(t, r.RegisterPipelines(pointPipeline()))

	vb, err := r.CreateBufferInit("vertices", wgpu.BufferUsageVertex, floatsToBytes([]float32{
		3, 0, 0.5, 1, 1, 1,
		0, 0, 1.5, 1, 1, 1,
	}))
	require.NoError(t, err)
	mesh := bind_group_provider.NewBindGroupProvider("mesh", bind_group_provider.WithVertexBuffer(vb, 2))
	uniforms := bind_group_provider.NewBindGroupProvider("uniforms")
	desc, err := r.BindGroupLayoutDescriptor("points", 0)
	require.NoError(t, err)
	require.NoError(t, r.InitBindGroup(uniforms, desc))

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.DrawCall("points", mesh, []bind_group_provider.BindGroupProvider{uniforms}))
	require.NoError(t, r.EndFrame())
	r.Present()

	img, err := r.Snapshot()
	require.NoError(t, err)
	for y := range 2 {
		for x := range 2 {
			assert.Equal(t, uint8(26), img.RGBAAt(x, y).R)
		}
	}
}

func TestWriteBuffersSkipsMissingBindings(t *testing.T) {
	r := newSoftware(t)
	buf, err := r.CreateBuffer("a", 4, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst|wgpu.BufferUsageCopySrc)
	require.NoError(t, err)
	p := bind_group_provider.NewBindGroupProvider("p", bind_group_provider.WithBuffer(0, buf))

	require.NoError(t, r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: p, Binding: 0, Data: []byte{7, 0, 0, 0}},
		{Provider: p, Binding: 3, Data: []byte{1}},
	}))
	got, err := r.ReadBuffer(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0, 0, 0}, got)
}

func TestParseBackendType(t *testing.T) {
	bt, ok := ParseBackendType("software")
	assert.True(t, ok)
	assert.Equal(t, BackendTypeSoftware, bt)
	assert.Equal(t, "software", bt.String())

	_, ok = ParseBackendType("metal")
	assert.False(t, ok)
}
