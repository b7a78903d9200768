package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/compute"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

const kernelSource = `
@group(0) @binding(0) var<storage, read_write> data: array<f32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    data[gid.x] = 0.0;
}
`

const vertexSource = `
struct VertexIn {
    @location(0) position: vec3<f32>,
};

@vertex
fn vs_main(in: VertexIn) -> @builtin(position) vec4<f32> {
    return vec4<f32>(in.position, 1.0);
}
`

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("points", PipelineTypeRender)

	assert.Equal(t, PipelineTypeRender, p.Type())
	assert.Equal(t, "render", p.Type().String())
	assert.Equal(t, "points", p.Key())
	assert.Equal(t, DefaultRenderState(), p.RenderState())
	assert.Nil(t, p.RenderState().Blend)
	assert.Nil(t, p.Pipeline())
	assert.Nil(t, p.Kernel())
	assert.Nil(t, p.Vertex())
	assert.Nil(t, p.Shader(shader.ShaderTypeVertex))
}

func TestPipelineOptions(t *testing.T) {
	cs := shader.NewShader("clear", shader.ShaderTypeCompute, kernelSource)
	kernel := compute.Kernel(func(b compute.Bindings) (compute.Lane, error) {
		return func(compute.Invocation) {}, nil
	})

	p := NewPipeline("clear", PipelineTypeCompute,
		WithComputeShader(cs),
		WithKernel(kernel),
		WithDepth(false, true),
		WithDepthBias(2, 1.5),
		WithBlend(&AlphaBlend),
		WithTopology(wgpu.PrimitiveTopologyTriangleList),
	)

	assert.Same(t, cs, p.Shader(shader.ShaderTypeCompute))
	assert.Nil(t, p.Shader(shader.ShaderTypeFragment))
	assert.NotNil(t, p.Kernel())

	state := p.RenderState()
	assert.False(t, state.DepthTest)
	assert.True(t, state.DepthWrite)
	assert.Equal(t, int32(2), state.DepthBias)
	assert.Equal(t, float32(1.5), state.DepthBiasSlopeScale)
	assert.Same(t, &AlphaBlend, state.Blend)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, state.Topology)

	handle := &struct{ id int }{id: 7}
	p.SetPipeline(handle)
	assert.Same(t, handle, p.Pipeline())
}

func TestWithRenderStateAndNilShader(t *testing.T) {
	vs := shader.NewShader("v", shader.ShaderTypeVertex, vertexSource)
	assert.Same(t, vs, NewPipeline("with", PipelineTypeRender, WithVertexShader(vs)).Shader(shader.ShaderTypeVertex))
	custom := RenderState{Topology: wgpu.PrimitiveTopologyLineList, WriteMask: wgpu.ColorWriteMaskRed}

	p := NewPipeline("lines", PipelineTypeRender,
		WithVertexShader(vs),
		WithVertexShader(nil),
		WithRenderState(custom),
	)
	assert.Nil(t, p.Shader(shader.ShaderTypeVertex))
	assert.Equal(t, custom, p.RenderState())
	assert.Equal(t, "compute", PipelineTypeCompute.String())
}
