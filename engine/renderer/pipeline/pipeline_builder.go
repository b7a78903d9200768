package pipeline

import (
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/compute"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a Pipeline during NewPipeline.
type PipelineBuilderOption func(*pipeline)

func withStage(stage shader.ShaderType, s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		if s == nil {
			delete(p.stages, stage)
			return
		}
		p.stages[stage] = s
	}
}

// WithVertexShader binds the vertex stage shader.
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return withStage(shader.ShaderTypeVertex, s)
}

// WithFragmentShader binds the fragment stage shader.
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return withStage(shader.ShaderTypeFragment, s)
}

// WithComputeShader binds the compute stage shader.
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return withStage(shader.ShaderTypeCompute, s)
}

// WithKernel attaches the CPU compute stage. Backends without a device run it in place of the
// WGSL entry point.
//
// Parameters:
//   - k: the kernel factory
//
// Returns:
//   - PipelineBuilderOption: the option
func WithKernel(k compute.Kernel) PipelineBuilderOption {
	return func(p *pipeline) {
		p.kernel = k
	}
}

// WithVertex attaches the CPU vertex stage.
func WithVertex(v compute.Vertex) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertex = v
	}
}

// WithRenderState replaces the whole render state.
func WithRenderState(state RenderState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state = state
	}
}

// WithDepth sets depth testing and depth writes together.
//
// Parameters:
//   - test: compare fragments against the depth buffer
//   - write: store fragment depth when the test passes
//
// Returns:
//   - PipelineBuilderOption: the option
func WithDepth(test, write bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.DepthTest = test
		p.state.DepthWrite = write
	}
}

// WithDepthBias sets the constant and slope-scaled depth bias.
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.DepthBias = bias
		p.state.DepthBiasSlopeScale = slopeScale
	}
}

// WithBlend enables blending with the given state. A nil state disables blending.
func WithBlend(blend *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.Blend = blend
	}
}

// WithTopology sets the primitive topology.
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.Topology = topology
	}
}
