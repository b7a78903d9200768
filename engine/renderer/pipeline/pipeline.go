package pipeline

import (
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/compute"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute runs a single compute entry point over a dispatch grid.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender draws vertices with a vertex and a fragment entry point.
	PipelineTypeRender
)

func (t PipelineType) String() string {
	if t == PipelineTypeRender {
		return "render"
	}
	return "compute"
}

// RenderState is the fixed-function state of a render pipeline. Compute pipelines ignore it.
// A nil Blend disables blending.
type RenderState struct {
	Topology  wgpu.PrimitiveTopology
	CullMode  wgpu.CullMode
	FrontFace wgpu.FrontFace

	DepthTest           bool
	DepthWrite          bool
	DepthBias           int32
	DepthBiasSlopeScale float32

	WriteMask wgpu.ColorWriteMask
	Blend     *wgpu.BlendState
}

// DefaultRenderState returns opaque, depth-tested point rendering.
func DefaultRenderState() RenderState {
	return RenderState{
		Topology:   wgpu.PrimitiveTopologyPointList,
		CullMode:   wgpu.CullModeNone,
		FrontFace:  wgpu.FrontFaceCCW,
		DepthTest:  true,
		DepthWrite: true,
		WriteMask:  wgpu.ColorWriteMaskAll,
	}
}

// AlphaBlend is straight alpha blending over the existing color target.
var AlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// Pipeline pairs the shaders of one compute or render pass with the CPU stage functions and
// render state a backend needs to build it. The backend stores its own handle on the pipeline
// at registration.
type Pipeline interface {
	// Type reports whether this is a compute or a render pipeline.
	Type() PipelineType

	// Key returns the registry key the renderer looks the pipeline up by.
	Key() string

	// Shader returns the shader bound to the given stage.
	//
	// Parameters:
	//   - stage: vertex, fragment or compute
	//
	// Returns:
	//   - shader.Shader: the stage's shader, nil when the stage is unused
	Shader(stage shader.ShaderType) shader.Shader

	// Pipeline returns the backend handle stored at registration, nil before that. The wgpu
	// backend stores *wgpu.RenderPipeline or *wgpu.ComputePipeline.
	Pipeline() any

	// SetPipeline stores the backend handle.
	SetPipeline(handle any)

	// Kernel returns the CPU compute stage, nil when none was attached.
	Kernel() compute.Kernel

	// Vertex returns the CPU vertex stage, nil when none was attached.
	Vertex() compute.Vertex

	// RenderState returns the fixed-function state used when building a render pipeline.
	RenderState() RenderState
}

type pipeline struct {
	kind   PipelineType
	key    string
	stages map[shader.ShaderType]shader.Shader
	handle any

	kernel compute.Kernel
	vertex compute.Vertex
	state  RenderState
}

var _ Pipeline = &pipeline{}

// NewPipeline describes a pipeline. Render state starts at DefaultRenderState.
//
// Parameters:
//   - key: the registry key
//   - kind: compute or render
//   - opts: options attaching shaders, CPU stages and render state
//
// Returns:
//   - Pipeline: the configured description, not yet registered with any backend
func NewPipeline(key string, kind PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		kind:   kind,
		key:    key,
		stages: make(map[shader.ShaderType]shader.Shader, 2),
		state:  DefaultRenderState(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType { return p.kind }

func (p *pipeline) Key() string { return p.key }

func (p *pipeline) Shader(stage shader.ShaderType) shader.Shader { return p.stages[stage] }

func (p *pipeline) Pipeline() any { return p.handle }

func (p *pipeline) SetPipeline(handle any) { p.handle = handle }

func (p *pipeline) Kernel() compute.Kernel { return p.kernel }

func (p *pipeline) Vertex() compute.Vertex { return p.vertex }

func (p *pipeline) RenderState() RenderState { return p.state }
