package generator

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-luv/engine/color"
	"github.com/Carmen-Shannon/oxy-luv/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/compute"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader"
)

// Pipeline keys, one per kernel.
const (
	LUVGridPipelineKey   = "generator.luv_grid"
	LUVImagePipelineKey  = "generator.luv_image"
	RGBCubePipelineKey   = "generator.rgb_cube"
	RGBImagePipelineKey  = "generator.rgb_image"
	FibonacciPipelineKey = "generator.fibonacci"
)

var (
	//go:embed assets/luv_grid.wgsl
	luvGridSource string

	//go:embed assets/luv_image.wgsl
	luvImageSource string

	//go:embed assets/rgb_cube.wgsl
	rgbCubeSource string

	//go:embed assets/rgb_image.wgsl
	rgbImageSource string

	//go:embed assets/fibonacci.wgsl
	fibonacciSource string
)

// kernelDef pairs a kernel's WGSL with its Go lane factory. input names the variable at
// inputBinding.
type kernelDef struct {
	source string
	input  string
	kernel func(rowStride uint32) compute.Kernel
}

var kernels = map[string]kernelDef{
	LUVGridPipelineKey:   {luvGridSource, "params", luvGridKernel},
	LUVImagePipelineKey:  {luvImageSource, "pixels", luvImageKernel},
	RGBCubePipelineKey:   {rgbCubeSource, "params", rgbCubeKernel},
	RGBImagePipelineKey:  {rgbImageSource, "pixels", rgbImageKernel},
	FibonacciPipelineKey: {fibonacciSource, "params", fibonacciKernel},
}

// Shader builds the compute shader registered under key for a planner.
//
// Parameters:
//   - key: one of the generator pipeline keys
//   - planner: the dispatch planner whose row stride the kernel indexes with
//
// Returns:
//   - shader.Shader: the pre-processed shader, or nil for an unknown key
func Shader(key string, planner dispatch.Planner) shader.Shader {
	def, ok := kernels[key]
	if !ok {
		return nil
	}
	return shader.NewShader(key, shader.ShaderTypeCompute, def.source,
		shader.WithSnippet(dispatch.SnippetName, planner.WGSL(dispatch.WorkgroupSize)),
		shader.WithSnippet(color.SnippetName, color.WGSL),
	)
}

// ensurePipeline registers the kernel under key on r unless it is already cached.
func ensurePipeline(r renderer.Renderer, key string) error {
	if r.Pipeline(key) != nil {
		return nil
	}
	def := kernels[key]
	planner := dispatch.NewPlanner(r.Limits().MaxComputeWorkgroupsPerDimension)
	cs := Shader(key, planner)
	if err := shader.RequireBindings(cs, 0, map[string]int{"vertices": verticesBinding, def.input: inputBinding}); err != nil {
		return err
	}
	return r.RegisterPipelines(pipeline.NewPipeline(key, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(cs),
		pipeline.WithKernel(def.kernel(planner.RowStride(dispatch.WorkgroupSize))),
	))
}
