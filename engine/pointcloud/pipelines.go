package pointcloud

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-luv/engine/camera"
	"github.com/Carmen-Shannon/oxy-luv/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader"
)

// Pipeline keys registered by EnsurePipelines.
const (
	ClearPipelineKey     = "pointcloud.clear"
	TransformPipelineKey = "pointcloud.transform"
	PointsPipelineKey    = "pointcloud.points"
)

var (
	//go:embed assets/clear.wgsl
	clearSource string

	//go:embed assets/transform.wgsl
	transformSource string

	//go:embed assets/points.wgsl
	pointsSource string
)

// Shaders builds the clear, transform and points shaders for a planner. The points shader is
// returned twice, once per render stage.
//
// Parameters:
//   - planner: the dispatch planner whose row stride the kernels index with
//
// Returns:
//   - map[string]shader.Shader: shaders keyed by "clear", "transform", "points.vertex" and "points.fragment"
func Shaders(planner dispatch.Planner) map[string]shader.Shader {
	dispatchSnippet := shader.WithSnippet(dispatch.SnippetName, planner.WGSL(dispatch.WorkgroupSize))
	cameraSnippet := shader.WithSnippet(camera.SnippetName, camera.GPUCameraUniformSource)
	return map[string]shader.Shader{
		"clear":           shader.NewShader(ClearPipelineKey, shader.ShaderTypeCompute, clearSource, dispatchSnippet),
		"transform":       shader.NewShader(TransformPipelineKey, shader.ShaderTypeCompute, transformSource, dispatchSnippet),
		"points.vertex":   shader.NewShader(PointsPipelineKey, shader.ShaderTypeVertex, pointsSource, cameraSnippet),
		"points.fragment": shader.NewShader(PointsPipelineKey, shader.ShaderTypeFragment, pointsSource, cameraSnippet),
	}
}

// EnsurePipelines registers the point cloud pipelines on r once. Later calls find them cached.
//
// Parameters:
//   - r: the renderer to register on
//
// Returns:
//   - error: an error if registration fails
func EnsurePipelines(r renderer.Renderer) error {
	if r.Pipeline(ClearPipelineKey) != nil && r.Pipeline(TransformPipelineKey) != nil && r.Pipeline(PointsPipelineKey) != nil {
		return nil
	}

	planner := dispatch.NewPlanner(r.Limits().MaxComputeWorkgroupsPerDimension)
	rowStride := planner.RowStride(dispatch.WorkgroupSize)
	shaders := Shaders(planner)
	for name, want := range map[string]map[string]int{
		"clear":         {"vertices": verticesBinding},
		"transform":     {"vertices": verticesBinding, "params": paramsBinding},
		"points.vertex": {"camera": cameraBinding, "model": modelBinding},
	} {
		if err := shader.RequireBindings(shaders[name], 0, want); err != nil {
			return err
		}
	}

	return r.RegisterPipelines(
		pipeline.NewPipeline(ClearPipelineKey, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(shaders["clear"]),
			pipeline.WithKernel(clearKernel(rowStride)),
		),
		pipeline.NewPipeline(TransformPipelineKey, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(shaders["transform"]),
			pipeline.WithKernel(transformKernel(rowStride)),
		),
		pipeline.NewPipeline(PointsPipelineKey, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(shaders["points.vertex"]),
			pipeline.WithFragmentShader(shaders["points.fragment"]),
			pipeline.WithVertex(pointsVertex),
		),
	)
}
