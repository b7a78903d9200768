package renderer

import (
	"cmp"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipelineLayouts returns the bind group layouts of every group p's shaders declare. A render
// pipeline's vertex and fragment declarations are merged.
func pipelineLayouts(p pipeline.Pipeline) map[int]wgpu.BindGroupLayoutDescriptor {
	if p.Type() == pipeline.PipelineTypeCompute {
		return p.Shader(shader.ShaderTypeCompute).BindGroupLayoutDescriptors()
	}
	return mergeLayouts(
		p.Shader(shader.ShaderTypeVertex).BindGroupLayoutDescriptors(),
		p.Shader(shader.ShaderTypeFragment).BindGroupLayoutDescriptors(),
	)
}

// mergeLayouts unions per-stage layouts group by group. A binding declared by several stages
// keeps the first declaration with the visibility of all of them. Entries come out sorted by
// binding and the first stage's label wins.
func mergeLayouts(stages ...map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	labels := make(map[int]string)
	entries := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)

	for _, stage := range stages {
		for group, desc := range stage {
			if _, ok := labels[group]; !ok {
				labels[group] = desc.Label
				entries[group] = make(map[uint32]wgpu.BindGroupLayoutEntry, len(desc.Entries))
			}
			byBinding := entries[group]
			for _, e := range desc.Entries {
				if prev, ok := byBinding[e.Binding]; ok {
					prev.Visibility |= e.Visibility
					e = prev
				}
				byBinding[e.Binding] = e
			}
		}
	}

	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(labels))
	for group, byBinding := range entries {
		sorted := slices.SortedFunc(maps.Values(byBinding), func(a, b wgpu.BindGroupLayoutEntry) int {
			return cmp.Compare(a.Binding, b.Binding)
		})
		out[group] = wgpu.BindGroupLayoutDescriptor{Label: labels[group], Entries: sorted}
	}
	return out
}
