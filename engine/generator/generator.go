// Package generator holds the kernels that populate a point cloud: a CIELUV grid, a CIELUV image
// projection, an RGB cube (synthetic or image-driven) and a Fibonacci sphere lattice. Each variant
// is one compute dispatch writing the shared [x, y, z, r, g, b] record layout, so the buffer is
// ready to draw as soon as Populate returns.
package generator

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"github.com/Carmen-Shannon/oxy-luv/engine/pointcloud"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// Bindings of every generator bind group.
const (
	verticesBinding = 0
	inputBinding    = 1
)

// Generator populates a point cloud's vertex buffer with one kernel dispatch.
type Generator interface {
	pointcloud.Populator

	// Release frees the generator's input buffer and bind group. The generator can populate
	// again afterwards; the buffers are recreated on demand.
	Release()
}

// kernelGenerator is the state every variant shares: a pipeline key, the bytes bound at
// binding 1 and the bind group provider that borrows the target vertex buffer.
type kernelGenerator struct {
	mu *sync.Mutex

	name     string
	key      string
	count    uint32
	rotation common.Vec3

	// input is uploaded to binding 1 with inputUsage.
	input      []byte
	inputUsage wgpu.BufferUsage

	r        renderer.Renderer
	provider bind_group_provider.BindGroupProvider
	target   resource.Buffer
}

var _ Generator = &kernelGenerator{}

func newKernelGenerator(name, key string, count uint32, input []byte, usage wgpu.BufferUsage) *kernelGenerator {
	return &kernelGenerator{
		mu:         &sync.Mutex{},
		name:       name,
		key:        key,
		count:      count,
		input:      input,
		inputUsage: usage,
	}
}

func (g *kernelGenerator) Name() string {
	return g.name
}

func (g *kernelGenerator) PointCount() uint32 {
	return g.count
}

func (g *kernelGenerator) PresentationRotation() common.Vec3 {
	return g.rotation
}

// Populate registers the kernel on first use, binds vertices and dispatches one thread per point
// in its own compute frame.
//
// Parameters:
//   - r: the renderer owning vertices
//   - vertices: a storage buffer of at least count records
//   - count: the number of points to write; must equal PointCount
//
// Returns:
//   - error: a count mismatch, a dispatch limit error or a renderer error
func (g *kernelGenerator) Populate(r renderer.Renderer, vertices resource.Buffer, count uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if count != g.count {
		return fmt.Errorf("%w: %s writes %d points, asked for %d", pointcloud.ErrCountMismatch, g.name, g.count, count)
	}
	if need := uint64(count) * pointcloud.PointStride; vertices.Size() < need {
		return fmt.Errorf("%s: vertex buffer holds %d bytes, need %d", g.name, vertices.Size(), need)
	}

	grid, err := dispatch.NewPlanner(r.Limits().MaxComputeWorkgroupsPerDimension).Plan(count, dispatch.WorkgroupSize)
	if err != nil {
		return err
	}
	if err := ensurePipeline(r, g.key); err != nil {
		return err
	}
	if err := g.bind(r, vertices); err != nil {
		return err
	}

	if err := r.BeginComputeFrame(); err != nil {
		return err
	}
	if err := r.DispatchCompute(g.key, g.provider, grid.Workgroups()); err != nil {
		_ = r.EndComputeFrame()
		return err
	}
	if err := r.EndComputeFrame(); err != nil {
		return err
	}

	logger.Debug("generator dispatched",
		zap.String("generator", g.name),
		zap.Uint32("points", count),
		zap.Uint32("groups_x", grid.X),
		zap.Uint32("groups_y", grid.Y),
	)
	return nil
}

// bind uploads the input on first use with r and rebuilds the bind group when the target vertex
// buffer changes. Caller must hold the mutex.
func (g *kernelGenerator) bind(r renderer.Renderer, vertices resource.Buffer) error {
	if g.r != r {
		g.release()
		buf, err := r.CreateBufferInit(g.name+" input", g.inputUsage, g.input)
		if err != nil {
			return err
		}
		g.r = r
		g.provider = bind_group_provider.NewBindGroupProvider(g.name,
			bind_group_provider.WithBuffer(inputBinding, buf),
		)
	}
	if g.target == vertices && g.provider.BindGroup() != nil {
		return nil
	}

	g.provider.ReleaseBindGroup()
	g.provider.BorrowBuffer(verticesBinding, vertices)
	desc, err := r.BindGroupLayoutDescriptor(g.key, 0)
	if err != nil {
		return err
	}
	if err := r.InitBindGroup(g.provider, desc); err != nil {
		return fmt.Errorf("%s bind group: %w", g.name, err)
	}
	g.target = vertices
	return nil
}

func (g *kernelGenerator) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release()
}

func (g *kernelGenerator) release() {
	if g.provider != nil {
		g.provider.Release()
	}
	g.provider = nil
	g.target = nil
	g.r = nil
}
