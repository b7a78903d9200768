// Package dispatch plans compute workgroup grids for flat work lists. Grids larger than the per-dimension
// limit spill into a second dimension, and kernels recover the flat index with a shared row stride.
package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the maxComputeWorkgroupsPerDimension WebGPU guarantees.
	DefaultLimit uint32 = 65535

	// WorkgroupSize is the @workgroup_size every kernel in the engine declares.
	WorkgroupSize uint32 = 64

	// SnippetName is the include name the shader pre-processor registers WGSL output under.
	SnippetName = "dispatch"
)

// ErrDispatchLimit is the sentinel every DispatchLimitError unwraps to.
var ErrDispatchLimit = errors.New("dispatch limit exceeded")

// DispatchLimitError reports a work list that does not fit even a two-dimensional grid.
type DispatchLimitError struct {
	WorkItems     uint64
	WorkgroupSize uint32
	Limit         uint32
}

func (e *DispatchLimitError) Error() string {
	return fmt.Sprintf("dispatch of %d items exceeds capacity %d (workgroup size %d, %d groups per dimension)",
		e.WorkItems, Capacity(e.Limit, e.WorkgroupSize), e.WorkgroupSize, e.Limit)
}

func (e *DispatchLimitError) Unwrap() error {
	return ErrDispatchLimit
}

// Grid is a planned dispatch. X*Y*WorkgroupSize covers WorkItems, possibly with spare invocations
// that kernels discard by bounds checking against the real item count.
type Grid struct {
	X, Y          uint32
	WorkItems     uint32
	WorkgroupSize uint32
	RowStride     uint32
}

// Workgroups returns the grid as DispatchWorkgroups arguments.
func (g Grid) Workgroups() [3]uint32 {
	return [3]uint32{g.X, g.Y, 1}
}

// Invocations returns the total number of lanes the grid launches.
func (g Grid) Invocations() uint64 {
	return uint64(g.X) * uint64(g.Y) * uint64(g.WorkgroupSize)
}

// Planner splits flat work lists into grids no wider than Limit groups per dimension.
type Planner struct {
	Limit uint32
}

// NewPlanner returns a Planner for the given per-dimension limit; zero selects DefaultLimit.
func NewPlanner(limit uint32) Planner {
	if limit == 0 {
		limit = DefaultLimit
	}
	return Planner{Limit: limit}
}

func (p Planner) limit() uint32 {
	if p.Limit == 0 {
		return DefaultLimit
	}
	return p.Limit
}

// Plan computes the grid for workItems lanes of workgroupSize.
//
// Parameters:
//   - workItems: number of elements the kernel processes
//   - workgroupSize: lanes per workgroup, matching the kernel's @workgroup_size
//
// Returns:
//   - Grid: the planned grid; zero work items yield an empty grid
//   - error: *DispatchLimitError when the items exceed workgroupSize * Limit^2
func (p Planner) Plan(workItems, workgroupSize uint32) (Grid, error) {
	if workgroupSize == 0 {
		return Grid{}, fmt.Errorf("dispatch: workgroup size must be positive")
	}
	limit := p.limit()
	g := Grid{WorkItems: workItems, WorkgroupSize: workgroupSize, RowStride: RowStride(limit, workgroupSize)}
	if workItems == 0 {
		return g, nil
	}
	if err := p.Check(uint64(workItems), workgroupSize); err != nil {
		return Grid{}, err
	}

	total := (uint64(workItems) + uint64(workgroupSize) - 1) / uint64(workgroupSize)
	g.X = uint32(min(total, uint64(limit)))
	g.Y = uint32((total + uint64(limit) - 1) / uint64(limit))
	return g, nil
}

// Check reports whether workItems could be planned without building the grid.
func (p Planner) Check(workItems uint64, workgroupSize uint32) error {
	if workItems > Capacity(p.limit(), workgroupSize) {
		return &DispatchLimitError{WorkItems: workItems, WorkgroupSize: workgroupSize, Limit: p.limit()}
	}
	return nil
}

// WGSL returns the kernel snippet defining DISPATCH_ROW_STRIDE and flat_index for this planner.
func (p Planner) WGSL(workgroupSize uint32) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "const DISPATCH_WORKGROUP_SIZE: u32 = %du;\n", workgroupSize)
	fmt.Fprintf(&sb, "const DISPATCH_ROW_STRIDE: u32 = %du;\n\n", RowStride(p.limit(), workgroupSize))
	sb.WriteString("fn flat_index(gid: vec3<u32>) -> u32 {\n")
	sb.WriteString("    return gid.x + gid.y * DISPATCH_ROW_STRIDE;\n")
	sb.WriteString("}\n")
	return sb.String()
}

// Capacity is the largest work list this planner can split for workgroupSize lanes.
func (p Planner) Capacity(workgroupSize uint32) uint64 {
	return Capacity(p.limit(), workgroupSize)
}

// RowStride is the flat index stride between grid rows for workgroupSize lanes.
func (p Planner) RowStride(workgroupSize uint32) uint32 {
	return RowStride(p.limit(), workgroupSize)
}

// Capacity is the largest work list a grid of limit x limit groups can cover.
func Capacity(limit, workgroupSize uint32) uint64 {
	return uint64(workgroupSize) * uint64(limit) * uint64(limit)
}

// RowStride is the number of flat indices one row of the grid spans.
func RowStride(limit, workgroupSize uint32) uint32 {
	return limit * workgroupSize
}

// FlatIndex mirrors the WGSL flat_index helper.
func FlatIndex(gid [3]uint32, rowStride uint32) uint32 {
	return gid[0] + gid[1]*rowStride
}
