package generator

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// NewFibonacci returns a generator that spreads count points evenly over a sphere of radius
// LatticeRadius, colored by a fully saturated hue swept across the index range.
//
// Parameters:
//   - count: the number of points
//
// Returns:
//   - Generator: the lattice generator
//   - error: ErrInvalidParams for a zero count
func NewFibonacci(count uint32) (Generator, error) {
	if count == 0 {
		return nil, fmt.Errorf("%w: lattice count 0", ErrInvalidParams)
	}
	params := GPULatticeParams{Radius: LatticeRadius, Saturation: 1, Lightness: 0.5}
	return newKernelGenerator(NameFibonacci, FibonacciPipelineKey, count, params.Marshal(), wgpu.BufferUsageUniform), nil
}
