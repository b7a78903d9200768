package generator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// MaxBitDepth bounds NewRGBCube so (2^bitDepth)^3 fits a uint32.
const MaxBitDepth = 10

// NewRGBCube returns a generator that lays RGB out as a literal cube, position equal to color.
// With an image attached it places one point per pixel at the pixel's normalized RGB instead;
// a nil or inconsistent image selects the synthetic cube of 2^bitDepth points per edge.
//
// Parameters:
//   - bitDepth: bits per channel of the synthetic cube, 1 to MaxBitDepth
//   - img: the packed image, or nil
//
// Returns:
//   - Generator: the cube generator
//   - error: ErrInvalidParams for a bit depth outside 1..MaxBitDepth when no image is used
func NewRGBCube(bitDepth uint32, img *common.ImageBuffer) (Generator, error) {
	if img != nil && usable(img) == nil {
		return newKernelGenerator(NameRGBCube, RGBImagePipelineKey, img.PixelCount(), img.Marshal(), wgpu.BufferUsageStorage), nil
	}
	if bitDepth == 0 || bitDepth > MaxBitDepth {
		return nil, fmt.Errorf("%w: bit depth %d", ErrInvalidParams, bitDepth)
	}
	edge := uint32(1) << bitDepth
	params := GPUGridParams{Edge: edge}
	return newKernelGenerator(NameRGBCube, RGBCubePipelineKey, edge*edge*edge, params.Marshal(), wgpu.BufferUsageUniform), nil
}
