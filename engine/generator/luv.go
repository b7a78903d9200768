package generator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// luvRotation turns the L axis from X to Y for viewing.
var luvRotation = common.Vec3{0, 0, math32.Pi / 2}

// NewLUVGrid returns a generator that samples an n^3 RGB grid, stores each sample's CIELUV
// coordinates scaled by LUVScale as the position and the RGB as the color. Point i sits at grid
// cell (i mod n, (i/n) mod n, i/n^2).
//
// Parameters:
//   - n: points per grid edge
//
// Returns:
//   - Generator: the grid generator
//   - error: ErrInvalidParams when n is zero or n^3 overflows a uint32
func NewLUVGrid(n uint32) (Generator, error) {
	count, err := cube(n)
	if err != nil {
		return nil, err
	}
	params := GPUGridParams{Edge: n}
	g := newKernelGenerator(NameLUVGrid, LUVGridPipelineKey, count, params.Marshal(), wgpu.BufferUsageUniform)
	g.rotation = luvRotation
	return g, nil
}

// NewLUVImage returns a generator that projects every pixel of img into CIELUV. A nil or
// inconsistent image falls back to NewLUVGrid(fallbackGrid), which is the no-image default.
//
// Parameters:
//   - img: the packed image, or nil
//   - fallbackGrid: grid edge used when img is unusable
//
// Returns:
//   - Generator: the image generator, or the grid generator on fallback
//   - error: an error only when the fallback grid is invalid
func NewLUVImage(img *common.ImageBuffer, fallbackGrid uint32) (Generator, error) {
	if err := usable(img); err != nil {
		logger.Warn("luv image unavailable, using grid", zap.Error(err), zap.Uint32("grid", fallbackGrid))
		return NewLUVGrid(fallbackGrid)
	}
	g := newKernelGenerator(NameLUVImage, LUVImagePipelineKey, img.PixelCount(), img.Marshal(), wgpu.BufferUsageStorage)
	g.rotation = luvRotation
	return g, nil
}

// cube returns n^3, rejecting zero and overflow.
func cube(n uint32) (uint32, error) {
	c := uint64(n) * uint64(n) * uint64(n)
	if n == 0 || c > uint64(^uint32(0)) {
		return 0, fmt.Errorf("%w: grid edge %d", ErrInvalidParams, n)
	}
	return uint32(c), nil
}

// usable reports why img cannot drive an image kernel.
func usable(img *common.ImageBuffer) error {
	if img == nil {
		return fmt.Errorf("no image attached")
	}
	return img.Validate()
}
