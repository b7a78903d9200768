package generator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-luv/common"
)

// Generator names accepted by New.
const (
	NameLUVGrid   = "luv_grid"
	NameLUVImage  = "luv_image"
	NameRGBCube   = "rgb_cube"
	NameFibonacci = "fibonacci"
)

// Names lists every generator New accepts.
var Names = []string{NameLUVGrid, NameLUVImage, NameRGBCube, NameFibonacci}

// Params carries the size parameters of every generator. Each generator reads only its own.
type Params struct {
	GridSize uint32 `json:"gridSize,omitempty"`
	BitDepth uint32 `json:"bitDepth,omitempty"`
	Count    uint32 `json:"count,omitempty"`
}

// New builds a generator by name. The image is used by luv_image and rgb_cube and ignored by
// the others.
//
// Parameters:
//   - name: one of Names
//   - p: the size parameters
//   - img: the packed image, or nil
//
// Returns:
//   - Generator: the generator
//   - error: ErrUnknownGenerator or ErrInvalidParams
func New(name string, p Params, img *common.ImageBuffer) (Generator, error) {
	switch name {
	case NameLUVGrid:
		return NewLUVGrid(p.GridSize)
	case NameLUVImage:
		return NewLUVImage(img, p.GridSize)
	case NameRGBCube:
		return NewRGBCube(p.BitDepth, img)
	case NameFibonacci:
		return NewFibonacci(p.Count)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
	}
}
