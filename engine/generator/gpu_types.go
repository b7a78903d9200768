package generator

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// LUVScale shrinks stored L, u and v so a LUV cloud spans roughly the unit cube.
const LUVScale float32 = 0.01

// LatticeRadius is the sphere radius of the Fibonacci lattice.
const LatticeRadius float32 = 2

// GPUGridParams is the uniform of the grid kernels. Size: 16 bytes.
type GPUGridParams struct {
	Edge uint32 // points per cube edge
	_pad [3]uint32
}

// Size returns the size of the GPUGridParams struct in bytes.
func (g *GPUGridParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the params with zeroed padding.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUGridParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], g.Edge)
	return buf
}

// GPULatticeParams is the uniform of the Fibonacci kernel. Size: 16 bytes.
type GPULatticeParams struct {
	Radius     float32
	Saturation float32
	Lightness  float32
	_pad       float32
}

// Size returns the size of the GPULatticeParams struct in bytes.
func (g *GPULatticeParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the params with zeroed padding.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPULatticeParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(g.Radius))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(g.Saturation))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(g.Lightness))
	return buf
}
