package pointcloud

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-luv/common"
)

// Vertex record layout: [x, y, z, r, g, b] float32 per point.
const (
	FloatsPerPoint = 6
	PointStride    = FloatsPerPoint * 4
)

// ModelUniformSize is the size of the model matrix uniform (mat4x4<f32>).
const ModelUniformSize = 64

// GPUTransformParams is the uniform the transform kernel reads. Each vec3 is padded to 16 bytes.
// Size: 48 bytes.
type GPUTransformParams struct {
	Translation [3]float32 // offset  0
	_pad0       float32
	Rotation    [3]float32 // offset 16: Euler angles in radians, applied X then Y then Z
	_pad1       float32
	Scale       [3]float32 // offset 32
	_pad2       float32
}

// Size returns the size of the GPUTransformParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPUTransformParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the params with zeroed padding.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUTransformParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Translation[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.Rotation[i]))
		binary.LittleEndian.PutUint32(buf[32+i*4:], math.Float32bits(g.Scale[i]))
	}
	return buf
}

// marshalMatrix serializes a column-major 4x4 matrix. m is a copy, so the returned bytes
// do not alias the caller's matrix.
func marshalMatrix(m [16]float32) []byte {
	return common.SliceToBytes(m[:])
}

// bytesToFloats decodes little-endian float32 values.
func bytesToFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// transformParams builds the uniform for one transform command.
func transformParams(translation, rotation, scale common.Vec3) GPUTransformParams {
	return GPUTransformParams{Translation: translation, Rotation: rotation, Scale: scale}
}
