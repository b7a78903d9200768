package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniformSource declares the WGSL CameraUniform struct that GPUCameraUniform serializes.
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// SnippetName is the include name the shader pre-processor registers GPUCameraUniformSource under.
const SnippetName = "camera"

// GPUCameraUniform is the 144-byte camera block bound read-only by render pipelines.
type GPUCameraUniform struct {
	View     [16]float32 // offset   0: mat4x4<f32>
	Proj     [16]float32 // offset  64: mat4x4<f32>
	Position [4]float32  // offset 128: eye in world space, w = 1
}

// Size returns the uniform size in bytes.
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal returns the little-endian bytes of the uniform in field order.
//
// Returns:
//   - []byte: a new buffer of Size bytes
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, 0, g.Size())
	buf = appendFloats(buf, g.View[:])
	buf = appendFloats(buf, g.Proj[:])
	return appendFloats(buf, g.Position[:])
}

func appendFloats(buf []byte, vs []float32) []byte {
	for _, v := range vs {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}
