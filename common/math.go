package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// Vec3 is a three component float32 vector.
type Vec3 [3]float32

// Quat is a unit quaternion stored as (x, y, z, w).
type Quat [4]float32

// Zero3 and One3 are the identity arguments of the per-point transform (translation/rotation and scale).
var (
	Zero3 = Vec3{0, 0, 0}
	One3  = Vec3{1, 1, 1}
)

// IdentityQuat returns the quaternion representing no rotation.
func IdentityQuat() Quat {
	return Quat{0, 0, 0, 1}
}

// Length returns the euclidean length of v.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// QuatFromAxisAngle builds a rotation of angle radians about axis. The axis does not need to be normalized.
//
// Parameters:
//   - axis: rotation axis
//   - angle: rotation angle in radians
//
// Returns:
//   - Quat: the unit quaternion, or the identity if axis has zero length
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	l := axis.Length()
	if l == 0 {
		return IdentityQuat()
	}
	s := math32.Sin(angle/2) / l
	return Quat{axis[0] * s, axis[1] * s, axis[2] * s, math32.Cos(angle / 2)}
}

// QuatFromEuler builds a quaternion that rotates about X, then Y, then Z, matching the order the transform kernel uses.
//
// Parameters:
//   - e: Euler angles in radians
//
// Returns:
//   - Quat: the composed rotation
func QuatFromEuler(e Vec3) Quat {
	qx := QuatFromAxisAngle(Vec3{1, 0, 0}, e[0])
	qy := QuatFromAxisAngle(Vec3{0, 1, 0}, e[1])
	qz := QuatFromAxisAngle(Vec3{0, 0, 1}, e[2])
	return qz.Mul(qy).Mul(qx)
}

// Mul returns the Hamilton product q * r, which applies r first and then q.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		q[3]*r[0] + q[0]*r[3] + q[1]*r[2] - q[2]*r[1],
		q[3]*r[1] - q[0]*r[2] + q[1]*r[3] + q[2]*r[0],
		q[3]*r[2] + q[0]*r[1] - q[1]*r[0] + q[2]*r[3],
		q[3]*r[3] - q[0]*r[0] - q[1]*r[1] - q[2]*r[2],
	}
}

// Normalize returns q scaled to unit length, or the identity for a zero quaternion.
func (q Quat) Normalize() Quat {
	l := math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if l == 0 {
		return IdentityQuat()
	}
	return Quat{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// Rotate applies q to the vector v.
func (q Quat) Rotate(v Vec3) Vec3 {
	// v' = v + 2w(u x v) + 2(u x (u x v))
	ux, uy, uz, w := q[0], q[1], q[2], q[3]
	tx := 2 * (uy*v[2] - uz*v[1])
	ty := 2 * (uz*v[0] - ux*v[2])
	tz := 2 * (ux*v[1] - uy*v[0])
	return Vec3{
		v[0] + w*tx + (uy*tz - uz*ty),
		v[1] + w*ty + (uz*tx - ux*tz),
		v[2] + w*tz + (ux*ty - uy*tx),
	}
}

// Transform is a model-level position, rotation and scale. It feeds the model matrix of the raster pass
// and is never baked into stored point positions.
type Transform struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}

// IdentityTransform returns a transform at the origin with no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{Rotation: IdentityQuat(), Scale: One3}
}

// ModelMatrix writes T * R * S into out in column-major order.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
func (t Transform) ModelMatrix(out []float32) {
	q := t.Rotation.Normalize()
	x, y, z, w := q[0], q[1], q[2], q[3]
	sx, sy, sz := t.Scale[0], t.Scale[1], t.Scale[2]

	out[0] = (1 - 2*(y*y+z*z)) * sx
	out[1] = 2 * (x*y + z*w) * sx
	out[2] = 2 * (x*z - y*w) * sx
	out[3] = 0

	out[4] = 2 * (x*y - z*w) * sy
	out[5] = (1 - 2*(x*x+z*z)) * sy
	out[6] = 2 * (y*z + x*w) * sy
	out[7] = 0

	out[8] = 2 * (x*z + y*w) * sz
	out[9] = 2 * (y*z - x*w) * sz
	out[10] = (1 - 2*(x*x+y*y)) * sz
	out[11] = 0

	out[12] = t.Position[0]
	out[13] = t.Position[1]
	out[14] = t.Position[2]
	out[15] = 1
}

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// The returned slice shares memory with the input.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(unsafe.Sizeof(zero))*len(data))
}

// Mul4 multiplies two 4x4 column-major matrices: out = a * b.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// MulPoint transforms the point p by the column-major matrix m and returns the homogeneous result.
func MulPoint(m []float32, p Vec3) [4]float32 {
	return [4]float32{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
		m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15],
	}
}

// Perspective creates a perspective projection matrix for the WebGPU clip space depth range [0, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1 / math32.Tan(fovY/2)
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1
	out[14] = (near * far) / (near - far)
	out[15] = 0
}

// LookAt creates a view matrix transforming world coordinates into camera space.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector defining camera orientation (typically 0,1,0)
func LookAt(out []float32, eye, center, up Vec3) {
	z := normalizeOr(Vec3{eye[0] - center[0], eye[1] - center[1], eye[2] - center[2]})
	x := normalizeOr(cross(up, z))
	y := cross(z, x)

	out[0], out[4], out[8], out[12] = x[0], x[1], x[2], -dot(x, eye)
	out[1], out[5], out[9], out[13] = y[0], y[1], y[2], -dot(y, eye)
	out[2], out[6], out[10], out[14] = z[0], z[1], z[2], -dot(z, eye)
	out[3], out[7], out[11], out[15] = 0, 0, 0, 1
}

func cross(a, b Vec3) Vec3 {
	return Vec3{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func dot(a, b Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// normalizeOr returns v normalized, leaving a zero vector untouched.
func normalizeOr(v Vec3) Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}
