package pointcloud

import (
	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/compute"
	"github.com/chewxy/math32"
)

// clearKernel zeroes every point record. It mirrors assets/clear.wgsl.
func clearKernel(rowStride uint32) compute.Kernel {
	return func(b compute.Bindings) (compute.Lane, error) {
		vertices := b.Floats(0)
		count := uint32(len(vertices) / FloatsPerPoint)
		return func(inv compute.Invocation) {
			i := dispatch.FlatIndex(inv.GlobalID, rowStride)
			if i >= count {
				return
			}
			clear(vertices[i*FloatsPerPoint : (i+1)*FloatsPerPoint])
		}, nil
	}
}

// transformKernel rotates, scales and translates point positions in place. It mirrors
// assets/transform.wgsl.
func transformKernel(rowStride uint32) compute.Kernel {
	return func(b compute.Bindings) (compute.Lane, error) {
		vertices := b.Floats(0)
		params, err := compute.Required(b, 1, 12)
		if err != nil {
			return nil, err
		}
		translation := common.Vec3{params[0], params[1], params[2]}
		rotation := common.Vec3{params[4], params[5], params[6]}
		scale := common.Vec3{params[8], params[9], params[10]}
		count := uint32(len(vertices) / FloatsPerPoint)

		return func(inv compute.Invocation) {
			i := dispatch.FlatIndex(inv.GlobalID, rowStride)
			if i >= count {
				return
			}
			rec := vertices[i*FloatsPerPoint : i*FloatsPerPoint+3]
			p := RotateEuler(common.Vec3{rec[0], rec[1], rec[2]}, rotation)
			if scale != common.One3 {
				p = common.Vec3{p[0] * scale[0], p[1] * scale[1], p[2] * scale[2]}
			}
			if translation != common.Zero3 {
				p = common.Vec3{p[0] + translation[0], p[1] + translation[1], p[2] + translation[2]}
			}
			rec[0], rec[1], rec[2] = p[0], p[1], p[2]
		}, nil
	}
}

// RotateEuler rotates p about X, then Y, then Z by the angles in r (radians).
// Axes whose angle is exactly zero are skipped, so a zero rotation returns p unchanged.
//
// Parameters:
//   - p: the point to rotate
//   - r: Euler angles in radians
//
// Returns:
//   - common.Vec3: the rotated point
func RotateEuler(p, r common.Vec3) common.Vec3 {
	if r[0] != 0 {
		s, c := math32.Sincos(r[0])
		p = common.Vec3{p[0], p[1]*c - p[2]*s, p[1]*s + p[2]*c}
	}
	if r[1] != 0 {
		s, c := math32.Sincos(r[1])
		p = common.Vec3{p[0]*c + p[2]*s, p[1], -p[0]*s + p[2]*c}
	}
	if r[2] != 0 {
		s, c := math32.Sincos(r[2])
		p = common.Vec3{p[0]*c - p[1]*s, p[0]*s + p[1]*c, p[2]}
	}
	return p
}

// pointsVertex projects each point with the camera and model uniforms. It mirrors vs_main in
// assets/points.wgsl.
func pointsVertex(groups []compute.Bindings) (compute.VertexLane, error) {
	cam, err := compute.Required(groups[0], 0, 36)
	if err != nil {
		return nil, err
	}
	model, err := compute.Required(groups[0], 1, 16)
	if err != nil {
		return nil, err
	}

	var viewModel, mvp [16]float32
	common.Mul4(viewModel[:], cam[0:16], model[0:16])
	common.Mul4(mvp[:], cam[16:32], viewModel[:])

	return func(a []float32) ([4]float32, [4]float32) {
		return common.MulPoint(mvp[:], common.Vec3{a[0], a[1], a[2]}), [4]float32{a[3], a[4], a[5], 1}
	}, nil
}
