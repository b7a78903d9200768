package generator

import (
	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/color"
	"github.com/Carmen-Shannon/oxy-luv/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-luv/engine/pointcloud"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/compute"
	"github.com/chewxy/math32"
)

// goldenAngleStep is pi * (1 + sqrt(5)), the azimuth advance between lattice points.
const goldenAngleStep = math32.Pi * (1 + 2.2360679774997896)

// pointWriter writes the record of point i.
type pointWriter func(i uint32)

// pointKernel wraps a per-point writer in the bounds check and flat index recovery every
// generator kernel shares.
func pointKernel(rowStride uint32, count uint32, write pointWriter) compute.Lane {
	return func(inv compute.Invocation) {
		i := dispatch.FlatIndex(inv.GlobalID, rowStride)
		if i >= count {
			return
		}
		write(i)
	}
}

// gridCell returns the normalized RGB of grid point i on an n^3 grid. A single-point edge maps to 0.
func gridCell(i, n uint32) (r, g, b float32) {
	d := float32(max(n, 2) - 1)
	return float32(i%n) / d, float32((i/n)%n) / d, float32(i/(n*n)) / d
}

func writeRecord(rec []float32, x, y, z, r, g, b float32) {
	rec[0], rec[1], rec[2] = x, y, z
	rec[3], rec[4], rec[5] = r, g, b
}

// luvGridKernel mirrors assets/luv_grid.wgsl.
func luvGridKernel(rowStride uint32) compute.Kernel {
	return func(b compute.Bindings) (compute.Lane, error) {
		vertices := b.Floats(0)
		params, err := compute.RequiredWords(b, 1, 1)
		if err != nil {
			return nil, err
		}
		n := params[0]
		count := uint32(len(vertices) / pointcloud.FloatsPerPoint)
		return pointKernel(rowStride, count, func(i uint32) {
			r, g, bl := gridCell(i, n)
			l, u, v := color.RGBToLUV(r, g, bl)
			writeRecord(vertices[i*pointcloud.FloatsPerPoint:], l*LUVScale, u*LUVScale, v*LUVScale, r, g, bl)
		}), nil
	}
}

// luvImageKernel mirrors assets/luv_image.wgsl.
func luvImageKernel(rowStride uint32) compute.Kernel {
	return func(b compute.Bindings) (compute.Lane, error) {
		vertices := b.Floats(0)
		pixels, err := compute.RequiredWords(b, 1, 1)
		if err != nil {
			return nil, err
		}
		count := min(uint32(len(vertices)/pointcloud.FloatsPerPoint), uint32(len(pixels)))
		return pointKernel(rowStride, count, func(i uint32) {
			r, g, bl := common.UnpackRGB(pixels[i])
			l, u, v := color.RGBToLUV(r, g, bl)
			writeRecord(vertices[i*pointcloud.FloatsPerPoint:], l*LUVScale, u*LUVScale, v*LUVScale, r, g, bl)
		}), nil
	}
}

// rgbCubeKernel mirrors assets/rgb_cube.wgsl.
func rgbCubeKernel(rowStride uint32) compute.Kernel {
	return func(b compute.Bindings) (compute.Lane, error) {
		vertices := b.Floats(0)
		params, err := compute.RequiredWords(b, 1, 1)
		if err != nil {
			return nil, err
		}
		n := params[0]
		count := uint32(len(vertices) / pointcloud.FloatsPerPoint)
		return pointKernel(rowStride, count, func(i uint32) {
			r, g, bl := gridCell(i, n)
			writeRecord(vertices[i*pointcloud.FloatsPerPoint:], r, g, bl, r, g, bl)
		}), nil
	}
}

// rgbImageKernel mirrors assets/rgb_image.wgsl.
func rgbImageKernel(rowStride uint32) compute.Kernel {
	return func(b compute.Bindings) (compute.Lane, error) {
		vertices := b.Floats(0)
		pixels, err := compute.RequiredWords(b, 1, 1)
		if err != nil {
			return nil, err
		}
		count := min(uint32(len(vertices)/pointcloud.FloatsPerPoint), uint32(len(pixels)))
		return pointKernel(rowStride, count, func(i uint32) {
			r, g, bl := common.UnpackRGB(pixels[i])
			writeRecord(vertices[i*pointcloud.FloatsPerPoint:], r, g, bl, r, g, bl)
		}), nil
	}
}

// fibonacciKernel mirrors assets/fibonacci.wgsl.
func fibonacciKernel(rowStride uint32) compute.Kernel {
	return func(b compute.Bindings) (compute.Lane, error) {
		vertices := b.Floats(0)
		params, err := compute.Required(b, 1, 3)
		if err != nil {
			return nil, err
		}
		radius, saturation, lightness := params[0], params[1], params[2]
		count := uint32(len(vertices) / pointcloud.FloatsPerPoint)
		return pointKernel(rowStride, count, func(i uint32) {
			p, t := LatticePoint(i, count, radius)
			r, g, bl := color.HSLToRGB(t, saturation, lightness)
			writeRecord(vertices[i*pointcloud.FloatsPerPoint:], p[0], p[1], p[2], r, g, bl)
		}), nil
	}
}

// LatticePoint returns point i of an n-point Fibonacci lattice on a sphere of the given radius,
// along with its sweep parameter i/n, which the generator uses as the hue.
//
// Parameters:
//   - i: the point index
//   - n: the number of points on the sphere
//   - radius: the sphere radius
//
// Returns:
//   - common.Vec3: the point, with the poles on the Y axis
//   - float32: i / n
func LatticePoint(i, n uint32, radius float32) (common.Vec3, float32) {
	t := float32(i) / float32(n)
	phi := math32.Acos(1 - 2*t)
	theta := goldenAngleStep * float32(i)
	sp, cp := math32.Sincos(phi)
	st, ct := math32.Sincos(theta)
	return common.Vec3{radius * ct * sp, radius * cp, radius * st * sp}, t
}
