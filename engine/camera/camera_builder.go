package camera

import "github.com/Carmen-Shannon/oxy-luv/common"

// CameraBuilderOption configures a camera in NewCamera. Matrices are built once after all
// options ran.
type CameraBuilderOption func(*cameraImpl)

// WithLens replaces the whole lens.
func WithLens(lens Lens) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens = lens
	}
}

// WithFov sets the vertical field of view in radians.
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens.Fov = fov
	}
}

// WithAspect sets width over height.
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens.Aspect = aspect
	}
}

// WithClipPlanes sets the near and far plane distances.
//
// Parameters:
//   - near: distance to the near plane, greater than zero
//   - far: distance to the far plane, greater than near
//
// Returns:
//   - CameraBuilderOption: the option
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens.Near, c.lens.Far = near, far
	}
}

// WithUp sets the up vector.
func WithUp(up common.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithController attaches an orbit controller the view follows.
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
