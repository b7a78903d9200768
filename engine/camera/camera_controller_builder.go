package camera

import "github.com/Carmen-Shannon/oxy-luv/common"

// CameraControllerOption configures an orbit controller in NewOrbitController.
type CameraControllerOption func(*orbitController)

// WithRadius sets the starting distance from the target.
func WithRadius(radius float32) CameraControllerOption {
	return func(oc *orbitController) {
		oc.at.radius = radius
	}
}

// WithAzimuth sets the starting horizontal angle in radians.
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(oc *orbitController) {
		oc.at.azimuth = azimuth
	}
}

// WithElevation sets the starting vertical angle in radians.
func WithElevation(elevation float32) CameraControllerOption {
	return func(oc *orbitController) {
		oc.at.elevation = elevation
	}
}

// WithTarget sets the orbit center.
func WithTarget(target common.Vec3) CameraControllerOption {
	return func(oc *orbitController) {
		oc.target = target
	}
}

// WithRadiusBounds limits how close and how far Zoom and SetRadius may go.
//
// Parameters:
//   - lo: the smallest radius
//   - hi: the largest radius
//
// Returns:
//   - CameraControllerOption: the option
func WithRadiusBounds(lo, hi float32) CameraControllerOption {
	return func(oc *orbitController) {
		oc.radiusBounds = bounds{lo, hi}
	}
}

// WithOrbitSpeed sets the radians turned per OrbitLeft/Right/Up/Down step.
func WithOrbitSpeed(speed float32) CameraControllerOption {
	return func(oc *orbitController) {
		oc.orbitSpeed = speed
	}
}

// WithMouseSensitivity sets the radians turned per pixel of Drag.
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(oc *orbitController) {
		oc.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the radius change per unit of Zoom delta.
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(oc *orbitController) {
		oc.zoomSpeed = speed
	}
}
