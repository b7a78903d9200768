package camera

import "github.com/Carmen-Shannon/oxy-luv/common"

// CameraController places the eye on a sphere around a target: radius is the distance,
// azimuth the angle about +Y measured from +Z, elevation the angle above the XZ plane.
// Radius and elevation stay inside the controller's bounds.
type CameraController interface {
	// Position returns the eye in world space.
	Position() common.Vec3

	// Target returns the point the eye looks at.
	Target() common.Vec3

	// SetTarget moves the orbit center, keeping radius and angles.
	SetTarget(target common.Vec3)

	// Zoom moves the eye toward the target for positive delta and away for negative.
	//
	// Parameters:
	//   - delta: scroll or key amount, scaled by the zoom speed
	Zoom(delta float32)

	// Orbit turns the eye by the given angles in radians.
	Orbit(dAzimuth, dElevation float32)

	// Drag orbits by a pointer movement in pixels, scaled by the mouse sensitivity. Moving
	// right turns the scene right and moving down tilts the eye up.
	Drag(dx, dy float32)

	// OrbitLeft, OrbitRight, OrbitUp and OrbitDown turn by one orbit speed step.
	OrbitLeft()
	OrbitRight()
	OrbitUp()
	OrbitDown()

	// Radius returns the distance from the target.
	Radius() float32

	// SetRadius sets the distance from the target within the radius bounds.
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle in radians.
	Azimuth() float32

	// Elevation returns the vertical angle in radians.
	Elevation() float32
}
