package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/chewxy/math32"
)

// elevationLimit keeps the eye off the poles, where the up vector degenerates.
const elevationLimit = math32.Pi/2 - 0.05

// spherical is an eye offset from the orbit center.
type spherical struct {
	radius, azimuth, elevation float32
}

func (s spherical) offset() common.Vec3 {
	sinE, cosE := math32.Sincos(s.elevation)
	sinA, cosA := math32.Sincos(s.azimuth)
	return common.Vec3{s.radius * cosE * sinA, s.radius * sinE, s.radius * cosE * cosA}
}

type bounds struct {
	lo, hi float32
}

func (b bounds) clamp(v float32) float32 {
	return min(max(v, b.lo), b.hi)
}

type orbitController struct {
	mu *sync.Mutex

	target common.Vec3
	at     spherical

	radiusBounds    bounds
	elevationBounds bounds

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
}

var _ CameraController = &orbitController{}

// NewOrbitController creates a controller five units from the origin, slightly above the
// horizon, which frames the built-in clouds.
//
// Parameters:
//   - options: position, bounds and speed options
//
// Returns:
//   - CameraController: the controller
func NewOrbitController(options ...CameraControllerOption) CameraController {
	oc := &orbitController{
		mu:               &sync.Mutex{},
		at:               spherical{radius: 5, elevation: math32.Pi / 8},
		radiusBounds:     bounds{0.5, 50},
		elevationBounds:  bounds{-elevationLimit, elevationLimit},
		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        0.5,
	}
	for _, option := range options {
		option(oc)
	}
	oc.clamp()
	return oc
}

// clamp keeps the eye inside the bounds. Caller must hold the mutex.
func (oc *orbitController) clamp() {
	oc.at.radius = oc.radiusBounds.clamp(oc.at.radius)
	oc.at.elevation = oc.elevationBounds.clamp(oc.at.elevation)
}

func (oc *orbitController) move(fn func(at *spherical)) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	fn(&oc.at)
	oc.clamp()
}

func (oc *orbitController) Position() common.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.target.Add(oc.at.offset())
}

func (oc *orbitController) Target() common.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.target
}

func (oc *orbitController) SetTarget(target common.Vec3) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.target = target
}

func (oc *orbitController) Zoom(delta float32) {
	oc.move(func(at *spherical) { at.radius -= delta * oc.zoomSpeed })
}

func (oc *orbitController) Orbit(dAzimuth, dElevation float32) {
	oc.move(func(at *spherical) {
		at.azimuth += dAzimuth
		at.elevation += dElevation
	})
}

func (oc *orbitController) Drag(dx, dy float32) {
	oc.Orbit(-dx*oc.mouseSensitivity, dy*oc.mouseSensitivity)
}

func (oc *orbitController) OrbitLeft()  { oc.Orbit(-oc.orbitSpeed, 0) }
func (oc *orbitController) OrbitRight() { oc.Orbit(oc.orbitSpeed, 0) }
func (oc *orbitController) OrbitUp()    { oc.Orbit(0, oc.orbitSpeed) }
func (oc *orbitController) OrbitDown()  { oc.Orbit(0, -oc.orbitSpeed) }

func (oc *orbitController) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.at.radius
}

func (oc *orbitController) SetRadius(radius float32) {
	oc.move(func(at *spherical) { at.radius = radius })
}

func (oc *orbitController) Azimuth() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.at.azimuth
}

func (oc *orbitController) Elevation() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.at.elevation
}
