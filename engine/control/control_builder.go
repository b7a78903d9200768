package control

import (
	"time"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/generator"
)

// ServerBuilderOption is a functional option for configuring a Server.
type ServerBuilderOption func(s *server)

// WithFPS sets the frame rate source reported in status replies.
//
// Parameters:
//   - fps: function returning the current frame rate
//
// Returns:
//   - ServerBuilderOption: option function to apply
func WithFPS(fps func() float64) ServerBuilderOption {
	return func(s *server) {
		s.fps = fps
	}
}

// WithParams sets the size parameters used when a request leaves them at zero.
//
// Parameters:
//   - p: the default generator parameters
//
// Returns:
//   - ServerBuilderOption: option function to apply
func WithParams(p generator.Params) ServerBuilderOption {
	return func(s *server) {
		s.params = p
	}
}

// WithImage sets the image the image-driven generators use until a client uploads one.
func WithImage(img *common.ImageBuffer) ServerBuilderOption {
	return func(s *server) {
		s.img = img
	}
}

// WithApplyTimeout bounds how long a request waits for the render loop to apply a generator swap.
// Defaults to 10 seconds.
func WithApplyTimeout(d time.Duration) ServerBuilderOption {
	return func(s *server) {
		s.applyTimeout = d
	}
}

// WithSelected sets the generator name the scene was built from. Needed when that generator is
// image-driven and started on its fallback, so a later upload still regenerates it.
func WithSelected(name string) ServerBuilderOption {
	return func(s *server) {
		s.selected = name
	}
}
