package control

import "github.com/Carmen-Shannon/oxy-luv/engine/generator"

// Reply types.
const (
	ReplyStatus = "status"
	ReplyError  = "error"
)

// Request is one client message. Every field is optional; a message can combine a generator
// change with a PPM upload and a spin update.
type Request struct {
	// Generator switches the cloud to the named generator. The size fields default to the
	// server's current parameters when zero.
	Generator string `json:"generator,omitempty"`
	generator.Params

	// Spin sets the continuous rotation in radians per second about X, Y and Z.
	Spin *[3]float32 `json:"spin,omitempty"`

	// PPM is a P3 or P6 image feeding luv_image and rgb_cube. Uploading one without a generator
	// regenerates the current cloud when its generator is image-driven.
	PPM string `json:"ppm,omitempty"`

	// Status asks for a status reply without changing anything.
	Status bool `json:"status,omitempty"`
}

// Reply is sent to the requesting client, and status replies are also broadcast after every change.
type Reply struct {
	Type      string  `json:"type"`
	Generator string  `json:"generator,omitempty"`
	Points    uint32  `json:"points"`
	FPS       float64 `json:"fps"`
	Error     string  `json:"error,omitempty"`
}
