package scene

import (
	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/generator"
)

// sceneBuilder carries construction-only settings alongside the scene.
type sceneBuilder struct {
	scene *sceneImpl
	gen   generator.Generator
}

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(b *sceneBuilder)

// WithName sets the scene's identifier.
func WithName(name string) SceneBuilderOption {
	return func(b *sceneBuilder) {
		b.scene.name = name
	}
}

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(b *sceneBuilder) {
		b.scene.active = active
	}
}

// WithGenerator builds the first cloud from g during NewScene. The scene takes ownership of g.
//
// Parameters:
//   - g: the generator for the initial cloud
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithGenerator(g generator.Generator) SceneBuilderOption {
	return func(b *sceneBuilder) {
		b.gen = g
	}
}

// WithSpin sets the continuous rotation in radians per second about X, Y and Z.
//
// Parameters:
//   - spin: angular velocity per axis
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSpin(spin common.Vec3) SceneBuilderOption {
	return func(b *sceneBuilder) {
		b.scene.spin = spin
	}
}
