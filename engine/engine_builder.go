package engine

import (
	"github.com/Carmen-Shannon/oxy-luv/engine/scene"
	"github.com/Carmen-Shannon/oxy-luv/engine/window"
)

// EngineBuilderOption configures an Engine during NewEngine.
type EngineBuilderOption func(*engine)

// WithProfiling turns the frame rate log line on or off from the start.
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profiling.Store(enabled)
	}
}

// WithTickRate sets the tick loop rate.
//
// Parameters:
//   - hz: ticks per second, values <= 0 select 60
//
// Returns:
//   - EngineBuilderOption: the option
func WithTickRate(hz float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetTickRate(hz)
	}
}

// WithWindow gives the engine a window to pump in Run. Engines built without one are headless.
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithScene registers s under key. Lower keys draw first.
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit caps the frame loop at fps frames per second. 0 leaves it uncapped.
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetRenderFrameLimit(fps)
	}
}
