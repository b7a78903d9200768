package renderer

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the multisample sample count of the main render pass. The default is MSAA4x.
//
// Parameters:
//   - count: MSAAOff or MSAA4x
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer asks wgpu for its fallback adapter instead of a hardware GPU. This
// needs a software Vulkan ICD such as lavapipe or SwiftShader. It has no effect on BackendTypeSoftware.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithWorkers sets how many workers the software backend spreads workgroups across.
// Zero uses runtime.NumCPU.
func WithWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.workers = n
	}
}

// WithLimits overrides the device limits of the software backend, which lets tests exercise
// limit errors with small allocations.
//
// Parameters:
//   - limits: the limits to report and enforce
//
// Returns:
//   - RendererBuilderOption: a function that applies the limits to a renderer
func WithLimits(limits Limits) RendererBuilderOption {
	return func(r *renderer) {
		r.limits = &limits
	}
}

// WithFrameSize sets the frame size used when no surface is given.
func WithFrameSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.frameSize = [2]int{width, height}
	}
}
