// Package compute defines the Go execution model the software backend uses to run kernels.
// A Kernel mirrors one WGSL @compute entry point and a Vertex mirrors one @vertex entry point,
// so the same pipeline can run on a GPU or on the CPU.
package compute

// Invocation carries the WGSL builtins a lane can read.
type Invocation struct {
	GlobalID      [3]uint32
	LocalID       [3]uint32
	WorkgroupID   [3]uint32
	NumWorkgroups [3]uint32
}

// Bindings exposes the buffers of one bind group to a kernel as typed views.
// The views alias the backing memory, so writes are visible to later dispatches.
type Bindings interface {
	// Floats returns the buffer at binding as float32 values, or nil when the binding is empty.
	Floats(binding int) []float32

	// Words returns the buffer at binding as uint32 values, or nil when the binding is empty.
	Words(binding int) []uint32
}

// Lane is the body of a kernel for a single invocation. Lanes of one dispatch may run concurrently.
type Lane func(inv Invocation)

// Kernel resolves its bindings once per dispatch and returns the lane to run over the grid.
type Kernel func(b Bindings) (Lane, error)

// VertexLane transforms one vertex record into a clip space position and an RGBA color.
type VertexLane func(attrs []float32) (clip [4]float32, color [4]float32)

// Vertex resolves the bind groups of a draw call, indexed by group, and returns the per vertex lane.
type Vertex func(groups []Bindings) (VertexLane, error)

// Required returns the float view at binding or an error naming the missing binding.
func Required(b Bindings, binding int, minLen int) ([]float32, error) {
	f := b.Floats(binding)
	if len(f) < minLen {
		return nil, &BindingError{Binding: binding, Want: minLen, Got: len(f)}
	}
	return f, nil
}

// RequiredWords is Required for uint32 views.
func RequiredWords(b Bindings, binding int, minLen int) ([]uint32, error) {
	w := b.Words(binding)
	if len(w) < minLen {
		return nil, &BindingError{Binding: binding, Want: minLen, Got: len(w)}
	}
	return w, nil
}
