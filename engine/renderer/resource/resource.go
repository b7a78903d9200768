// Package resource declares the backend-neutral handles the renderer hands out for GPU objects.
// Each backend returns its own implementation and rejects handles created by another backend.
package resource

import "github.com/cogentcore/webgpu/wgpu"

// Buffer is a GPU buffer allocated by a renderer backend. Sizes are always a multiple of 4 bytes.
type Buffer interface {
	// Label returns the debug label given at creation.
	Label() string

	// Size returns the allocated size in bytes after 4-byte rounding.
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	Usage() wgpu.BufferUsage

	// Release frees the GPU memory. Releasing twice is a no-op.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

// BindGroup is a created bind group ready to be set on a compute or render pass.
type BindGroup interface {
	// Label returns the debug label given at creation.
	Label() string

	// Release frees the bind group. Releasing twice is a no-op.
	Release()
}
