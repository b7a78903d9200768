package renderer

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceLimit is the sentinel every ResourceLimitError unwraps to.
	ErrResourceLimit = errors.New("renderer: resource limit exceeded")

	// ErrPipelineNotFound is returned when a pipeline key has not been registered.
	ErrPipelineNotFound = errors.New("renderer: pipeline not found")

	// ErrComputeFrameOpen is returned by BeginComputeFrame while a compute frame is already open.
	ErrComputeFrameOpen = errors.New("renderer: compute frame already open")

	// ErrNoComputeFrame is returned by DispatchCompute and EndComputeFrame outside a compute frame.
	ErrNoComputeFrame = errors.New("renderer: no compute frame open")

	// ErrNoFrame is returned by DrawCall and EndFrame outside a render frame.
	ErrNoFrame = errors.New("renderer: no render frame open")

	// ErrBufferReleased is returned when a released buffer is written, read or bound.
	ErrBufferReleased = errors.New("renderer: buffer released")

	// ErrForeignResource is returned when a handle created by another backend is passed in.
	ErrForeignResource = errors.New("renderer: resource belongs to another backend")

	// ErrUnsupported is returned by operations the active backend does not implement.
	ErrUnsupported = errors.New("renderer: operation not supported by backend")
)

// ResourceLimitError reports an allocation or binding larger than the device allows.
type ResourceLimitError struct {
	Label     string
	Requested uint64
	Limit     uint64
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("renderer: %s needs %d bytes, device limit is %d", e.Label, e.Requested, e.Limit)
}

func (e *ResourceLimitError) Unwrap() error {
	return ErrResourceLimit
}
