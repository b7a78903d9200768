package renderer

import (
	"context"
	"image"

	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU backend driving a real adapter.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the CPU backend that executes each pipeline's Go stage functions.
	BackendTypeSoftware
)

// String returns the config name of the backend type.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// ParseBackendType maps a config name to a RendererBackendType.
//
// Parameters:
//   - name: "wgpu" or "software"
//
// Returns:
//   - RendererBackendType: the matching type
//   - bool: false if the name is unknown
func ParseBackendType(name string) (RendererBackendType, bool) {
	switch name {
	case "wgpu":
		return BackendTypeWGPU, true
	case "software":
		return BackendTypeSoftware, true
	default:
		return 0, false
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped
)

// MSAASampleCount is the number of samples per pixel of the main color and depth targets.
// WebGPU guarantees support for 1 and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// DepthFormat is the format of the main depth attachment.
const DepthFormat = wgpu.TextureFormatDepth24Plus

// Surface is the window-side collaborator a wgpu backend presents into.
type Surface interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// Limits are the device limits the facade and its callers validate against.
type Limits struct {
	MaxStorageBufferBindingSize      uint64
	MaxBufferSize                    uint64
	MaxComputeWorkgroupsPerDimension uint32
}

// Stats are cumulative counters kept by the facade, except LiveBuffers and BufferBytes which
// describe the buffers currently allocated.
type Stats struct {
	LiveBuffers       int
	BufferBytes       uint64
	BindGroupsCreated int
	Dispatches        int
	DrawCalls         int
	VerticesDrawn     uint64
	Submissions       int
}

// RendererBackend is the device layer behind the Renderer facade. Buffer sizes passed to a
// backend are already 4-byte aligned and writes are already bounds-checked.
type RendererBackend interface {
	Limits() Limits
	LiveBuffers() (count int, bytes uint64)

	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (resource.Buffer, error)
	WriteBuffer(buf resource.Buffer, offset uint64, data []byte) error
	ReadBuffer(ctx context.Context, buf resource.Buffer) ([]byte, error)
	CreateBindGroup(label string, descriptor wgpu.BindGroupLayoutDescriptor, buffers map[int]resource.Buffer) (resource.BindGroup, error)

	RegisterComputePipeline(p pipeline.Pipeline) error
	RegisterRenderPipeline(p pipeline.Pipeline) error

	BeginComputeFrame() error
	DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error
	EndComputeFrame() error

	BeginFrame() error
	DrawCall(p pipeline.Pipeline, mesh bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error
	EndFrame() error
	Present()

	ConfigureSurface(width, height int)
	SetPresentMode(mode PresentMode)
	WaitIdle()
	Snapshot() (*image.RGBA, error)
	Release()
}
