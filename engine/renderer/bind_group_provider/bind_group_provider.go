package bind_group_provider

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/resource"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.Mutex

	// label is a debug label added for convenience.
	label string

	// bindGroup is the bind group created for this provider, or nil if not initialized with the Renderer.
	bindGroup resource.BindGroup
	// buffers holds the buffers bound by this provider, keyed by binding index.
	buffers map[int]resource.Buffer
	// borrowed marks bindings whose buffer belongs to someone else and must survive Release.
	borrowed map[int]bool

	// vertexBuffer is the buffer drawn from when this provider is used as a mesh.
	vertexBuffer resource.Buffer
	// vertexCount is the number of vertices a draw call issues for this provider.
	vertexCount uint32
	// ownsVertexBuffer reports whether Release frees the vertex buffer.
	ownsVertexBuffer bool
}

// BindGroupProvider describes the GPU resources behind one bind group, or behind one mesh draw.
// Point clouds, generators and the camera each hold providers. The Renderer fills in missing
// buffers and the bind group itself during InitBindGroup.
//
// Usage pattern:
//  1. A component creates a provider and attaches the buffers it already owns or borrows
//  2. The component calls Renderer.InitBindGroup(provider, descriptor) once
//  3. Per frame the component writes uniforms and hands the provider to DispatchCompute or DrawCall
//  4. Release frees the bind group and every owned buffer
type BindGroupProvider interface {
	// Release frees the bind group and every buffer the provider owns. Borrowed buffers are left alone.
	Release()

	// ReleaseBindGroup frees only the bind group so it can be rebuilt against new buffers.
	ReleaseBindGroup()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, or nil before InitBindGroup.
	//
	// Returns:
	//   - resource.BindGroup: the bind group or nil
	BindGroup() resource.BindGroup

	// Buffer returns the buffer attached at binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - resource.Buffer: the buffer or nil
	Buffer(binding int) resource.Buffer

	// Buffers returns a copy of the binding to buffer map.
	//
	// Returns:
	//   - map[int]resource.Buffer: buffers keyed by binding index
	Buffers() map[int]resource.Buffer

	// VertexBuffer returns the buffer a draw call reads vertices from, or nil.
	//
	// Returns:
	//   - resource.Buffer: the vertex buffer or nil
	VertexBuffer() resource.Buffer

	// VertexCount returns the number of vertices a draw call issues.
	//
	// Returns:
	//   - uint32: the vertex count
	VertexCount() uint32

	// SetBindGroup stores the bind group created by Renderer.InitBindGroup, releasing any previous one.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg resource.BindGroup)

	// SetBuffer attaches a buffer the provider owns at binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to attach
	SetBuffer(binding int, buf resource.Buffer)

	// BorrowBuffer attaches a buffer owned elsewhere at binding. Release never frees it.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to attach
	BorrowBuffer(binding int, buf resource.Buffer)

	// SetVertexBuffer sets the mesh vertex buffer and its vertex count.
	//
	// Parameters:
	//   - buf: the vertex buffer
	//   - count: the number of vertices to draw
	//   - owned: whether Release frees buf
	SetVertexBuffer(buf resource.Buffer, count uint32, owned bool)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the given label and options.
//
// Parameters:
//   - label: a debug label used in GPU object labels and logs
//   - opts: a variadic list of BindGroupProviderOption functions
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, opts ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		mu:       &sync.Mutex{},
		label:    label,
		buffers:  make(map[int]resource.Buffer),
		borrowed: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for binding, buf := range p.buffers {
		if buf != nil && !p.borrowed[binding] {
			buf.Release()
		}
	}
	p.buffers = make(map[int]resource.Buffer)
	p.borrowed = make(map[int]bool)

	if p.vertexBuffer != nil && p.ownsVertexBuffer {
		p.vertexBuffer.Release()
	}
	p.vertexBuffer = nil
	p.vertexCount = 0
}

func (p *bindGroupProvider) ReleaseBindGroup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() resource.BindGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) resource.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]resource.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]resource.Buffer, len(p.buffers))
	for k, v := range p.buffers {
		out[k] = v
	}
	return out
}

func (p *bindGroupProvider) VertexBuffer() resource.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vertexBuffer
}

func (p *bindGroupProvider) VertexCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vertexCount
}

func (p *bindGroupProvider) SetBindGroup(bg resource.BindGroup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(binding int, buf resource.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers[binding] = buf
	delete(p.borrowed, binding)
}

func (p *bindGroupProvider) BorrowBuffer(binding int, buf resource.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers[binding] = buf
	p.borrowed[binding] = true
}

func (p *bindGroupProvider) SetVertexBuffer(buf resource.Buffer, count uint32, owned bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vertexBuffer = buf
	p.vertexCount = count
	p.ownsVertexBuffer = owned
}
