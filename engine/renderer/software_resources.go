package renderer

import (
	"sync"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/compute"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// softwareBuffer is host memory standing in for a device buffer. The backing store is a []uint32
// so the float32 and byte views are always 4-byte aligned.
type softwareBuffer struct {
	mu       sync.Mutex
	words    []uint32
	label    string
	usage    wgpu.BufferUsage
	ledger   *bufferLedger
	released bool
}

var _ resource.Buffer = &softwareBuffer{}

func newSoftwareBuffer(label string, size uint64, usage wgpu.BufferUsage, ledger *bufferLedger) *softwareBuffer {
	ledger.add(size)
	return &softwareBuffer{
		words:  make([]uint32, size/4),
		label:  label,
		usage:  usage,
		ledger: ledger,
	}
}

func (b *softwareBuffer) Label() string           { return b.label }
func (b *softwareBuffer) Size() uint64            { return uint64(len(b.words)) * 4 }
func (b *softwareBuffer) Usage() wgpu.BufferUsage { return b.usage }

func (b *softwareBuffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

func (b *softwareBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.ledger.remove(b.Size())
	b.words = nil
}

// floats aliases the backing words as float32 values.
func (b *softwareBuffer) floats() []float32 {
	if len(b.words) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b.words[0])), len(b.words))
}

// bytes aliases the backing words as raw bytes in host byte order.
func (b *softwareBuffer) bytes() []byte {
	if len(b.words) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&b.words[0])), len(b.words)*4)
}

// softwareBindGroup is a set of software buffers keyed by binding. It is also the
// compute.Bindings view kernels and vertex stages read through.
type softwareBindGroup struct {
	label    string
	buffers  map[int]*softwareBuffer
	released bool
}

var (
	_ resource.BindGroup = &softwareBindGroup{}
	_ compute.Bindings   = &softwareBindGroup{}
)

func (g *softwareBindGroup) Label() string { return g.label }

func (g *softwareBindGroup) Release() {
	g.released = true
	g.buffers = nil
}

func (g *softwareBindGroup) Floats(binding int) []float32 {
	if buf := g.buffers[binding]; buf != nil {
		return buf.floats()
	}
	return nil
}

func (g *softwareBindGroup) Words(binding int) []uint32 {
	if buf := g.buffers[binding]; buf != nil {
		return buf.words
	}
	return nil
}

