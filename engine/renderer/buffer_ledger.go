package renderer

import "sync"

// bufferLedger counts the buffers a backend currently holds.
type bufferLedger struct {
	mu    sync.Mutex
	count int
	bytes uint64
}

func (l *bufferLedger) add(size uint64) {
	l.mu.Lock()
	l.count++
	l.bytes += size
	l.mu.Unlock()
}

func (l *bufferLedger) remove(size uint64) {
	l.mu.Lock()
	l.count--
	l.bytes -= size
	l.mu.Unlock()
}

func (l *bufferLedger) snapshot() (int, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count, l.bytes
}
