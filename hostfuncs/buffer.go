package hostfuncs

import (
	"strings"
	"sync"
)

// HostBuffer is a text store shared by every script of a run.
// Appends are atomic with respect to each other and to reads: the lock is
// held only while the builder is touched, never across a suspension point.
type HostBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

// NewHostBuffer creates an empty buffer.
func NewHostBuffer() *HostBuffer {
	return &HostBuffer{}
}

var processBuffer = sync.OnceValue(NewHostBuffer)

// ProcessBuffer returns the process-wide buffer. The first caller creates it;
// concurrent first calls still observe a single instance.
func ProcessBuffer() *HostBuffer {
	return processBuffer()
}

// Append adds text to the end of the buffer.
func (b *HostBuffer) Append(text string) {
	b.mu.Lock()
	b.buf.WriteString(text)
	b.mu.Unlock()
}

// String returns a copy of the full contents.
func (b *HostBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Clone(b.buf.String())
}

// Len returns the current length in bytes.
func (b *HostBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// Reset empties the buffer.
func (b *HostBuffer) Reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}
