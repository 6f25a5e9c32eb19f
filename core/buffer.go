package core

import "sync/atomic"

// Buffer owns a cache-aligned byte region. Detach may be called at any time
// from any goroutine; afterwards every view over the buffer is unattached.
type Buffer struct {
	state atomic.Pointer[bufferState]
}

type bufferState struct {
	data []byte
}

// NewBuffer allocates a zeroed buffer of size bytes.
func NewBuffer(size int) *Buffer {
	return WrapBuffer(AlignedBytes(size))
}

// WrapBuffer takes ownership of b without copying.
func WrapBuffer(b []byte) *Buffer {
	buf := &Buffer{}
	if b == nil {
		b = []byte{}
	}
	buf.state.Store(&bufferState{data: b})
	return buf
}

// Len is the current size in bytes, zero once detached.
func (b *Buffer) Len() int {
	return len(b.Bytes())
}

func (b *Buffer) Attached() bool {
	return b.state.Load() != nil
}

// Detach releases the region. It is idempotent.
func (b *Buffer) Detach() {
	b.state.Store(nil)
}

// Bytes returns the live region, or nil once detached.
func (b *Buffer) Bytes() []byte {
	s := b.state.Load()
	if s == nil {
		return nil
	}
	return s.data
}
