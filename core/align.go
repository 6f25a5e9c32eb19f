package core

import "unsafe"

const (
	// CacheLineSize is the alignment of every buffer allocated by NewBuffer.
	CacheLineSize = 64
)

// IsAligned checks if addr sits on a cache line boundary.
func IsAligned(addr uintptr) bool {
	return addr%CacheLineSize == 0
}

// AlignedBytes allocates a zeroed byte slice whose backing array starts on a
// cache line boundary. Any field alignment up to CacheLineSize is therefore
// honored at the same offset in every buffer.
func AlignedBytes(size int) []byte {
	if size == 0 {
		return []byte{}
	}
	buf := make([]byte, size+CacheLineSize-1)

	ptr := uintptr(unsafe.Pointer(&buf[0]))
	offset := uintptr(0)
	if mod := ptr % CacheLineSize; mod != 0 {
		offset = CacheLineSize - mod
	}
	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}
