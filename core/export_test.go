package core

import "unsafe"

func uintptrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

func refCount() int {
	refTable.RLock()
	defer refTable.RUnlock()
	return len(refTable.vals)
}
