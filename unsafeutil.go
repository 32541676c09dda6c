package tieralloc

import "unsafe"

// These helpers treat raw region addresses as storage for scalar,
// pointer-free data (uintptr slots, intrusive freelist links). Nothing
// placed at these addresses is ever a typed Go pointer, so the garbage
// collector never needs to trace into tracked or untracked memory: both
// regions are opaque byte ranges as far as the Go runtime is concerned,
// exactly as spec requires for TRACKED (so a hosting simulator sees
// ordinary program memory there) and as a side effect keeps UNTRACKED
// safe to manage with unsafe.Pointer arithmetic.

func loadUintptrAt(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

func storeUintptrAt(addr uintptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v
}

func zeroBytesAt(addr, n uintptr) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	for i := range b {
		b[i] = 0
	}
}
