//go:build linux

package tieralloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// unixMemoryProvider is the production memoryProvider: Reserve maps an
// anonymous, private PROT_NONE span (virtual address space only, no
// physical backing) and Commit upgrades a prefix of it to
// PROT_READ|PROT_WRITE once the region actually needs those pages.
type unixMemoryProvider struct{}

func (unixMemoryProvider) Reserve(size uintptr) uintptr {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		fatalf("tieralloc: mmap reserve of %d bytes failed: %v", size, err)
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func (unixMemoryProvider) Commit(base, size uintptr) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(base)), size)
	if err := unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		fatalf("tieralloc: mprotect commit of %d bytes at %#x failed: %v", size, base, err)
	}
}
