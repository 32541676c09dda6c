package tieralloc

import "sort"

// largeHeap serves every allocation above smallObjectCeiling. It
// tracks the boundary of every current chunk it has carved out of the
// tracked region — allocated or free — in an address-ordered index
// (a boundary absorbed by coalescing is dropped), and
// indexes the free ones a second time by size for best-fit lookup.
// Frees merge eagerly with an address-adjacent predecessor and
// successor, so at any point in time no two free chunks are ever
// contiguous.
//
// Both indexes are sorted uintptr slices searched with sort.Search
// plus plain Go maps for O(1) membership, rather than an ordered
// tree or set container: keeping every boundary and every free-size
// bucket sorted by hand is a small amount of slice-splicing code, and
// it avoids pulling in a container library for two structures this
// small.
type largeHeap struct {
	lk  ticketLock
	sys sysAllocator

	addrs []uintptr            // every known chunk boundary, sorted ascending
	sizes map[uintptr]uintptr  // addr -> chunk size, for every address in addrs

	freeSizes  []uintptr                    // distinct sizes with at least one free chunk, sorted ascending
	freeBySize map[uintptr]map[uintptr]struct{}
}

func newLargeHeap(sys sysAllocator) *largeHeap {
	return &largeHeap{
		sys:        sys,
		sizes:      make(map[uintptr]uintptr),
		freeBySize: make(map[uintptr]map[uintptr]struct{}),
	}
}

func (h *largeHeap) addrIndex(addr uintptr) int {
	return sort.Search(len(h.addrs), func(i int) bool { return h.addrs[i] >= addr })
}

// setAddr records addr as a chunk boundary of the given size, updating
// the entry in place if addr is already known (its position in the
// ordered slice never changes, since addresses don't move).
func (h *largeHeap) setAddr(addr, size uintptr) {
	if _, ok := h.sizes[addr]; ok {
		h.sizes[addr] = size
		return
	}
	i := h.addrIndex(addr)
	h.addrs = append(h.addrs, 0)
	copy(h.addrs[i+1:], h.addrs[i:])
	h.addrs[i] = addr
	h.sizes[addr] = size
}

// removeAddr forgets addr entirely: used only when a chunk is absorbed
// into a neighbor during coalescing and stops being a boundary in its
// own right.
func (h *largeHeap) removeAddr(addr uintptr) {
	i := h.addrIndex(addr)
	copy(h.addrs[i:], h.addrs[i+1:])
	h.addrs = h.addrs[:len(h.addrs)-1]
	delete(h.sizes, addr)
}

func (h *largeHeap) freeSizeIndex(size uintptr) int {
	return sort.Search(len(h.freeSizes), func(i int) bool { return h.freeSizes[i] >= size })
}

func (h *largeHeap) addFree(size, addr uintptr) {
	set, ok := h.freeBySize[size]
	if !ok {
		set = make(map[uintptr]struct{}, 1)
		h.freeBySize[size] = set
		i := h.freeSizeIndex(size)
		h.freeSizes = append(h.freeSizes, 0)
		copy(h.freeSizes[i+1:], h.freeSizes[i:])
		h.freeSizes[i] = size
	}
	set[addr] = struct{}{}
}

func (h *largeHeap) removeFree(size, addr uintptr) {
	set := h.freeBySize[size]
	delete(set, addr)
	if len(set) == 0 {
		delete(h.freeBySize, size)
		i := h.freeSizeIndex(size)
		copy(h.freeSizes[i:], h.freeSizes[i+1:])
		h.freeSizes = h.freeSizes[:len(h.freeSizes)-1]
	}
}

func (h *largeHeap) isFree(size, addr uintptr) bool {
	set, ok := h.freeBySize[size]
	if !ok {
		return false
	}
	_, ok = set[addr]
	return ok
}

// alloc serves size bytes via best-fit over the free chunk sets,
// falling back to a fresh region extension when nothing fits. Any
// leftover past the served size is registered as its own chunk and
// fed back through unlockedDealloc so it can coalesce with whatever
// follows it.
func (h *largeHeap) alloc(size uintptr) uintptr {
	h.lk.lock()
	defer h.lk.unlock()

	var start, end uintptr
	i := h.freeSizeIndex(size)
	if i == len(h.freeSizes) {
		start, end = h.sys.sysAlloc(size, 0)
	} else {
		fitSize := h.freeSizes[i]
		set := h.freeBySize[fitSize]
		var addr uintptr
		for a := range set {
			addr = a
			break
		}
		h.removeFree(fitSize, addr)
		start, end = addr, addr+fitSize
	}

	h.setAddr(start, size)

	left := start + size
	remaining := end - left
	if remaining > 0 {
		h.setAddr(left, remaining)
		h.unlockedDealloc(left)
	}
	return start
}

func (h *largeHeap) dealloc(p uintptr) {
	h.lk.lock()
	h.unlockedDealloc(p)
	h.lk.unlock()
}

// chunkSize reports the live size of a tracked chunk, or 0 if p isn't
// one. A caller may legitimately hold a stale address for a chunk
// that has since been freed and coalesced away, so a miss is treated
// as "unknown", not as an error worth panicking over.
func (h *largeHeap) chunkSize(p uintptr) uintptr {
	h.lk.lock()
	defer h.lk.unlock()
	return h.sizes[p]
}

// unlockedDealloc is the shared body of dealloc and alloc's
// leftover-chunk registration. It must be called with lk held.
func (h *largeHeap) unlockedDealloc(p uintptr) {
	chunk := p
	size, ok := h.sizes[chunk]
	if !ok {
		fatalf("tieralloc: largeHeap.dealloc: %#x is not a tracked chunk", p)
	}

	if pi := h.addrIndex(chunk); pi > 0 {
		prevAddr := h.addrs[pi-1]
		prevSize := h.sizes[prevAddr]
		if prevAddr+prevSize == chunk && h.isFree(prevSize, prevAddr) {
			h.removeFree(prevSize, prevAddr)
			h.removeAddr(chunk)
			chunk = prevAddr
			size += prevSize
			h.sizes[chunk] = size
		}
	}

	if ni := h.addrIndex(chunk); ni+1 < len(h.addrs) {
		nextAddr := h.addrs[ni+1]
		nextSize := h.sizes[nextAddr]
		if chunk+size == nextAddr && h.isFree(nextSize, nextAddr) {
			h.removeFree(nextSize, nextAddr)
			h.removeAddr(nextAddr)
			size += nextSize
			h.sizes[chunk] = size
		}
	}

	h.addFree(size, chunk)
}
