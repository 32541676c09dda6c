package tieralloc

// fixAllocChunkBytes is the slab size blockArena carves off its region
// at a time: big enough to amortize the region lock across many block
// allocations, small enough that a single size class's block traffic
// doesn't reserve excessive address space ahead of demand.
const fixAllocChunkBytes = 16 * 1024

// blockArena is a fixed-size free-list allocator over a dedicated
// untracked region: it carves fixAllocChunkBytes slabs from the
// region's bump pointer and hands out blockSize pieces of the current
// slab, preferring freed pieces (linked through their own first word)
// over carving fresh ones.
//
// This is a separate arena with its own lock, deliberately kept apart
// from the tracked region's sysAlloc path: deque block traffic must
// never recurse into DoAlloc, and it shouldn't contend with ordinary
// chunk allocation either.
type blockArena struct {
	lk        ticketLock
	reg       *region
	blockSize uintptr
	freeList  uintptr // head of the freelist, 0 if empty
	chunk     uintptr // bump cursor within the current slab
	chunkLeft uintptr // bytes left in the current slab
}

func newBlockArena(reg *region, blockSize uintptr) *blockArena {
	if blockSize < 8 {
		blockSize = 8
	}
	return &blockArena{reg: reg, blockSize: blockSize}
}

// alloc returns a fresh, zeroed blockSize-byte block.
func (a *blockArena) alloc() uintptr {
	a.lk.lock()
	defer a.lk.unlock()

	if a.freeList != 0 {
		p := a.freeList
		a.freeList = loadUintptrAt(p)
		zeroBytesAt(p, a.blockSize)
		return p
	}

	if a.chunkLeft < a.blockSize {
		n := fixAllocChunkBytes / a.blockSize * a.blockSize
		if n == 0 {
			n = a.blockSize
		}
		a.chunk = a.reg.reserveLocked(n)
		a.chunkLeft = n
	}

	p := a.chunk
	a.chunk += a.blockSize
	a.chunkLeft -= a.blockSize
	zeroBytesAt(p, a.blockSize)
	return p
}

// free releases a block obtained from alloc back to the freelist.
func (a *blockArena) free(p uintptr) {
	a.lk.lock()
	defer a.lk.unlock()
	storeUintptrAt(p, a.freeList)
	a.freeList = p
}
