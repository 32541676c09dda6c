package tieralloc

import "sync"

const (
	// trackedReserveBytes is how much tracked address space gets
	// reserved up front. It's large enough that no realistic workload
	// exhausts it; reserveLocked only commits pages as sysAlloc
	// actually needs them.
	trackedReserveBytes = 16 << 30

	// blockArenaReserveBytes backs the deque block arena shared by
	// every central free list's recycled-chunk bookkeeping.
	blockArenaReserveBytes = 256 << 20

	// centralFreeListBanks controls whether each size class gets a
	// plain, unbanked central free list (1) or a banked wrapper of N
	// shards (>1), trading extra capacity for reduced lock contention
	// under heavy multithreaded traffic.
	centralFreeListBanks = 1
)

// allocState is the process-wide singleton every exported operation
// bottoms out in: the tracked region callers' pointers live in, the
// sizemap classifying each tracked page, the shared central free
// lists and large heap, and one thread cache per simulated thread.
//
// This struct itself lives on the ordinary Go heap rather than inside
// the mmap'd regions it manages: it holds slices, maps, and mutexes,
// and the garbage collector needs to be able to trace those the same
// way it traces any other Go value. Only the memory it hands out to
// callers (tracked chunks) and the freelist bookkeeping that overlays
// that memory (deque blocks, via blockArena) are real mmap'd regions
// outside the GC's reach — see DESIGN.md for the full reasoning.
type allocState struct {
	tracked *region
	sizemap []uint8 // one entry per tracked page: 0 = large heap, else size class

	blocks *blockArena
	sys    *globalSysAllocator

	central [numClasses]centralList
	large   *largeHeap

	threadCaches [maxThreads]*threadCache
}

var (
	gs       *allocState
	bootOnce sync.Once
)

// globalSysAllocator is the one sysAllocator every central free list
// and the large heap share: it grows the tracked region and stamps
// the sizemap under the same lock, so a reader never observes a
// tracked page whose sizemap entry hasn't been written yet.
type globalSysAllocator struct {
	lk      ticketLock
	tracked *region
	sizemap []uint8
}

func (g *globalSysAllocator) sysAlloc(chunkSize uintptr, cl uint8) (uintptr, uintptr) {
	pages := uintptr(sysAllocMinPages)
	minPages := (chunkSize + pageSize - 1) / pageSize
	if minPages > pages {
		pages = minPages
	}
	need := pages * pageSize

	g.lk.lock()
	start := g.tracked.reserveLocked(need)
	if cl != 0 {
		firstPage := pageOf(start - g.tracked.base)
		for i := uintptr(0); i < pages; i++ {
			g.sizemap[firstPage+i] = cl
		}
	}
	g.lk.unlock()

	return start, start + need
}

// bootstrap lazily constructs the global allocator state on first
// use. It is idempotent and safe to call from every exported entry
// point; sync.Once guarantees exactly one goroutine does the actual
// construction and every caller, including the one that triggered it,
// sees a fully built allocState by the time bootstrap returns.
//
// Nothing called here may itself route through DoAlloc/DoDealloc:
// central free lists, the large heap, and thread caches must be fully
// usable the moment their constructors return, or the first real
// allocation request would recurse back into a still-initializing
// allocState.
func bootstrap() *allocState {
	bootOnce.Do(func() {
		tracked := newRegion(unixMemoryProvider{}, trackedReserveBytes)
		untracked := newRegion(unixMemoryProvider{}, blockArenaReserveBytes)
		blocks := newBlockArena(untracked, dequeBlockSize)

		s := &allocState{
			tracked: tracked,
			sizemap: make([]uint8, trackedReserveBytes>>pageShift),
			blocks:  blocks,
		}
		s.sys = &globalSysAllocator{tracked: tracked, sizemap: s.sizemap}

		s.large = newLargeHeap(s.sys)
		for cl := minClass; cl <= maxClass; cl++ {
			if centralFreeListBanks <= 1 {
				s.central[cl] = newCentralFreeList(uint8(cl), s.sys, blocks)
			} else {
				s.central[cl] = newBankedCentralFreeList(centralFreeListBanks, uint8(cl), s.sys, blocks, randBankHinter{})
			}
		}
		for tid := range s.threadCaches {
			s.threadCaches[tid] = newThreadCache(blocks)
		}

		gs = s
	})
	return gs
}
