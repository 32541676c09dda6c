package tieralloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedSysAllocator struct {
	tracked *region
}

func (f *fixedSysAllocator) sysAlloc(chunkSize uintptr, cl uint8) (uintptr, uintptr) {
	pages := sysAllocMinPages
	need := uintptr(pages) * pageSize
	minPages := (chunkSize + pageSize - 1) / pageSize
	if uintptr(pages) < minPages {
		need = minPages * pageSize
	}
	start := f.tracked.reserveLocked(need)
	return start, start + need
}

func newTestCentral(t *testing.T, cl uint8) (*centralFreeList, *blockArena) {
	t.Helper()
	tracked := newRegion(unixMemoryProvider{}, 256<<20)
	untracked := newRegion(unixMemoryProvider{}, 32<<20)
	blocks := newBlockArena(untracked, dequeBlockSize)
	sys := &fixedSysAllocator{tracked: tracked}
	return newCentralFreeList(cl, sys, blocks), blocks
}

func TestCentralFreeListAllocDeallocRoundTrip(t *testing.T) {
	c, _ := newTestCentral(t, 4) // 256-byte class
	p := c.alloc()
	require.NotZero(t, p)
	c.dealloc(p)
	q := c.alloc()
	require.Equal(t, p, q) // recycled chunk reused before carving a fresh one
}

func TestCentralFreeListBulkAllocFillsTarget(t *testing.T) {
	c, blocks := newTestCentral(t, 2) // 128-byte class
	dst := newBlockedDeque(blocks)
	c.bulkAlloc(dst)
	require.Equal(t, uint64(c.elemsPerFetch), dst.size())

	seen := map[uintptr]bool{}
	for !dst.empty() {
		p := dst.popFront()
		require.False(t, seen[p], "duplicate chunk address returned")
		seen[p] = true
	}
}

func TestCentralFreeListBulkDeallocRecycles(t *testing.T) {
	c, blocks := newTestCentral(t, 3)
	dst := newBlockedDeque(blocks)
	// Two fetches fill two blocks; donating one block's worth leaves a
	// block behind in dst, as spliceFront requires.
	c.bulkAlloc(dst)
	c.bulkAlloc(dst)
	n := int(dst.size()) / 2

	c.bulkDealloc(dst, n)
	require.Equal(t, uint64(n), dst.size())

	c.lk.lock()
	require.Equal(t, uint64(n), c.recycled.size())
	c.lk.unlock()
}

func TestCentralFreeListBulkAllocStealsWholeBlockWhenTargetIsFull(t *testing.T) {
	// Class 1 (64 bytes) has elemsPerFetch == blockCapacity (32 KiB
	// fetch target / 64 bytes == 512, clamped to 32), so bulkAlloc
	// should take the whole-block steal_front path.
	c, blocks := newTestCentral(t, 1)
	require.Equal(t, blockCapacity, c.elemsPerFetch)

	dst := newBlockedDeque(blocks)
	src := newBlockedDeque(blocks)
	// Populate recycled indirectly via two bump fetches + a one-block
	// dealloc (spliceFront needs a block left behind in src).
	c.bulkAlloc(src)
	c.bulkAlloc(src)
	n := int(src.size()) / 2
	c.bulkDealloc(src, n)

	c.bulkAlloc(dst)
	require.Equal(t, uint64(blockCapacity), dst.size())
}
