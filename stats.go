package tieralloc

import "sync/atomic"

// sysMemStat is a global counter updated atomically from arbitrary
// goroutines, backing the Stats snapshot below.
type sysMemStat uint64

func (s *sysMemStat) load() uint64 {
	return atomic.LoadUint64((*uint64)(s))
}

func (s *sysMemStat) add(n int64) {
	if n >= 0 {
		atomic.AddUint64((*uint64)(s), uint64(n))
		return
	}
	atomic.AddUint64((*uint64)(s), ^uint64(-n-1)) // atomic subtract
}

// Stats is a point-in-time snapshot of this allocator's memory
// footprint, intended for logging and monitoring rather than
// programmatic decisions. Some fields (ThreadCacheBytes) are read
// without synchronizing with the owning thread and are therefore
// approximate: cheap to read, useful for trend-watching, not a
// transactional accounting system.
type Stats struct {
	// TrackedBytesCommitted is how much of the tracked region is
	// currently backed by physical pages (committed, not just
	// reserved).
	TrackedBytesCommitted uint64

	// BlockArenaBytesCommitted is the same figure for the untracked
	// region backing deque blocks.
	BlockArenaBytesCommitted uint64

	// LargeHeapFreeBytes is the total size of chunks currently sitting
	// idle in the large heap's free chunk sets.
	LargeHeapFreeBytes uint64

	// ThreadCacheBytes is the approximate sum of every simulated
	// thread's cache occupancy. Racy by construction: each thread
	// cache is only ever touched by its owning thread, and this walks
	// all of them without a lock.
	ThreadCacheBytes uint64
}

// CollectStats triggers bootstrap if it hasn't run yet and returns a
// snapshot of the allocator's current memory footprint.
func CollectStats() Stats {
	s := bootstrap()

	var largeFree uint64
	s.large.lk.lock()
	for _, sz := range s.large.freeSizes {
		largeFree += uint64(sz) * uint64(len(s.large.freeBySize[sz]))
	}
	s.large.lk.unlock()

	var tcBytes uint64
	for i := range s.threadCaches {
		tcBytes += uint64(s.threadCaches[i].cacheSize)
	}

	return Stats{
		TrackedBytesCommitted:    s.tracked.committed.load(),
		BlockArenaBytesCommitted: s.blocks.reg.committed.load(),
		LargeHeapFreeBytes:       largeFree,
		ThreadCacheBytes:         tcBytes,
	}
}
