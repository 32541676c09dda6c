package tieralloc

// DoAlloc serves a request for n bytes on behalf of simulated thread
// tid, routing small requests through that thread's cache and large
// ones straight to the large heap. tid must be in [0, maxThreads); the
// caller (the host simulator) owns thread-id assignment.
func DoAlloc(n uintptr, tid int) uintptr {
	s := bootstrap()
	if isSmall(n) {
		cl := sizeToClass(n)
		return s.threadCaches[tid].alloc(cl, s.central[:])
	}
	return s.large.alloc(roundLarge(n))
}

// DoDealloc returns a chunk previously obtained from DoAlloc. p may be
// the nil/zero pointer, in which case it's a no-op; otherwise it must
// be a value DoAlloc actually returned and that hasn't already been
// freed — passing anything else is undefined, mirroring the contract
// valid_chunk exists to let callers check up front.
func DoDealloc(p uintptr, tid int) {
	if p == 0 {
		return
	}
	s := bootstrap()
	cl := s.chunkToClass(p)
	if cl != 0 {
		s.threadCaches[tid].dealloc(p, cl, s.central[:])
		return
	}
	s.large.dealloc(p)
}

// ChunkSize reports the live size of a chunk. For addresses inside the
// tracked region that the allocator never handed out, or that have
// since been paired with a dealloc and replaced or coalesced away, the
// answer may be stale or zero rather than an error. An address outside
// the tracked region panics (its sizemap index is out of range), so
// callers that need a hard guarantee should gate on ValidChunk first.
func ChunkSize(p uintptr) uintptr {
	s := bootstrap()
	cl := s.chunkToClass(p)
	if cl != 0 {
		return classToSize(cl)
	}
	return s.large.chunkSize(p)
}

// ValidChunk reports whether p falls within memory this allocator has
// ever handed out, i.e. whether it's safe to pass to DoDealloc or
// ChunkSize at all. It never takes a lock: the tracked region's bump
// pointer is published with an atomic store specifically so this check stays cheap and
// lock-free, at the cost of possibly lagging a concurrent DoAlloc by
// one bump advance.
func ValidChunk(p uintptr) bool {
	s := bootstrap()
	return p >= s.tracked.base && p <= s.tracked.loadBump()
}

// chunkToClass reads the sizemap entry for the tracked page p falls
// in: 0 means p belongs to the large heap. p must lie inside the
// tracked region, which the caller must rule out separately with
// ValidChunk; outside it the sizemap index is out of range and this
// panics.
func (s *allocState) chunkToClass(p uintptr) uint8 {
	return s.sizemap[pageOf(p-s.tracked.base)]
}
