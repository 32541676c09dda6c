// Package tieralloc implements the core of a tiered, thread-caching
// general-purpose allocator.
//
// The allocator serves small requests (up to 16,320 bytes, in 64-byte
// classes) through a three-tier path: a per-thread cache that needs no
// synchronization, a set of per-size-class central free lists that feed
// thread caches in bulk, and a region provider that carves fresh memory
// out of a single contiguous tracked address range. Requests above the
// small-object ceiling go to a best-fit, eagerly-coalescing large heap
// instead.
//
// The deque blocks that hold the thread caches' and central free lists'
// chunk addresses live in a separate untracked address range, obtained
// from the same region type used for user memory. This split exists so
// a hosting environment can treat tracked memory as ordinary program
// data while ignoring untracked memory for its own bookkeeping. The
// remaining bookkeeping (the thread cache, central free list and large
// heap structures, the large heap's indexes, and the sizemap) is
// ordinary Go heap memory, in neither range.
//
// This package is the allocation core only. It exports DoAlloc,
// DoDealloc, ChunkSize and ValidChunk; wiring these into a libc-style
// malloc/free/realloc facade, hooking a host's thread scheduler, and
// mapping fixed base addresses are all left to a caller.
package tieralloc
