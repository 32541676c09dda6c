package tieralloc

// sysAllocator is the region-provider dependency a central free list
// uses once its bump window runs dry: it hands back a fresh tracked
// span of at least chunkSize bytes (padded out to sysAllocMinPages)
// and, for small classes, stamps the sizemap so a later free can find
// its way back to this class. See bootstrap.go for the concrete
// implementation.
type sysAllocator interface {
	sysAlloc(chunkSize uintptr, cl uint8) (start, end uintptr)
}

// centralFreeList is the per-size-class shared pool mediating between
// thread caches and the region provider. It owns a deque of recycled
// chunks and a bump window of fresh ones; bulk transfers move whole
// blocks where possible to keep cross-thread synchronization O(1)
// regardless of element count.
type centralFreeList struct {
	chunkSize     uintptr
	elemsPerFetch int
	cl            uint8

	lk        ticketLock
	recycled  *blockedDeque
	bumpStart uintptr
	bumpEnd   uintptr
	sys       sysAllocator
}

func newCentralFreeList(cl uint8, sys sysAllocator, blocks *blockArena) *centralFreeList {
	sz := classToSize(cl)
	return &centralFreeList{
		chunkSize:     sz,
		elemsPerFetch: elemsPerFetch(sz),
		cl:            cl,
		recycled:      newBlockedDeque(blocks),
		sys:           sys,
	}
}

// alloc serves a single chunk: the recycled deque first, else a slice
// of the bump window, growing the window via the region provider when
// it's exhausted.
func (c *centralFreeList) alloc() uintptr {
	c.lk.lock()
	defer c.lk.unlock()

	if !c.recycled.empty() {
		return c.recycled.dequeueBack()
	}
	if c.bumpEnd-c.bumpStart < c.chunkSize {
		c.bumpStart, c.bumpEnd = c.sys.sysAlloc(c.chunkSize, c.cl)
	}
	v := c.bumpStart
	c.bumpStart += c.chunkSize
	return v
}

// dealloc returns a single chunk to the recycled deque.
func (c *centralFreeList) dealloc(p uintptr) {
	c.lk.lock()
	c.recycled.pushBack(p)
	c.lk.unlock()
}

// bulkAlloc appends up to elemsPerFetch chunks to dst, trying the
// recycled deque (whole-block steal when the fetch target is itself a
// full block's worth, otherwise piecewise) before falling back to the
// bump window or a fresh region extension. The fresh-window fan-out
// happens after releasing the lock: once the span is reserved it's
// private to this call, so there's nothing left to protect.
func (c *centralFreeList) bulkAlloc(dst *blockedDeque) {
	c.lk.lock()

	if c.recycled.size() >= uint64(c.elemsPerFetch) {
		if c.elemsPerFetch >= blockCapacity {
			c.recycled.stealFront(dst)
		} else {
			for i := 0; i < c.elemsPerFetch; i++ {
				dst.pushBack(c.recycled.dequeueBack())
			}
		}
		c.lk.unlock()
		return
	}

	if c.bumpEnd-c.bumpStart < c.chunkSize {
		c.bumpStart, c.bumpEnd = c.sys.sysAlloc(c.chunkSize, c.cl)
	}

	want := c.chunkSize * uintptr(c.elemsPerFetch)
	avail := c.bumpEnd - c.bumpStart
	n := want
	if avail < want {
		n = avail - avail%c.chunkSize
	}
	start := c.bumpStart
	c.bumpStart += n
	c.lk.unlock()

	for cur, end := start, start+n; cur < end; cur += c.chunkSize {
		dst.pushBack(cur)
	}
}

// bulkDealloc returns elements from src to the recycled deque. When
// n >= blockCapacity, n/blockCapacity full blocks are spliced off the
// front of src outside the critical section and merged in with one
// short lock hold; the n%blockCapacity remainder stays in src, and src
// must keep at least one block beyond the spliced ones (spliceFront's
// precondition). When n < blockCapacity, the n elements move one at a
// time under the lock.
func (c *centralFreeList) bulkDealloc(src *blockedDeque, n int) {
	if n >= blockCapacity {
		blocks := n / blockCapacity
		spliced := src.spliceFront(blocks)
		c.lk.lock()
		c.recycled.mergeFront(spliced)
		c.lk.unlock()
		return
	}

	c.lk.lock()
	for i := 0; i < n; i++ {
		c.recycled.pushBack(src.dequeueBack())
	}
	c.lk.unlock()
}
