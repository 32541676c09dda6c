package tieralloc

import "unsafe"

// blockCapacity is the number of slots per deque block.
const blockCapacity = 32

// dequeBlock is the fixed-capacity node of a blockedDeque's doubly
// linked block list. prev/next are raw block addresses (0 means nil)
// rather than typed pointers: blocks live in untracked memory obtained
// from a blockArena, outside the Go heap, so there is nothing here for
// the garbage collector to trace.
type dequeBlock struct {
	prev, next uintptr
	slots      [blockCapacity]uintptr
}

var dequeBlockSize = unsafe.Sizeof(dequeBlock{})

func blockAt(addr uintptr) *dequeBlock {
	return (*dequeBlock)(unsafe.Pointer(addr))
}

// blockedDeque is a deque of opaque uintptr slots backed by
// fixed-capacity blocks, with O(1) push/pop at both ends and O(1)
// whole-block splice/merge/steal between instances. phead and ptail
// are monotonic counters (modulo 2^64, which blockCapacity divides
// evenly, so the usual unsigned wraparound arithmetic stays
// consistent); logical size is ptail-phead.
type blockedDeque struct {
	arena        *blockArena
	head, tail   uintptr // block addresses, 0 = empty
	phead, ptail uint64
}

func newBlockedDeque(arena *blockArena) *blockedDeque {
	return &blockedDeque{arena: arena}
}

func (d *blockedDeque) empty() bool  { return d.head == 0 }
func (d *blockedDeque) size() uint64 { return d.ptail - d.phead }

// pushFront adds v as the new logical front element.
func (d *blockedDeque) pushFront(v uintptr) {
	if d.phead%blockCapacity == 0 {
		nb := d.arena.alloc()
		blk := blockAt(nb)
		blk.next = d.head
		if d.head != 0 {
			blockAt(d.head).prev = nb
		} else {
			d.tail = nb
		}
		d.head = nb
	}
	d.phead--
	blockAt(d.head).slots[d.phead%blockCapacity] = v
}

// pushBack adds v as the new logical back element.
func (d *blockedDeque) pushBack(v uintptr) {
	if d.ptail%blockCapacity == 0 {
		nb := d.arena.alloc()
		blk := blockAt(nb)
		blk.prev = d.tail
		if d.tail != 0 {
			blockAt(d.tail).next = nb
		} else {
			d.head = nb
		}
		d.tail = nb
	}
	blockAt(d.tail).slots[d.ptail%blockCapacity] = v
	d.ptail++
}

// popFront removes and returns the logical front element.
func (d *blockedDeque) popFront() uintptr {
	if d.empty() {
		fatalf("tieralloc: popFront on empty deque")
	}
	v := blockAt(d.head).slots[d.phead%blockCapacity]
	d.phead++
	if d.phead == d.ptail {
		d.arena.free(d.head)
		d.head, d.tail = 0, 0
		d.phead, d.ptail = 0, 0
	} else if d.phead%blockCapacity == 0 {
		old := d.head
		d.head = blockAt(old).next
		blockAt(d.head).prev = 0
		d.arena.free(old)
	}
	return v
}

// popBack removes and returns the logical back element.
func (d *blockedDeque) popBack() uintptr {
	if d.empty() {
		fatalf("tieralloc: popBack on empty deque")
	}
	d.ptail--
	v := blockAt(d.tail).slots[d.ptail%blockCapacity]
	if d.phead == d.ptail {
		d.arena.free(d.tail)
		d.head, d.tail = 0, 0
		d.phead, d.ptail = 0, 0
	} else if d.ptail%blockCapacity == 0 {
		old := d.tail
		d.tail = blockAt(old).prev
		blockAt(d.tail).next = 0
		d.arena.free(old)
	}
	return v
}

// dequeueBack is popBack under the name callers use when fanning
// single elements out of one deque and into another.
func (d *blockedDeque) dequeueBack() uintptr { return d.popBack() }

// spliceFront removes the leading nBlocks blocks as a new deque.
// Precondition: phead is block-aligned and at least one block remains
// in the source beyond those spliced.
func (d *blockedDeque) spliceFront(nBlocks int) *blockedDeque {
	out := newBlockedDeque(d.arena)
	if nBlocks == 0 {
		return out
	}
	if d.phead%blockCapacity != 0 {
		fatalf("tieralloc: spliceFront precondition violated: phead not block-aligned")
	}

	out.head = d.head
	cur := d.head
	var last uintptr
	for i := 0; i < nBlocks; i++ {
		if cur == 0 {
			fatalf("tieralloc: spliceFront precondition violated: fewer than %d blocks present", nBlocks)
		}
		last = cur
		cur = blockAt(cur).next
	}
	if cur == 0 {
		fatalf("tieralloc: spliceFront precondition violated: no block remains beyond the spliced ones")
	}

	blockAt(last).next = 0
	blockAt(cur).prev = 0
	out.tail = last
	out.ptail = uint64(nBlocks) * blockCapacity

	d.head = cur
	d.phead += uint64(nBlocks) * blockCapacity
	return out
}

// mergeFront takes ownership of other's blocks, prepending them to the
// front of d. Precondition: d.phead and other.ptail are block-aligned.
// other is left empty.
func (d *blockedDeque) mergeFront(other *blockedDeque) {
	if other.empty() {
		return
	}
	if d.phead%blockCapacity != 0 || other.ptail%blockCapacity != 0 {
		fatalf("tieralloc: mergeFront precondition violated: misaligned counters")
	}

	if d.empty() {
		d.head, d.tail = other.head, other.tail
		d.phead, d.ptail = other.phead, other.ptail
	} else {
		blockAt(other.tail).next = d.head
		blockAt(d.head).prev = other.tail
		d.head = other.head
		d.phead -= other.size()
	}
	other.head, other.tail, other.phead, other.ptail = 0, 0, 0, 0
}

// stealFront moves the single head block to dst. Precondition: dst is
// empty and d's head block is full (phead block-aligned, head non-nil).
func (d *blockedDeque) stealFront(dst *blockedDeque) {
	if !dst.empty() {
		fatalf("tieralloc: stealFront precondition violated: destination not empty")
	}
	if d.head == 0 || d.phead%blockCapacity != 0 {
		fatalf("tieralloc: stealFront precondition violated: no full head block")
	}

	blk := d.head
	next := blockAt(blk).next
	blockAt(blk).prev = 0
	blockAt(blk).next = 0
	dst.head, dst.tail = blk, blk
	dst.phead, dst.ptail = 0, blockCapacity

	d.phead += blockCapacity
	if next == 0 {
		d.head, d.tail = 0, 0
		d.phead, d.ptail = 0, 0
	} else {
		blockAt(next).prev = 0
		d.head = next
	}
}
