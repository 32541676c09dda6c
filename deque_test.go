package tieralloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestArena(t *testing.T) *blockArena {
	t.Helper()
	reg := newRegion(unixMemoryProvider{}, 8<<20)
	return newBlockArena(reg, dequeBlockSize)
}

func drain(d *blockedDeque) []uintptr {
	out := make([]uintptr, 0, d.size())
	for !d.empty() {
		out = append(out, d.popFront())
	}
	return out
}

func TestBlockedDequePushPopOrder(t *testing.T) {
	arena := newTestArena(t)
	d := newBlockedDeque(arena)

	for i := uintptr(1); i <= 100; i++ {
		d.pushBack(i)
	}
	require.Equal(t, uint64(100), d.size())

	for i := uintptr(1); i <= 100; i++ {
		require.Equal(t, i, d.popFront())
	}
	require.True(t, d.empty())
}

func TestBlockedDequePushFrontOrder(t *testing.T) {
	arena := newTestArena(t)
	d := newBlockedDeque(arena)

	for i := uintptr(1); i <= 50; i++ {
		d.pushFront(i)
	}
	// Last pushed to front is the first popped from front.
	require.Equal(t, uintptr(50), d.popFront())
	require.Equal(t, uint64(49), d.size())
}

func TestBlockedDequeSizeLaw(t *testing.T) {
	arena := newTestArena(t)
	d := newBlockedDeque(arena)

	n := 0
	for i := 0; i < 500; i++ {
		d.pushBack(uintptr(i))
		n++
		require.Equal(t, uint64(n), d.size())
	}
	for i := 0; i < 200; i++ {
		d.popFront()
		n--
		require.Equal(t, uint64(n), d.size())
	}
	for i := 0; i < 200; i++ {
		d.pushFront(uintptr(i))
		n++
		require.Equal(t, uint64(n), d.size())
	}
	for n > 0 {
		d.popBack()
		n--
		require.Equal(t, uint64(n), d.size())
	}
	require.True(t, d.empty())
}

// TestBlockedDequeSpliceMergeRoundTrip checks that splicing the
// leading blocks off a deque and merging them back onto the remainder
// reproduces the same element order as before the split.
func TestBlockedDequeSpliceMergeRoundTrip(t *testing.T) {
	arena := newTestArena(t)
	d := newBlockedDeque(arena)

	const total = blockCapacity * 5
	for i := uintptr(0); i < total; i++ {
		d.pushBack(i)
	}

	front := d.spliceFront(3)
	require.Equal(t, uint64(blockCapacity*3), front.size())
	require.Equal(t, uint64(blockCapacity*2), d.size())

	d.mergeFront(front)
	require.Equal(t, uint64(total), d.size())

	got := drain(d)
	require.Len(t, got, total)
	for i, v := range got {
		require.Equal(t, uintptr(i), v)
	}
}

func TestBlockedDequeStealFront(t *testing.T) {
	arena := newTestArena(t)
	src := newBlockedDeque(arena)
	dst := newBlockedDeque(arena)

	for i := uintptr(0); i < blockCapacity*2; i++ {
		src.pushBack(i)
	}
	src.stealFront(dst)
	require.Equal(t, uint64(blockCapacity), dst.size())
	require.Equal(t, uint64(blockCapacity), src.size())

	for i := uintptr(0); i < blockCapacity; i++ {
		require.Equal(t, i, dst.popFront())
	}
	for i := uintptr(blockCapacity); i < blockCapacity*2; i++ {
		require.Equal(t, i, src.popFront())
	}
}

func TestBlockedDequeMergeIntoEmpty(t *testing.T) {
	arena := newTestArena(t)
	d := newBlockedDeque(arena)
	other := newBlockedDeque(arena)
	for i := uintptr(0); i < blockCapacity; i++ {
		other.pushBack(i)
	}
	d.mergeFront(other)
	require.True(t, other.empty())
	require.Equal(t, uint64(blockCapacity), d.size())
}
