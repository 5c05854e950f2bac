package segio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Pool Tests
// =============================================================================

func TestPool_LIFO(t *testing.T) {
	p := NewPool(4 * SegmentSize)

	a, b := p.Take(), p.Take()
	p.Recycle(a)
	p.Recycle(b)
	assert.Equal(t, int64(2*SegmentSize), p.ByteCount())

	assert.Same(t, b, p.Take(), "most recently recycled segment comes back first")
	assert.Same(t, a, p.Take())
	assert.Equal(t, int64(0), p.ByteCount())

	st := p.Stats()
	assert.Equal(t, uint64(4), st.Takes)
	assert.Equal(t, uint64(2), st.Hits)
	assert.Equal(t, uint64(2), st.Recycled)
}

func TestPool_RecycleResetsSegment(t *testing.T) {
	p := NewPool(SegmentSize)
	s := p.Take()
	copy(s.b.data[:], "data")
	s.pos, s.limit = 1, 4

	p.Recycle(s)
	got := p.Take()
	require.Same(t, s, got)
	assert.Equal(t, 0, got.pos)
	assert.Equal(t, 0, got.limit)
	assert.True(t, got.owner)
	assert.False(t, got.Shared())
}

func TestPool_Ceiling(t *testing.T) {
	p := NewPool(2 * SegmentSize)
	segs := []*Segment{p.Take(), p.Take(), p.Take()}
	for _, s := range segs {
		p.Recycle(s)
	}

	assert.Equal(t, int64(2*SegmentSize), p.ByteCount())
	st := p.Stats()
	assert.Equal(t, uint64(2), st.Recycled)
	assert.Equal(t, uint64(1), st.Discarded)
}

func TestPool_DisabledBelowSegmentSize(t *testing.T) {
	p := NewPool(SegmentSize - 1)
	p.Recycle(p.Take())
	assert.Equal(t, int64(0), p.ByteCount())
	assert.Equal(t, uint64(1), p.Stats().Discarded)
}

func TestPool_SharedSegmentsAreNotPooled(t *testing.T) {
	p := NewPool(4 * SegmentSize)
	owner := p.Take()
	owner.limit = 2048
	view := owner.sharedCopy()
	require.True(t, owner.Shared())

	p.Recycle(owner)
	assert.Equal(t, int64(0), p.ByteCount(), "block still viewed, must not be reused")
	assert.Equal(t, uint64(1), p.Stats().Dropped)
	assert.False(t, view.Shared())

	p.Recycle(view)
	assert.Equal(t, int64(SegmentSize), p.ByteCount(), "last reference returns the block")

	s := p.Take()
	assert.True(t, s.owner)
	assert.Equal(t, 0, s.Len())
}

func TestPool_RecycleNil(t *testing.T) {
	p := NewPool(SegmentSize)
	p.Recycle(nil)
	assert.Equal(t, PoolStats{}, p.Stats())
}

func TestPool_Concurrent(t *testing.T) {
	p := NewPool(8 * SegmentSize)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s := p.Take()
				s.limit = 1
				p.Recycle(s)
			}
		}()
	}
	wg.Wait()

	st := p.Stats()
	assert.Equal(t, uint64(8000), st.Takes)
	assert.Equal(t, uint64(8000), st.Recycled+st.Discarded)
	assert.LessOrEqual(t, st.ByteCount, int64(8*SegmentSize))
}

// =============================================================================
// Segment Tests
// =============================================================================

func TestSegment_SplitSharesLargePrefix(t *testing.T) {
	p := NewPool(0)
	s := p.Take()
	s.limit = 4096

	prefix := s.split(shareMinimum, p)
	assert.Same(t, s.b, prefix.b)
	assert.False(t, prefix.owner)
	assert.True(t, s.Shared())
	assert.Equal(t, shareMinimum, prefix.Len())
	assert.Equal(t, 4096-shareMinimum, s.Len())
}

func TestSegment_SplitCopiesSmallPrefix(t *testing.T) {
	p := NewPool(0)
	s := p.Take()
	copy(s.b.data[:], "abcdef")
	s.limit = 6

	prefix := s.split(2, p)
	assert.NotSame(t, s.b, prefix.b)
	assert.True(t, prefix.owner)
	assert.False(t, s.Shared())
	assert.Equal(t, "ab", string(prefix.bytes()))
	assert.Equal(t, "cdef", string(s.bytes()))
}

func TestSegment_SplitOutOfRange(t *testing.T) {
	s := newSegment()
	s.limit = 10
	assert.Panics(t, func() { s.split(0, nil) })
	assert.Panics(t, func() { s.split(11, nil) })
}

func TestSegment_Room(t *testing.T) {
	s := newSegment()
	s.pos, s.limit = 100, 200
	assert.Equal(t, SegmentSize-100, s.room(), "unshared owner may compact")

	view := s.sharedCopy()
	assert.Equal(t, SegmentSize-200, s.room(), "shared owner may only append")
	assert.Equal(t, 0, view.room(), "non-owner never accepts writes")
}

func TestSegment_WriteToCompacts(t *testing.T) {
	src := newSegment()
	copy(src.b.data[:], "xyz")
	src.limit = 3

	dst := newSegment()
	dst.pos, dst.limit = SegmentSize-2, SegmentSize
	dst.b.data[SegmentSize-2], dst.b.data[SegmentSize-1] = 'a', 'b'

	src.writeTo(dst, 3)
	assert.Equal(t, 0, dst.pos)
	assert.Equal(t, "abxyz", string(dst.bytes()))
	assert.Equal(t, 0, src.Len())
}
