package segio

import "sync/atomic"

const (
	// SegmentSize is the capacity in bytes of every Segment.
	SegmentSize = 8192

	// shareMinimum is the smallest split that shares the backing block
	// instead of copying bytes into a fresh segment.
	shareMinimum = 1024
)

// block is the fixed-size backing array of one or more Segments. refs counts
// the Segments that currently view it.
type block struct {
	data [SegmentSize]byte
	refs atomic.Int32
}

// Segment is a window [pos, limit) over a block. Segments are owned by
// exactly one Buffer or Pool at a time.
//
// The owner of a segment may append past limit even while the block is
// shared: sharers never look beyond their own limit, so bytes they can
// observe are never rewritten. Moving bytes towards the start of the block
// is only allowed when the block is not shared.
type Segment struct {
	b     *block
	pos   int
	limit int
	owner bool
}

func newSegment() *Segment {
	s := &Segment{b: &block{}, owner: true}
	s.b.refs.Store(1)
	return s
}

// Len returns the number of readable bytes in s.
func (s *Segment) Len() int { return s.limit - s.pos }

// Shared reports whether another Segment views the same block.
func (s *Segment) Shared() bool { return s.b.refs.Load() > 1 }

func (s *Segment) bytes() []byte { return s.b.data[s.pos:s.limit] }

// sharedCopy returns a non-owning view of the same bytes.
func (s *Segment) sharedCopy() *Segment {
	s.b.refs.Add(1)
	return &Segment{b: s.b, pos: s.pos, limit: s.limit}
}

// split removes the first n readable bytes from s and returns them as a new
// segment. Large prefixes share the block; small ones are copied so that a
// tiny split does not pin a whole block.
func (s *Segment) split(n int, p *Pool) *Segment {
	if n <= 0 || n > s.Len() {
		panic("segio: split out of range")
	}
	var prefix *Segment
	if n >= shareMinimum {
		prefix = s.sharedCopy()
	} else {
		prefix = p.Take()
		copy(prefix.b.data[:], s.b.data[s.pos:s.pos+n])
	}
	prefix.limit = prefix.pos + n
	s.pos += n
	return prefix
}

// room reports how many bytes could be appended to s, compacting it first
// if that is allowed.
func (s *Segment) room() int {
	if !s.owner {
		return 0
	}
	if s.Shared() {
		return SegmentSize - s.limit
	}
	return SegmentSize - s.limit + s.pos
}

// writeTo moves n bytes from s into the tail segment dst. The caller must
// have checked dst.room() >= n.
func (s *Segment) writeTo(dst *Segment, n int) {
	if !dst.owner {
		panic("segio: write to non-owning segment")
	}
	if dst.limit+n > SegmentSize {
		if dst.Shared() {
			panic("segio: compaction of shared segment")
		}
		m := copy(dst.b.data[:], dst.bytes())
		dst.pos, dst.limit = 0, m
	}
	copy(dst.b.data[dst.limit:], s.b.data[s.pos:s.pos+n])
	dst.limit += n
	s.pos += n
}
