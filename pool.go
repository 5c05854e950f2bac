package segio

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultPoolMaxBytes bounds the idle memory held by the default pool.
const DefaultPoolMaxBytes = 64 * 1024

var defaultPool = NewPool(DefaultPoolMaxBytes)

// DefaultPool returns the process-wide pool used by Buffers created with
// NewBuffer or the zero value.
func DefaultPool() *Pool { return defaultPool }

// Pool is a bounded LIFO free list of Segments. It is safe for concurrent
// use by unrelated Buffers.
type Pool struct {
	mu        sync.Mutex
	free      []*Segment
	byteCount int64
	maxBytes  int64

	takes     atomic.Uint64
	hits      atomic.Uint64
	recycled  atomic.Uint64
	dropped   atomic.Uint64
	discarded atomic.Uint64
}

// PoolStats is a snapshot of a Pool's counters.
type PoolStats struct {
	Takes     uint64 // segments handed out
	Hits      uint64 // takes served from the free list
	Recycled  uint64 // segments returned to the free list
	Dropped   uint64 // returns skipped because the block was still shared
	Discarded uint64 // returns skipped because the pool was full
	ByteCount int64  // idle bytes currently held
}

// NewPool returns a pool holding at most maxBytes of idle segments.
// A maxBytes below SegmentSize disables pooling.
func NewPool(maxBytes int64) *Pool {
	return &Pool{maxBytes: maxBytes}
}

// Take returns the most recently recycled segment, or a new one.
func (p *Pool) Take() *Segment {
	p.takes.Add(1)
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.byteCount -= SegmentSize
		p.mu.Unlock()
		p.hits.Add(1)
		return s
	}
	p.mu.Unlock()
	return newSegment()
}

// Recycle releases s. The caller must not use s afterwards.
func (p *Pool) Recycle(s *Segment) {
	if s == nil {
		return
	}
	if s.b.refs.Add(-1) > 0 {
		// Another segment still views the block.
		p.dropped.Add(1)
		s.b = nil
		return
	}
	s.b.refs.Store(1)
	s.pos, s.limit, s.owner = 0, 0, true

	p.mu.Lock()
	if p.byteCount+SegmentSize > p.maxBytes {
		held := p.byteCount
		p.mu.Unlock()
		p.discarded.Add(1)
		lg().Debug("segment pool full, discarding segment",
			zap.Int64("held", held), zap.Int64("max", p.maxBytes))
		return
	}
	p.free = append(p.free, s)
	p.byteCount += SegmentSize
	p.mu.Unlock()
	p.recycled.Add(1)
}

// ByteCount returns the idle bytes currently held by p.
func (p *Pool) ByteCount() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byteCount
}

// Stats returns a snapshot of p's counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Takes:     p.takes.Load(),
		Hits:      p.hits.Load(),
		Recycled:  p.recycled.Load(),
		Dropped:   p.dropped.Load(),
		Discarded: p.discarded.Load(),
		ByteCount: p.ByteCount(),
	}
}
