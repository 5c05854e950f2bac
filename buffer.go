// Package segio provides a segmented byte buffer and composable stream
// endpoints built on it.
//
// A Buffer is a queue of fixed-size Segments taken from a bounded Pool.
// Moving bytes between Buffers relinks or shares segments instead of
// copying them, and shared segments are copy-on-write. Source and Sink are
// the minimal read and write endpoints; BufferedSource and BufferedSink add
// typed big- and little-endian primitives, decimal and hexadecimal text and
// UTF-8 on top of them. GzipSink and GzipSource frame a stream in the gzip
// container.
//
// Thread Safety:
//
//	Buffer, BufferedSink and BufferedSource are NOT safe for concurrent use.
//	Pool is safe for concurrent use. Pipe connects a writer goroutine to a
//	reader goroutine.
//
// Blocking operations consult a Timeout, which combines a per-call duration,
// an absolute deadline and an optional context.
package segio

import (
	"bytes"
	"io"
	"net"
	"os"
)

// Buffer is a mutable byte queue made of pooled Segments. The zero value is
// an empty buffer using the default pool.
//
// segs[head:] are the linked segments in read order. No linked segment is
// empty and size is the sum of their lengths.
type Buffer struct {
	segs []*Segment
	head int
	size int64
	pool *Pool
}

// NewBuffer returns an empty Buffer backed by the default pool.
func NewBuffer() *Buffer {
	return &Buffer{pool: defaultPool}
}

// NewBufferPool returns an empty Buffer whose segments come from p.
func NewBufferPool(p *Pool) *Buffer {
	return &Buffer{pool: p}
}

func (b *Buffer) segPool() *Pool {
	if b.pool == nil {
		b.pool = defaultPool
	}
	return b.pool
}

// Size returns the number of readable bytes.
func (b *Buffer) Size() int64 { return b.size }

// Len returns Size as an int, for parity with bytes.Buffer.
func (b *Buffer) Len() int { return int(b.size) }

func (b *Buffer) first() *Segment {
	if b.head == len(b.segs) {
		return nil
	}
	return b.segs[b.head]
}

func (b *Buffer) tail() *Segment {
	if b.head == len(b.segs) {
		return nil
	}
	return b.segs[len(b.segs)-1]
}

func (b *Buffer) push(s *Segment) {
	if b.head > 0 && b.head == len(b.segs) {
		b.segs = b.segs[:0]
		b.head = 0
	}
	b.segs = append(b.segs, s)
}

// pop unlinks the head segment and returns it.
func (b *Buffer) pop() *Segment {
	s := b.segs[b.head]
	b.segs[b.head] = nil
	b.head++
	switch {
	case b.head == len(b.segs):
		b.segs = b.segs[:0]
		b.head = 0
	case b.head >= 16 && b.head*2 >= len(b.segs):
		n := copy(b.segs, b.segs[b.head:])
		clear(b.segs[n:])
		b.segs = b.segs[:n]
		b.head = 0
	}
	return s
}

// popTail unlinks the tail segment and returns it.
func (b *Buffer) popTail() *Segment {
	i := len(b.segs) - 1
	s := b.segs[i]
	b.segs[i] = nil
	b.segs = b.segs[:i]
	if b.head == len(b.segs) {
		b.segs = b.segs[:0]
		b.head = 0
	}
	return s
}

// writableSegment returns a tail segment with room for at least min
// contiguous bytes past its limit, linking a fresh one when needed. The
// caller must write into it before returning control to the user so that no
// empty segment stays linked; dropEmptyTail undoes a failed fill.
func (b *Buffer) writableSegment(min int) *Segment {
	if min < 1 || min > SegmentSize {
		panic("segio: unreasonable writable segment size")
	}
	if t := b.tail(); t != nil && t.owner && t.limit+min <= SegmentSize {
		return t
	}
	s := b.segPool().Take()
	b.push(s)
	return s
}

func (b *Buffer) dropEmptyTail() {
	if t := b.tail(); t != nil && t.Len() == 0 {
		b.segPool().Recycle(b.popTail())
	}
}

// consume advances the read position by n bytes, recycling drained segments.
func (b *Buffer) consume(n int64) {
	b.size -= n
	for n > 0 {
		s := b.segs[b.head]
		k := int64(s.Len())
		if n < k {
			s.pos += int(n)
			return
		}
		n -= k
		b.segPool().Recycle(b.pop())
	}
}

// each calls fn for each contiguous run of the n bytes starting at offset,
// stopping early if fn returns false.
func (b *Buffer) each(offset, n int64, fn func(p []byte) bool) {
	if offset < 0 || n < 0 || offset+n > b.size {
		panic("segio: range out of bounds")
	}
	for _, s := range b.segs[b.head:] {
		if n == 0 {
			return
		}
		p := s.bytes()
		if offset >= int64(len(p)) {
			offset -= int64(len(p))
			continue
		}
		p = p[offset:]
		offset = 0
		if int64(len(p)) > n {
			p = p[:n]
		}
		n -= int64(len(p))
		if !fn(p) {
			return
		}
	}
}

// CompleteSegmentByteCount returns the number of bytes in full segments,
// leaving out a partially filled owning tail that can still accept appends.
func (b *Buffer) CompleteSegmentByteCount() int64 {
	n := b.size
	if n == 0 {
		return 0
	}
	if t := b.tail(); t.limit < SegmentSize && t.owner {
		n -= int64(t.Len())
	}
	return n
}

// Write appends a copy of p. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		s := b.writableSegment(1)
		k := copy(s.b.data[s.limit:], p)
		s.limit += k
		p = p[k:]
	}
	b.size += int64(n)
	return n, nil
}

// WriteString appends a copy of the bytes of str.
func (b *Buffer) WriteString(str string) (int, error) {
	n := len(str)
	for len(str) > 0 {
		s := b.writableSegment(1)
		k := copy(s.b.data[s.limit:], str)
		s.limit += k
		str = str[k:]
	}
	b.size += int64(n)
	return n, nil
}

// WriteByte appends c. It implements io.ByteWriter and never fails.
func (b *Buffer) WriteByte(c byte) error {
	s := b.writableSegment(1)
	s.b.data[s.limit] = c
	s.limit++
	b.size++
	return nil
}

// WriteFrom moves n bytes from the head of src to the tail of b. Whole
// segments are relinked, large partial segments are split and shared, and
// small ones are copied into b's tail to avoid fragmentation.
func (b *Buffer) WriteFrom(src *Buffer, n int64) error {
	if src == b {
		return ErrSameBuffer
	}
	if n < 0 || n > src.size {
		return ErrByteCount
	}
	p := b.segPool()
	for n > 0 {
		head := src.segs[src.head]
		if n < int64(head.Len()) {
			// Only part of the head moves. Copy it into our tail if it fits,
			// otherwise split the head and move the prefix.
			if t := b.tail(); t != nil && int64(t.room()) >= n {
				head.writeTo(t, int(n))
				src.size -= n
				b.size += n
				return nil
			}
			moved := head.split(int(n), p)
			src.size -= n
			b.size += n
			b.link(moved)
			return nil
		}
		moved := src.pop()
		k := int64(moved.Len())
		src.size -= k
		b.size += k
		b.link(moved)
		n -= k
	}
	return nil
}

// link appends s, merging it into the tail when s is less than half full
// and fits in the tail's free space.
func (b *Buffer) link(s *Segment) {
	if t := b.tail(); t != nil && s.Len() < SegmentSize/2 && s.Len() <= t.room() {
		s.writeTo(t, s.Len())
		b.segPool().Recycle(s)
		return
	}
	b.push(s)
}

// ReadAtMostTo moves up to n bytes into dst. It returns io.EOF when b is
// empty. Buffer is therefore a Source.
func (b *Buffer) ReadAtMostTo(dst *Buffer, n int64) (int64, error) {
	if n < 0 {
		return 0, ErrByteCount
	}
	if b.size == 0 {
		return 0, io.EOF
	}
	n = min(n, b.size)
	if err := dst.WriteFrom(b, n); err != nil {
		return 0, err
	}
	return n, nil
}

// Read copies up to len(p) bytes into p. It returns io.EOF when b is empty
// and len(p) > 0.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.size == 0 {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && b.size > 0 {
		s := b.segs[b.head]
		k := copy(p[n:], s.bytes())
		n += k
		s.pos += k
		b.size -= int64(k)
		if s.Len() == 0 {
			b.segPool().Recycle(b.pop())
		}
	}
	return n, nil
}

// ReadByte removes and returns the first byte.
func (b *Buffer) ReadByte() (byte, error) {
	if b.size == 0 {
		return 0, io.EOF
	}
	s := b.segs[b.head]
	c := s.b.data[s.pos]
	s.pos++
	b.size--
	if s.Len() == 0 {
		b.segPool().Recycle(b.pop())
	}
	return c, nil
}

// readFull fills p or consumes nothing. It returns io.EOF when b is empty
// and io.ErrUnexpectedEOF when fewer than len(p) bytes are readable.
func (b *Buffer) readFull(p []byte) error {
	if int64(len(p)) > b.size {
		if b.size == 0 {
			return io.EOF
		}
		return io.ErrUnexpectedEOF
	}
	_, err := b.Read(p)
	return err
}

// Next removes and returns the next n bytes as a new slice.
func (b *Buffer) Next(n int64) ([]byte, error) {
	if n < 0 {
		return nil, ErrByteCount
	}
	p := make([]byte, n)
	if n == 0 {
		return p, nil
	}
	if err := b.readFull(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Skip discards n bytes. It consumes nothing and returns io.ErrUnexpectedEOF
// when fewer than n bytes are readable.
func (b *Buffer) Skip(n int64) error {
	if n < 0 {
		return ErrByteCount
	}
	if n > b.size {
		return io.ErrUnexpectedEOF
	}
	b.consume(n)
	return nil
}

// Clear discards all bytes.
func (b *Buffer) Clear() {
	b.consume(b.size)
}

// Get returns the byte at offset i without consuming it. It panics if i is
// out of range.
func (b *Buffer) Get(i int64) byte {
	if i < 0 || i >= b.size {
		panic("segio: index out of range")
	}
	var c byte
	b.each(i, 1, func(p []byte) bool {
		c = p[0]
		return false
	})
	return c
}

// IndexByte returns the offset of the first c at or after from, or -1.
func (b *Buffer) IndexByte(c byte, from int64) int64 {
	if from < 0 {
		from = 0
	}
	if from >= b.size {
		return -1
	}
	idx := int64(-1)
	off := from
	b.each(from, b.size-from, func(p []byte) bool {
		if i := bytes.IndexByte(p, c); i >= 0 {
			idx = off + int64(i)
			return false
		}
		off += int64(len(p))
		return true
	})
	return idx
}

// scan feeds readable bytes to fn in order until fn returns false and
// returns how many bytes fn accepted.
func (b *Buffer) scan(fn func(c byte) bool) int64 {
	var n int64
	b.each(0, b.size, func(p []byte) bool {
		for _, c := range p {
			if !fn(c) {
				return false
			}
			n++
		}
		return true
	})
	return n
}

// CopyTo appends n bytes starting at offset to out without consuming them.
// Segments are shared, not copied.
func (b *Buffer) CopyTo(out *Buffer, offset, n int64) error {
	if out == b {
		return ErrSameBuffer
	}
	if offset < 0 || n < 0 || offset+n > b.size {
		return ErrByteCount
	}
	if n == 0 {
		return nil
	}
	for _, s := range b.segs[b.head:] {
		k := int64(s.Len())
		if offset >= k {
			offset -= k
			continue
		}
		c := s.sharedCopy()
		c.pos += int(offset)
		c.limit = c.pos + int(min(n, k-offset))
		n -= int64(c.Len())
		offset = 0
		out.size += int64(c.Len())
		out.push(c)
		if n == 0 {
			break
		}
	}
	return nil
}

// Copy returns a Buffer with the same contents. Both buffers share the
// underlying segments until one of them writes.
func (b *Buffer) Copy() *Buffer {
	out := &Buffer{pool: b.segPool()}
	if b.size > 0 {
		_ = b.CopyTo(out, 0, b.size)
	}
	return out
}

// Snapshot returns the readable bytes as a ByteString without consuming them.
func (b *Buffer) Snapshot() *ByteString {
	p := make([]byte, 0, b.size)
	b.each(0, b.size, func(s []byte) bool {
		p = append(p, s...)
		return true
	})
	return &ByteString{data: p}
}

// Bytes returns a copy of the readable bytes without consuming them.
func (b *Buffer) Bytes() []byte {
	return b.Snapshot().data
}

// ReadByteString removes n bytes and returns them as a ByteString.
func (b *Buffer) ReadByteString(n int64) (*ByteString, error) {
	p, err := b.Next(n)
	if err != nil {
		return nil, err
	}
	return &ByteString{data: p}, nil
}

// WriteByteString appends the bytes of bs.
func (b *Buffer) WriteByteString(bs *ByteString) {
	_, _ = b.Write(bs.data)
}

// ReadFrom appends everything r produces until io.EOF, reading straight
// into pooled segments. io.EOF is not reported as an error.
//
// If r panics, the segment being filled is unlinked before the panic
// propagates.
func (b *Buffer) ReadFrom(r io.Reader) (n int64, err error) {
	defer func() {
		if p := recover(); p != nil {
			b.dropEmptyTail()
			panic(p)
		}
	}()
	for {
		s := b.writableSegment(1)
		nr, er := r.Read(s.b.data[s.limit:])
		if nr > 0 {
			s.limit += nr
			b.size += int64(nr)
			n += int64(nr)
		} else {
			b.dropEmptyTail()
		}
		if er != nil {
			if er != io.EOF {
				err = er
			}
			return n, err
		}
	}
}

// ReadN appends exactly n bytes from r. It returns io.ErrUnexpectedEOF if r
// ends early, keeping the bytes that were read.
func (b *Buffer) ReadN(r io.Reader, n int64) (int64, error) {
	var total int64
	for total < n {
		s := b.writableSegment(1)
		room := min(int64(SegmentSize-s.limit), n-total)
		nr, er := io.ReadFull(r, s.b.data[s.limit:s.limit+int(room)])
		s.limit += nr
		b.size += int64(nr)
		total += int64(nr)
		if nr == 0 {
			b.dropEmptyTail()
		}
		if er != nil {
			if er == io.EOF {
				er = io.ErrUnexpectedEOF
			}
			return total, er
		}
	}
	return total, nil
}

// WriteTo drains b into w. When w is a net.Conn or *os.File all segments
// are handed to a single writev(2).
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	return b.writeToN(w, b.size)
}

// writeToN writes the first n bytes to w, consuming exactly what w accepted.
func (b *Buffer) writeToN(w io.Writer, n int64) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	if useWritev(w) {
		bufs := b.peekNetBuffers(n)
		written, err := bufs.WriteTo(w)
		if written > 0 {
			b.consume(written)
		}
		return written, err
	}

	var total int64
	for total < n {
		s := b.segs[b.head]
		p := s.bytes()
		if rem := n - total; int64(len(p)) > rem {
			p = p[:rem]
		}
		written, err := w.Write(p)
		if written > 0 {
			b.consume(int64(written))
			total += int64(written)
		}
		if err != nil {
			return total, err
		}
		if written < len(p) {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// peekNetBuffers returns views of the first n bytes without consuming them,
// so that state is only advanced by what the kernel accepted.
func (b *Buffer) peekNetBuffers(n int64) net.Buffers {
	bufs := make(net.Buffers, 0, len(b.segs)-b.head)
	b.each(0, n, func(p []byte) bool {
		bufs = append(bufs, p)
		return true
	})
	return bufs
}

func useWritev(w io.Writer) bool {
	switch w.(type) {
	case net.Conn, *os.File:
		return true
	}
	return false
}

// Flush is a no-op; a Buffer is its own destination.
func (b *Buffer) Flush() error { return nil }

// Timeout returns NoTimeout; Buffer operations never block.
func (b *Buffer) Timeout() *Timeout { return NoTimeout }

// Close is a no-op. The buffer stays usable.
func (b *Buffer) Close() error { return nil }

// String describes the contents for debugging without consuming them.
func (b *Buffer) String() string {
	if b.size == 0 {
		return "[size=0]"
	}
	return b.Snapshot().String()
}
