package segio

import "io"

// BufferedSink adds a typed write API to a Sink. Writes land in an internal
// Buffer; full segments are handed downstream as soon as they fill, and the
// partially filled tail is kept for cheap appends until Emit or Flush.
type BufferedSink struct {
	sink   Sink
	buf    *Buffer
	closed bool
}

// NewBufferedSink wraps s.
func NewBufferedSink(s Sink) *BufferedSink {
	return &BufferedSink{sink: s, buf: NewBuffer()}
}

// Buffer returns the internal buffer. Bytes appended to it directly are
// sent downstream by the next emit.
func (s *BufferedSink) Buffer() *Buffer { return s.buf }

// EmitCompleteSegments writes every full segment downstream.
func (s *BufferedSink) EmitCompleteSegments() error {
	if s.closed {
		return ErrClosed
	}
	if n := s.buf.CompleteSegmentByteCount(); n > 0 {
		return s.sink.WriteFrom(s.buf, n)
	}
	return nil
}

// Emit writes all buffered bytes downstream without flushing the wrapped
// sink.
func (s *BufferedSink) Emit() error {
	if s.closed {
		return ErrClosed
	}
	if n := s.buf.Size(); n > 0 {
		return s.sink.WriteFrom(s.buf, n)
	}
	return nil
}

// Flush writes all buffered bytes downstream and flushes the wrapped sink.
func (s *BufferedSink) Flush() error {
	if err := s.Emit(); err != nil {
		return err
	}
	return s.sink.Flush()
}

func (s *BufferedSink) WriteFrom(src *Buffer, n int64) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.buf.WriteFrom(src, n); err != nil {
		return err
	}
	return s.EmitCompleteSegments()
}

// WriteAll drains src into s and returns the number of bytes read.
func (s *BufferedSink) WriteAll(src Source) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	var total int64
	for {
		n, err := src.ReadAtMostTo(s.buf, SegmentSize)
		total += n
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if err := s.EmitCompleteSegments(); err != nil {
			return total, err
		}
	}
}

// Write appends p. It implements io.Writer.
func (s *BufferedSink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, _ := s.buf.Write(p)
	return n, s.EmitCompleteSegments()
}

// WriteString appends str. It implements io.StringWriter.
func (s *BufferedSink) WriteString(str string) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, _ := s.buf.WriteString(str)
	return n, s.EmitCompleteSegments()
}

// WriteByte appends c. It implements io.ByteWriter.
func (s *BufferedSink) WriteByte(c byte) error {
	if s.closed {
		return ErrClosed
	}
	_ = s.buf.WriteByte(c)
	return s.EmitCompleteSegments()
}

// WriteByteString appends the bytes of bs.
func (s *BufferedSink) WriteByteString(bs *ByteString) error {
	return s.put(func(b *Buffer) { b.WriteByteString(bs) })
}

// put runs fn against the internal buffer unless s is closed, then emits
// complete segments.
func (s *BufferedSink) put(fn func(b *Buffer)) error {
	if s.closed {
		return ErrClosed
	}
	fn(s.buf)
	return s.EmitCompleteSegments()
}

func (s *BufferedSink) WriteShort(v int16) error {
	return s.put(func(b *Buffer) { b.WriteShort(v) })
}

func (s *BufferedSink) WriteShortLe(v int16) error {
	return s.put(func(b *Buffer) { b.WriteShortLe(v) })
}

func (s *BufferedSink) WriteInt(v int32) error {
	return s.put(func(b *Buffer) { b.WriteInt(v) })
}

func (s *BufferedSink) WriteIntLe(v int32) error {
	return s.put(func(b *Buffer) { b.WriteIntLe(v) })
}

func (s *BufferedSink) WriteLong(v int64) error {
	return s.put(func(b *Buffer) { b.WriteLong(v) })
}

func (s *BufferedSink) WriteLongLe(v int64) error {
	return s.put(func(b *Buffer) { b.WriteLongLe(v) })
}

func (s *BufferedSink) WriteDecimalLong(v int64) error {
	return s.put(func(b *Buffer) { b.WriteDecimalLong(v) })
}

func (s *BufferedSink) WriteHexadecimalUnsignedLong(v uint64) error {
	return s.put(func(b *Buffer) { b.WriteHexadecimalUnsignedLong(v) })
}

func (s *BufferedSink) WriteUtf8(str string) error {
	return s.put(func(b *Buffer) { b.WriteUtf8(str) })
}

// WriteRune appends the UTF-8 encoding of r and returns its length.
func (s *BufferedSink) WriteRune(r rune) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, _ := s.buf.WriteRune(r)
	return n, s.EmitCompleteSegments()
}

func (s *BufferedSink) Timeout() *Timeout { return s.sink.Timeout() }

// Close writes any buffered bytes downstream and closes the wrapped sink.
// Both steps are attempted; the first error is returned.
func (s *BufferedSink) Close() error {
	if s.closed {
		return nil
	}
	var errs firstError
	if n := s.buf.Size(); n > 0 {
		errs.record(s.sink.WriteFrom(s.buf, n))
	}
	errs.record(s.sink.Close())
	s.closed = true
	s.buf.Clear()
	return errs.err
}
