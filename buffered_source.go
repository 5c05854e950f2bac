package segio

import "io"

// BufferedSource adds a typed read API to a Source. It pulls a segment at a
// time from the wrapped source into an internal Buffer and serves reads
// from there.
//
// Typed reads return io.EOF when the stream ends before the first byte and
// io.ErrUnexpectedEOF when it ends part way through a value.
type BufferedSource struct {
	src    Source
	buf    *Buffer
	closed bool
}

// NewBufferedSource wraps src.
func NewBufferedSource(src Source) *BufferedSource {
	return &BufferedSource{src: src, buf: NewBuffer()}
}

// Buffer returns the internal buffer holding bytes read ahead.
func (s *BufferedSource) Buffer() *Buffer { return s.buf }

// fill reads one more chunk into the internal buffer. It reports false at
// end of stream.
func (s *BufferedSource) fill() (bool, error) {
	for {
		n, err := s.src.ReadAtMostTo(s.buf, SegmentSize)
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
}

// Request reads ahead until at least n bytes are buffered. It reports false
// if the stream ends first.
func (s *BufferedSource) Request(n int64) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	for s.buf.Size() < n {
		ok, err := s.fill()
		if !ok || err != nil {
			return false, err
		}
	}
	return true, nil
}

// Require is like Request but reports a short stream as an error.
func (s *BufferedSource) Require(n int64) error {
	ok, err := s.Request(n)
	if err != nil {
		return err
	}
	if !ok {
		if s.buf.Size() == 0 {
			return io.EOF
		}
		return io.ErrUnexpectedEOF
	}
	return nil
}

// Exhausted reports whether no bytes are buffered and the wrapped source
// has ended.
func (s *BufferedSource) Exhausted() (bool, error) {
	ok, err := s.Request(1)
	return !ok && err == nil, err
}

func (s *BufferedSource) ReadAtMostTo(dst *Buffer, n int64) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrByteCount
	}
	if s.buf.Size() == 0 {
		ok, err := s.fill()
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, io.EOF
		}
	}
	n = min(n, s.buf.Size())
	return n, dst.WriteFrom(s.buf, n)
}

// Read implements io.Reader.
func (s *BufferedSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.Require(1); err != nil {
		return 0, err
	}
	return s.buf.Read(p)
}

// ReadByte implements io.ByteReader.
func (s *BufferedSource) ReadByte() (byte, error) {
	if err := s.Require(1); err != nil {
		return 0, err
	}
	return s.buf.ReadByte()
}

// ReadRune implements io.RuneReader.
func (s *BufferedSource) ReadRune() (rune, int, error) {
	if err := s.Require(1); err != nil {
		return 0, 0, err
	}
	need := int64(utf8SequenceLength(s.buf.Get(0)))
	if _, err := s.Request(need); err != nil {
		return 0, 0, err
	}
	return s.buf.ReadRune()
}

func (s *BufferedSource) ReadShort() (int16, error) {
	if err := s.Require(2); err != nil {
		return 0, err
	}
	return s.buf.ReadShort()
}

func (s *BufferedSource) ReadShortLe() (int16, error) {
	if err := s.Require(2); err != nil {
		return 0, err
	}
	return s.buf.ReadShortLe()
}

func (s *BufferedSource) ReadInt() (int32, error) {
	if err := s.Require(4); err != nil {
		return 0, err
	}
	return s.buf.ReadInt()
}

func (s *BufferedSource) ReadIntLe() (int32, error) {
	if err := s.Require(4); err != nil {
		return 0, err
	}
	return s.buf.ReadIntLe()
}

func (s *BufferedSource) ReadLong() (int64, error) {
	if err := s.Require(8); err != nil {
		return 0, err
	}
	return s.buf.ReadLong()
}

func (s *BufferedSource) ReadLongLe() (int64, error) {
	if err := s.Require(8); err != nil {
		return 0, err
	}
	return s.buf.ReadLongLe()
}

// requestWhile buffers bytes until accept rejects one or the stream ends.
func (s *BufferedSource) requestWhile(accept func(i int64, c byte) bool) error {
	for i := int64(0); ; i++ {
		ok, err := s.Request(i + 1)
		if err != nil {
			return err
		}
		if !ok || !accept(i, s.buf.Get(i)) {
			return nil
		}
	}
}

// ReadDecimalLong reads an optionally negative base-10 number.
func (s *BufferedSource) ReadDecimalLong() (int64, error) {
	if err := s.Require(1); err != nil {
		return 0, err
	}
	err := s.requestWhile(func(i int64, c byte) bool {
		return (c >= '0' && c <= '9') || (i == 0 && c == '-')
	})
	if err != nil {
		return 0, err
	}
	return s.buf.ReadDecimalLong()
}

// ReadHexadecimalUnsignedLong reads a base-16 number.
func (s *BufferedSource) ReadHexadecimalUnsignedLong() (uint64, error) {
	if err := s.Require(1); err != nil {
		return 0, err
	}
	err := s.requestWhile(func(_ int64, c byte) bool {
		_, ok := hexValue(c)
		return ok
	})
	if err != nil {
		return 0, err
	}
	return s.buf.ReadHexadecimalUnsignedLong()
}

// ReadUtf8 reads n bytes and decodes them as UTF-8.
func (s *BufferedSource) ReadUtf8(n int64) (string, error) {
	if err := s.Require(n); err != nil {
		return "", err
	}
	return s.buf.ReadUtf8(n)
}

// ReadUtf8All reads until the end of the stream and decodes the bytes as
// UTF-8.
func (s *BufferedSource) ReadUtf8All() (string, error) {
	if _, err := s.Request(1 << 62); err != nil {
		return "", err
	}
	return s.buf.ReadUtf8All(), nil
}

// ReadUtf8Line reads a line terminated by "\n" or "\r\n", or the rest of
// the stream if it has no terminator. It returns io.EOF at end of stream.
func (s *BufferedSource) ReadUtf8Line() (string, error) {
	if _, err := s.IndexByte('\n'); err != nil {
		return "", err
	}
	return s.buf.ReadUtf8Line()
}

// IndexByte returns the offset of the first c, reading ahead as needed, or
// -1 if the stream ends without one.
func (s *BufferedSource) IndexByte(c byte) (int64, error) {
	if s.closed {
		return -1, ErrClosed
	}
	var from int64
	for {
		if i := s.buf.IndexByte(c, from); i >= 0 {
			return i, nil
		}
		from = s.buf.Size()
		ok, err := s.fill()
		if err != nil {
			return -1, err
		}
		if !ok {
			return -1, nil
		}
	}
}

// ReadByteString reads n bytes.
func (s *BufferedSource) ReadByteString(n int64) (*ByteString, error) {
	if err := s.Require(n); err != nil {
		return nil, err
	}
	return s.buf.ReadByteString(n)
}

// Next reads n bytes into a new slice.
func (s *BufferedSource) Next(n int64) ([]byte, error) {
	if err := s.Require(n); err != nil {
		return nil, err
	}
	return s.buf.Next(n)
}

// Skip discards n bytes. It returns io.ErrUnexpectedEOF if the stream ends
// first, after discarding what was there.
func (s *BufferedSource) Skip(n int64) error {
	for n > 0 {
		if err := s.Require(1); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		k := min(n, s.buf.Size())
		s.buf.consume(k)
		n -= k
	}
	return nil
}

// ReadAll writes the rest of the stream to dst and returns the byte count.
func (s *BufferedSource) ReadAll(dst Sink) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	var total int64
	for {
		if n := s.buf.Size(); n > 0 {
			if err := dst.WriteFrom(s.buf, n); err != nil {
				return total, err
			}
			total += n
		}
		ok, err := s.fill()
		if err != nil {
			return total, err
		}
		if !ok {
			return total, nil
		}
	}
}

func (s *BufferedSource) Timeout() *Timeout { return s.src.Timeout() }

// Close discards buffered bytes and closes the wrapped source.
func (s *BufferedSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.buf.Clear()
	return s.src.Close()
}
