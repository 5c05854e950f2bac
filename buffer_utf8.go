package segio

import (
	"io"
	"strings"
	"unicode/utf8"
)

// WriteUtf8 appends s encoded as UTF-8. Bytes of s that are not valid UTF-8
// are replaced with '?'. An encoded code point never straddles two segments.
func (b *Buffer) WriteUtf8(s string) {
	for i := 0; i < len(s); {
		if s[i] < utf8.RuneSelf {
			// Copy the ASCII run into the tail in one pass.
			seg := b.writableSegment(1)
			room := SegmentSize - seg.limit
			n := 0
			for i < len(s) && n < room && s[i] < utf8.RuneSelf {
				seg.b.data[seg.limit+n] = s[i]
				n++
				i++
			}
			seg.limit += n
			b.size += int64(n)
			continue
		}
		r, w := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && w == 1 {
			_ = b.WriteByte('?')
		} else {
			_, _ = b.WriteRune(r)
		}
		i += w
	}
}

// WriteRune appends the UTF-8 encoding of r and returns its length. It
// never fails. Surrogates and out-of-range values are written as '?'.
func (b *Buffer) WriteRune(r rune) (int, error) {
	n := utf8.RuneLen(r)
	if n < 0 {
		return 1, b.WriteByte('?')
	}
	utf8.EncodeRune(b.putFixed(n), r)
	return n, nil
}

// ReadUtf8 removes n bytes and decodes them as UTF-8. Each maximal run of
// invalid bytes becomes U+FFFD.
func (b *Buffer) ReadUtf8(n int64) (string, error) {
	if n < 0 {
		return "", ErrByteCount
	}
	if n == 0 {
		return "", nil
	}
	if n > b.size {
		if b.size == 0 {
			return "", io.EOF
		}
		return "", io.ErrUnexpectedEOF
	}
	var s string
	if seg := b.first(); int64(seg.Len()) >= n {
		s = string(seg.b.data[seg.pos : seg.pos+int(n)])
		b.consume(n)
	} else {
		p, _ := b.Next(n)
		s = string(p)
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return s, nil
}

// ReadUtf8All removes and decodes every readable byte.
func (b *Buffer) ReadUtf8All() string {
	s, _ := b.ReadUtf8(b.size)
	return s
}

// ReadRune removes one UTF-8 encoded code point. An invalid leading byte is
// consumed alone and reported as U+FFFD with size 1. If the sequence its
// leading byte announces is cut short by the end of the buffer, nothing is
// consumed and io.ErrUnexpectedEOF is returned.
func (b *Buffer) ReadRune() (r rune, size int, err error) {
	if b.size == 0 {
		return 0, 0, io.EOF
	}
	c := b.Get(0)
	if c < utf8.RuneSelf {
		_, _ = b.ReadByte()
		return rune(c), 1, nil
	}
	need := utf8SequenceLength(c)
	if int64(need) > b.size {
		return 0, 0, io.ErrUnexpectedEOF
	}
	var scratch [utf8.UTFMax]byte
	p, _ := b.peekFixed(need, scratch[:])
	r, size = utf8.DecodeRune(p)
	b.consume(int64(size))
	return r, size, nil
}

func utf8SequenceLength(c byte) int {
	switch {
	case c&0xe0 == 0xc0:
		return 2
	case c&0xf0 == 0xe0:
		return 3
	case c&0xf8 == 0xf0:
		return 4
	}
	return 1
}

// ReadUtf8Line removes a line terminated by "\n" or "\r\n" and returns it
// without the terminator. The final line need not be terminated. io.EOF is
// returned when the buffer is empty.
func (b *Buffer) ReadUtf8Line() (string, error) {
	i := b.IndexByte('\n', 0)
	if i < 0 {
		if b.size == 0 {
			return "", io.EOF
		}
		return b.ReadUtf8(b.size)
	}
	if i > 0 && b.Get(i-1) == '\r' {
		line, err := b.ReadUtf8(i - 1)
		if err != nil {
			return "", err
		}
		return line, b.Skip(2)
	}
	line, err := b.ReadUtf8(i)
	if err != nil {
		return "", err
	}
	return line, b.Skip(1)
}
