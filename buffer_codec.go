package segio

import (
	"encoding/binary"
	"io"
	"math"
	"math/bits"
)

const hexDigits = "0123456789abcdef"

// putFixed reserves n contiguous bytes in the tail segment and returns them.
func (b *Buffer) putFixed(n int) []byte {
	s := b.writableSegment(n)
	p := s.b.data[s.limit : s.limit+n]
	s.limit += n
	b.size += int64(n)
	return p
}

// WriteShort appends v in big-endian order.
func (b *Buffer) WriteShort(v int16) {
	binary.BigEndian.PutUint16(b.putFixed(2), uint16(v))
}

// WriteShortLe appends v in little-endian order.
func (b *Buffer) WriteShortLe(v int16) {
	binary.LittleEndian.PutUint16(b.putFixed(2), uint16(v))
}

// WriteInt appends v in big-endian order.
func (b *Buffer) WriteInt(v int32) {
	binary.BigEndian.PutUint32(b.putFixed(4), uint32(v))
}

// WriteIntLe appends v in little-endian order.
func (b *Buffer) WriteIntLe(v int32) {
	binary.LittleEndian.PutUint32(b.putFixed(4), uint32(v))
}

// WriteLong appends v in big-endian order.
func (b *Buffer) WriteLong(v int64) {
	binary.BigEndian.PutUint64(b.putFixed(8), uint64(v))
}

// WriteLongLe appends v in little-endian order.
func (b *Buffer) WriteLongLe(v int64) {
	binary.LittleEndian.PutUint64(b.putFixed(8), uint64(v))
}

// peekFixed returns the next n bytes. When they sit in the head segment the
// result aliases it and is only valid until the next mutation; otherwise
// they are gathered into scratch.
func (b *Buffer) peekFixed(n int, scratch []byte) ([]byte, error) {
	if int64(n) > b.size {
		if b.size == 0 {
			return nil, io.EOF
		}
		return nil, io.ErrUnexpectedEOF
	}
	if s := b.first(); s.Len() >= n {
		return s.b.data[s.pos : s.pos+n], nil
	}
	p := scratch[:0]
	b.each(0, int64(n), func(run []byte) bool {
		p = append(p, run...)
		return true
	})
	return p, nil
}

// ReadShort removes two bytes and decodes them as big-endian. Nothing is
// consumed on error.
func (b *Buffer) ReadShort() (int16, error) {
	var scratch [2]byte
	p, err := b.peekFixed(2, scratch[:])
	if err != nil {
		return 0, err
	}
	v := int16(binary.BigEndian.Uint16(p))
	b.consume(2)
	return v, nil
}

// ReadShortLe removes two bytes and decodes them as little-endian.
func (b *Buffer) ReadShortLe() (int16, error) {
	var scratch [2]byte
	p, err := b.peekFixed(2, scratch[:])
	if err != nil {
		return 0, err
	}
	v := int16(binary.LittleEndian.Uint16(p))
	b.consume(2)
	return v, nil
}

// ReadInt removes four bytes and decodes them as big-endian.
func (b *Buffer) ReadInt() (int32, error) {
	var scratch [4]byte
	p, err := b.peekFixed(4, scratch[:])
	if err != nil {
		return 0, err
	}
	v := int32(binary.BigEndian.Uint32(p))
	b.consume(4)
	return v, nil
}

// ReadIntLe removes four bytes and decodes them as little-endian.
func (b *Buffer) ReadIntLe() (int32, error) {
	var scratch [4]byte
	p, err := b.peekFixed(4, scratch[:])
	if err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(p))
	b.consume(4)
	return v, nil
}

// ReadLong removes eight bytes and decodes them as big-endian.
func (b *Buffer) ReadLong() (int64, error) {
	var scratch [8]byte
	p, err := b.peekFixed(8, scratch[:])
	if err != nil {
		return 0, err
	}
	v := int64(binary.BigEndian.Uint64(p))
	b.consume(8)
	return v, nil
}

// ReadLongLe removes eight bytes and decodes them as little-endian.
func (b *Buffer) ReadLongLe() (int64, error) {
	var scratch [8]byte
	p, err := b.peekFixed(8, scratch[:])
	if err != nil {
		return 0, err
	}
	v := int64(binary.LittleEndian.Uint64(p))
	b.consume(8)
	return v, nil
}

// WriteDecimalLong appends the base-10 text of v. Digits are written
// directly into the tail segment, most significant first, after computing
// the width.
func (b *Buffer) WriteDecimalLong(v int64) {
	if v == 0 {
		_ = b.WriteByte('0')
		return
	}
	neg := v < 0
	u := uint64(v)
	if neg {
		u = -u
	}
	width := decimalWidth(u)
	if neg {
		width++
	}
	p := b.putFixed(width)
	for i := width - 1; u != 0; i-- {
		p[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		p[0] = '-'
	}
}

func decimalWidth(u uint64) int {
	n := 1
	for u >= 10 {
		u /= 10
		n++
	}
	return n
}

// WriteHexadecimalUnsignedLong appends the lowercase base-16 text of v with
// no leading zeros. Zero is written as "0".
func (b *Buffer) WriteHexadecimalUnsignedLong(v uint64) {
	if v == 0 {
		_ = b.WriteByte('0')
		return
	}
	width := (bits.Len64(v) + 3) / 4
	p := b.putFixed(width)
	for i := width - 1; i >= 0; i-- {
		p[i] = hexDigits[v&0xf]
		v >>= 4
	}
}

// ReadDecimalLong removes a base-10 number with an optional leading '-'.
// It stops at the first byte that is not a digit. ErrNumberFormat is
// returned, and nothing consumed, when no digits are present or the value
// does not fit in an int64.
func (b *Buffer) ReadDecimalLong() (int64, error) {
	if b.size == 0 {
		return 0, io.EOF
	}
	var (
		value  int64 // accumulated as a negative number to reach MinInt64
		neg    bool
		digits int
		bad    bool
	)
	limit := int64(-math.MaxInt64)
	seen := b.scan(func(c byte) bool {
		if c == '-' && digits == 0 && !neg {
			neg = true
			limit = math.MinInt64
			return true
		}
		if c < '0' || c > '9' {
			return false
		}
		d := -int64(c - '0')
		if value < limit/10 || value*10 < limit-d {
			bad = true
			return false
		}
		value = value*10 + d
		digits++
		return true
	})
	if bad || digits == 0 {
		return 0, ErrNumberFormat
	}
	b.consume(seen)
	if neg {
		return value, nil
	}
	return -value, nil
}

// ReadHexadecimalUnsignedLong removes a base-16 number of either case.
// ErrNumberFormat is returned, and nothing consumed, when no digits are
// present or the value does not fit in 64 bits.
func (b *Buffer) ReadHexadecimalUnsignedLong() (uint64, error) {
	if b.size == 0 {
		return 0, io.EOF
	}
	var (
		value  uint64
		digits int
		bad    bool
	)
	seen := b.scan(func(c byte) bool {
		d, ok := hexValue(c)
		if !ok {
			return false
		}
		if value&0xf000000000000000 != 0 {
			bad = true
			return false
		}
		value = value<<4 | uint64(d)
		digits++
		return true
	})
	if bad || digits == 0 {
		return 0, ErrNumberFormat
	}
	b.consume(seen)
	return value, nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
