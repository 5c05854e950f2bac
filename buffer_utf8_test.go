package segio

import (
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuffer_WriteUtf8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii", "hello", "hello"},
		{"two byte", "héllo", "héllo"},
		{"three byte", "€uro", "€uro"},
		{"four byte", "a😀b", "a😀b"},
		{"invalid byte", "a\xffb", "a?b"},
		{"truncated sequence", "a\xe2\x82", "a??"},
		{"replacement char kept", "�", "�"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewBuffer()
			buf.WriteUtf8(tt.in)
			assert.Equal(t, tt.want, buf.ReadUtf8All())
		})
	}
}

func TestBuffer_WriteUtf8NeverSplitsCodePoint(t *testing.T) {
	buf := NewBuffer()
	defer buf.Clear()

	// Leave two free bytes in the first segment, then write a four byte
	// code point.
	_, _ = buf.Write(make([]byte, SegmentSize-2))
	buf.WriteUtf8("😀")

	require.Equal(t, 2, len(buf.segs)-buf.head)
	assert.Equal(t, SegmentSize-2, buf.segs[buf.head].Len())
	assert.Equal(t, "😀", string(buf.segs[buf.head+1].bytes()))
}

func TestBuffer_WriteRune(t *testing.T) {
	buf := NewBuffer()

	n, err := buf.WriteRune('é')
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, _ = buf.WriteRune(0xD800) // lone surrogate
	assert.Equal(t, 1, n)
	n, _ = buf.WriteRune(utf8.MaxRune + 1)
	assert.Equal(t, 1, n)

	assert.Equal(t, "é??", buf.ReadUtf8All())
}

func TestBuffer_ReadUtf8(t *testing.T) {
	buf := NewBuffer()
	_, _ = buf.WriteString("héllo wörld")

	s, err := buf.ReadUtf8(6)
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)

	_, err = buf.ReadUtf8(100)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	s, err = buf.ReadUtf8(buf.Size())
	require.NoError(t, err)
	assert.Equal(t, " wörld", s)

	_, err = buf.ReadUtf8(1)
	assert.ErrorIs(t, err, io.EOF)
}

func TestBuffer_ReadUtf8ReplacesInvalid(t *testing.T) {
	buf := NewBuffer()
	_, _ = buf.Write([]byte{'a', 0xff, 0xfe, 'b'})
	assert.Equal(t, "a�b", buf.ReadUtf8All())
}

func TestBuffer_ReadUtf8AcrossSegments(t *testing.T) {
	buf := NewBuffer()
	defer buf.Clear()

	_, _ = buf.Write(make([]byte, SegmentSize-1))
	_, _ = buf.WriteString("é!") // 0xc3 lands in the first segment
	require.NoError(t, buf.Skip(SegmentSize-1))
	require.Equal(t, 2, len(buf.segs)-buf.head)

	assert.Equal(t, "é!", buf.ReadUtf8All())
}

func TestBuffer_ReadRune(t *testing.T) {
	buf := NewBuffer()
	_, _ = buf.WriteString("a€\xffz")

	want := []struct {
		r    rune
		size int
	}{{'a', 1}, {'€', 3}, {utf8.RuneError, 1}, {'z', 1}}
	for _, w := range want {
		r, size, err := buf.ReadRune()
		require.NoError(t, err)
		assert.Equal(t, w.r, r)
		assert.Equal(t, w.size, size)
	}
	_, _, err := buf.ReadRune()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBuffer_ReadRuneTruncated(t *testing.T) {
	buf := NewBuffer()
	_, _ = buf.Write([]byte{0xe2, 0x82})

	_, _, err := buf.ReadRune()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, int64(2), buf.Size())
}

func TestBuffer_ReadUtf8Line(t *testing.T) {
	buf := NewBuffer()
	_, _ = buf.WriteString("one\ntwo\r\n\nlast")

	for _, want := range []string{"one", "two", "", "last"} {
		line, err := buf.ReadUtf8Line()
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
	_, err := buf.ReadUtf8Line()
	assert.ErrorIs(t, err, io.EOF)
}

func TestProperty_Utf8RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.StringN(0, 4*SegmentSize, -1).Draw(rt, "s")
		pad := rapid.IntRange(0, SegmentSize).Draw(rt, "pad")

		buf := NewBuffer()
		_, _ = buf.Write(make([]byte, pad))
		buf.WriteUtf8(s)
		if err := buf.Skip(int64(pad)); err != nil {
			rt.Fatalf("Skip: %v", err)
		}

		var sb strings.Builder
		for buf.Size() > 0 {
			r, _, err := buf.ReadRune()
			if err != nil {
				rt.Fatalf("ReadRune: %v", err)
			}
			sb.WriteRune(r)
		}
		if sb.String() != s {
			rt.Fatalf("round trip mismatch")
		}
	})
}
