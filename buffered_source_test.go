package segio

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trickleSource hands out at most one byte per call so that every value
// spans several reads.
func trickleSource(s string) Source {
	return NewReaderSource(iotest.OneByteReader(strings.NewReader(s)))
}

// =============================================================================
// BufferedSource Tests
// =============================================================================

func TestBufferedSource_RequestAndRequire(t *testing.T) {
	src := NewBufferedSource(trickleSource("abcdef"))

	ok, err := src.Request(4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, src.Buffer().Size(), int64(4))

	ok, err = src.Request(100)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(6), src.Buffer().Size(), "Request keeps what it read")

	assert.ErrorIs(t, src.Require(7), io.ErrUnexpectedEOF)
	require.NoError(t, src.Skip(6))
	assert.ErrorIs(t, src.Require(1), io.EOF)

	done, err := src.Exhausted()
	require.NoError(t, err)
	assert.True(t, done)
}

func TestBufferedSource_TypedReadsAcrossChunks(t *testing.T) {
	b := NewBuffer()
	b.WriteShort(-1)
	b.WriteShortLe(2)
	b.WriteInt(3)
	b.WriteIntLe(-4)
	b.WriteLong(5)
	b.WriteLongLe(-6)
	raw, _ := b.Next(b.Size())

	src := NewBufferedSource(trickleSource(string(raw)))

	s, err := src.ReadShort()
	require.NoError(t, err)
	assert.Equal(t, int16(-1), s)
	s, err = src.ReadShortLe()
	require.NoError(t, err)
	assert.Equal(t, int16(2), s)
	i, err := src.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int32(3), i)
	i, err = src.ReadIntLe()
	require.NoError(t, err)
	assert.Equal(t, int32(-4), i)
	l, err := src.ReadLong()
	require.NoError(t, err)
	assert.Equal(t, int64(5), l)
	l, err = src.ReadLongLe()
	require.NoError(t, err)
	assert.Equal(t, int64(-6), l)

	_, err = src.ReadInt()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBufferedSource_TruncatedValue(t *testing.T) {
	src := NewBufferedSource(trickleSource("\x00\x01\x02"))

	_, err := src.ReadInt()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, int64(3), src.Buffer().Size(), "failed read must not consume")
}

func TestBufferedSource_Numbers(t *testing.T) {
	src := NewBufferedSource(trickleSource("-1234 ff00\n99x"))

	d, err := src.ReadDecimalLong()
	require.NoError(t, err)
	assert.Equal(t, int64(-1234), d)
	require.NoError(t, src.Skip(1))

	h, err := src.ReadHexadecimalUnsignedLong()
	require.NoError(t, err)
	assert.Equal(t, uint64(0xff00), h)

	c, err := src.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), c)

	d, err = src.ReadDecimalLong()
	require.NoError(t, err)
	assert.Equal(t, int64(99), d)

	_, err = src.ReadDecimalLong()
	assert.ErrorIs(t, err, ErrNumberFormat)
	rest, err := src.ReadUtf8All()
	require.NoError(t, err)
	assert.Equal(t, "x", rest)
}

func TestBufferedSource_Lines(t *testing.T) {
	src := NewBufferedSource(trickleSource("alpha\r\nbeta\n\ngamma"))

	for _, want := range []string{"alpha", "beta", "", "gamma"} {
		line, err := src.ReadUtf8Line()
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
	_, err := src.ReadUtf8Line()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBufferedSource_Runes(t *testing.T) {
	src := NewBufferedSource(trickleSource("a€😀"))

	var got []rune
	for {
		r, _, err := src.ReadRune()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, r)
	}
	assert.Equal(t, []rune{'a', '€', '😀'}, got)
}

func TestBufferedSource_IndexByte(t *testing.T) {
	payload := strings.Repeat("a", 3*SegmentSize) + "!"
	src := NewBufferedSource(NewReaderSource(strings.NewReader(payload)))

	i, err := src.IndexByte('!')
	require.NoError(t, err)
	assert.Equal(t, int64(3*SegmentSize), i)

	i, err = src.IndexByte('?')
	require.NoError(t, err)
	assert.Equal(t, int64(-1), i)
}

func TestBufferedSource_ReadAtMostTo(t *testing.T) {
	src := NewBufferedSource(NewReaderSource(strings.NewReader("hello world")))
	dst := NewBuffer()

	n, err := src.ReadAtMostTo(dst, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "hello", dst.ReadUtf8All())

	n, err = src.ReadAtMostTo(dst, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	_, err = src.ReadAtMostTo(dst, 1)
	assert.ErrorIs(t, err, io.EOF)

	_, err = src.ReadAtMostTo(dst, -1)
	assert.ErrorIs(t, err, ErrByteCount)
}

func TestBufferedSource_ReadAsIOReader(t *testing.T) {
	payload := strings.Repeat("xyz", 10000)
	src := NewBufferedSource(NewReaderSource(strings.NewReader(payload)))

	got, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestBufferedSource_ReadAll(t *testing.T) {
	payload := strings.Repeat("0123456789abcdef", SegmentSize/4)
	src := NewBufferedSource(NewReaderSource(strings.NewReader(payload)))
	head, err := src.Next(3)
	require.NoError(t, err)
	assert.Equal(t, "012", string(head))

	rec := newRecordingSink()
	n, err := src.ReadAll(rec)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)-3), n)
	assert.Equal(t, payload[3:], rec.data.ReadUtf8All())
}

func TestBufferedSource_ByteStringAndSkip(t *testing.T) {
	src := NewBufferedSource(trickleSource("headerbody"))

	bs, err := src.ReadByteString(6)
	require.NoError(t, err)
	assert.Equal(t, "header", bs.Utf8())

	assert.ErrorIs(t, src.Skip(10), io.ErrUnexpectedEOF)
	done, err := src.Exhausted()
	require.NoError(t, err)
	assert.True(t, done)
}

func TestBufferedSource_PropagatesSourceError(t *testing.T) {
	boom := errors.New("boom")
	src := NewBufferedSource(NewReaderSource(iotest.ErrReader(boom)))

	_, err := src.ReadByte()
	assert.ErrorIs(t, err, boom)
}

func TestBufferedSource_Close(t *testing.T) {
	src := NewBufferedSource(NewReaderSource(strings.NewReader("data")))
	_, _ = src.Request(2)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	assert.Equal(t, int64(0), src.Buffer().Size())

	_, err := src.ReadByte()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = src.ReadAtMostTo(NewBuffer(), 1)
	assert.ErrorIs(t, err, ErrClosed)
}
