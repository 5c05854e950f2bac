package segio

import (
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

const (
	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8

	gzipFlagHCRC    = 1 << 1
	gzipFlagExtra   = 1 << 2
	gzipFlagName    = 1 << 3
	gzipFlagComment = 1 << 4
)

// gzipHeader has a zero modification time and a zero OS byte so that equal
// input always produces equal output.
var gzipHeader = [10]byte{gzipID1, gzipID2, gzipDeflate, 0, 0, 0, 0, 0, 0, 0}

// deflaters pools flate writers per level, indexed by level - flate.HuffmanOnly.
var deflaters [flate.BestCompression - flate.HuffmanOnly + 1]sync.Pool

// GzipOption configures a GzipSink.
type GzipOption func(*GzipSink)

// WithLevel sets the deflate level, from flate.HuffmanOnly to
// flate.BestCompression. The default is flate.DefaultCompression.
func WithLevel(level int) GzipOption {
	return func(s *GzipSink) { s.level = level }
}

// GzipSink compresses what is written to it and frames it as a gzip member.
// The header is queued on construction; Close finishes the deflate stream
// and appends the CRC-32 and size trailer.
type GzipSink struct {
	sink   *BufferedSink
	fw     *flate.Writer
	level  int
	crc    uint32
	count  int64
	closed bool
}

// NewGzipSink returns a GzipSink writing to s. If s is not already a
// BufferedSink it is wrapped in one.
func NewGzipSink(s Sink, opts ...GzipOption) (*GzipSink, error) {
	bs, ok := s.(*BufferedSink)
	if !ok {
		bs = NewBufferedSink(s)
	}
	g := &GzipSink{sink: bs, level: flate.DefaultCompression}
	for _, opt := range opts {
		opt(g)
	}
	if g.level < flate.HuffmanOnly || g.level > flate.BestCompression {
		return nil, fmt.Errorf("segio: invalid gzip level %d", g.level)
	}
	fw, err := takeDeflater(g.level, deflateOutput{bs})
	if err != nil {
		return nil, err
	}
	g.fw = fw
	_, _ = bs.Buffer().Write(gzipHeader[:])
	return g, nil
}

func takeDeflater(level int, w io.Writer) (*flate.Writer, error) {
	if fw, ok := deflaters[level-flate.HuffmanOnly].Get().(*flate.Writer); ok {
		fw.Reset(w)
		return fw, nil
	}
	return flate.NewWriter(w, level)
}

func releaseDeflater(level int, fw *flate.Writer) {
	fw.Reset(io.Discard)
	deflaters[level-flate.HuffmanOnly].Put(fw)
}

// deflateOutput appends compressed bytes to the buffered sink and emits
// whatever segments they complete.
type deflateOutput struct {
	s *BufferedSink
}

func (o deflateOutput) Write(p []byte) (int, error) {
	n, _ := o.s.Buffer().Write(p)
	return n, o.s.EmitCompleteSegments()
}

// WriteFrom checksums exactly n bytes at the head of src, then feeds the
// same bytes to the deflater.
func (g *GzipSink) WriteFrom(src *Buffer, n int64) error {
	if g.closed {
		return ErrClosed
	}
	if n < 0 || n > src.Size() {
		return ErrByteCount
	}
	if n == 0 {
		return nil
	}
	src.each(0, n, func(p []byte) bool {
		g.crc = crc32.Update(g.crc, crc32.IEEETable, p)
		return true
	})
	for remaining := n; remaining > 0; {
		seg := src.first()
		p := seg.bytes()
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
		w, err := g.fw.Write(p)
		src.consume(int64(w))
		g.count += int64(w)
		remaining -= int64(w)
		if err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the wrapped BufferedSink. Bytes still held by the deflater
// are not forced out.
func (g *GzipSink) Flush() error {
	if g.closed {
		return ErrClosed
	}
	return g.sink.Flush()
}

func (g *GzipSink) Timeout() *Timeout { return g.sink.Timeout() }

// Close finishes the deflate stream and writes the trailer, returns the
// deflater to its pool, and closes the wrapped sink. All three steps run;
// the first error is returned.
func (g *GzipSink) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true

	var errs firstError
	errs.record(g.finish())
	releaseDeflater(g.level, g.fw)
	g.fw = nil
	errs.record(g.sink.Close())
	return errs.err
}

func (g *GzipSink) finish() error {
	if err := g.fw.Close(); err != nil {
		return err
	}
	if err := g.sink.WriteIntLe(int32(g.crc)); err != nil {
		return err
	}
	return g.sink.WriteIntLe(int32(uint32(g.count)))
}

// CRC32 returns the checksum of the bytes written so far.
func (g *GzipSink) CRC32() uint32 { return g.crc }

// Size returns the number of uncompressed bytes written so far.
func (g *GzipSink) Size() int64 { return g.count }
