package segio

import (
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
	"go.uber.org/zap"
)

type gzipSection int

const (
	sectionHeader gzipSection = iota
	sectionBody
	sectionTrailer
	sectionDone
)

// GzipSource inflates a single gzip member read from a Source. The header,
// including optional extra, name, comment and header CRC fields, is parsed
// on the first read; the trailer's CRC-32 and size are checked at the end.
type GzipSource struct {
	src     *BufferedSource
	fr      io.ReadCloser
	section gzipSection
	crc     uint32
	count   int64
	name    string
	comment string
	closed  bool
}

// NewGzipSource returns a GzipSource reading from src. If src is not
// already a BufferedSource it is wrapped in one.
func NewGzipSource(src Source) *GzipSource {
	bs, ok := src.(*BufferedSource)
	if !ok {
		bs = NewBufferedSource(src)
	}
	return &GzipSource{src: bs}
}

// Name returns the FNAME header field, if present. It is empty until the
// header has been read.
func (g *GzipSource) Name() string { return g.name }

// Comment returns the FCOMMENT header field, if present.
func (g *GzipSource) Comment() string { return g.comment }

func (g *GzipSource) ReadAtMostTo(dst *Buffer, n int64) (int64, error) {
	if g.closed {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrByteCount
	}
	if n == 0 {
		return 0, nil
	}

	if g.section == sectionHeader {
		if err := g.readHeader(); err != nil {
			return 0, err
		}
		g.fr = flate.NewReader(g.src)
		g.section = sectionBody
	}

	if g.section == sectionBody {
		seg := dst.writableSegment(1)
		k := min(n, int64(SegmentSize-seg.limit))
		p := seg.b.data[seg.limit : seg.limit+int(k)]
		nr, err := g.fr.Read(p)
		if nr > 0 {
			g.crc = crc32.Update(g.crc, crc32.IEEETable, p[:nr])
			g.count += int64(nr)
			seg.limit += nr
			dst.size += int64(nr)
		} else {
			dst.dropEmptyTail()
		}
		switch {
		case err == io.EOF:
			g.section = sectionTrailer
			if nr > 0 {
				return int64(nr), nil
			}
		case err != nil:
			return int64(nr), fmt.Errorf("segio: inflate: %w", err)
		default:
			return int64(nr), nil
		}
	}

	if g.section == sectionTrailer {
		if err := g.readTrailer(); err != nil {
			return 0, err
		}
		g.section = sectionDone
		done, err := g.src.Exhausted()
		if err != nil {
			return 0, err
		}
		if !done {
			return 0, fmt.Errorf("%w: data after gzip trailer", ErrGzipFormat)
		}
	}
	return 0, io.EOF
}

func (g *GzipSource) readHeader() error {
	var hdr [10]byte
	if err := g.src.Require(int64(len(hdr))); err != nil {
		return fmt.Errorf("%w: short header: %w", ErrGzipFormat, err)
	}
	_, _ = g.src.Read(hdr[:])
	if hdr[0] != gzipID1 || hdr[1] != gzipID2 {
		return fmt.Errorf("%w: bad magic %#x%02x", ErrGzipFormat, hdr[0], hdr[1])
	}
	if hdr[2] != gzipDeflate {
		return fmt.Errorf("%w: unsupported method %d", ErrGzipFormat, hdr[2])
	}
	flags := hdr[3]
	hcrc := crc32.Update(0, crc32.IEEETable, hdr[:])
	next := func(n int64) ([]byte, error) {
		p, err := g.src.Next(n)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated header: %w", ErrGzipFormat, err)
		}
		hcrc = crc32.Update(hcrc, crc32.IEEETable, p)
		return p, nil
	}
	zeroTerminated := func() (string, error) {
		i, err := g.src.IndexByte(0)
		if err != nil {
			return "", err
		}
		if i < 0 {
			return "", fmt.Errorf("%w: unterminated header field", ErrGzipFormat)
		}
		p, err := next(i + 1)
		if err != nil {
			return "", err
		}
		return string(p[:i]), nil
	}

	if flags&gzipFlagExtra != 0 {
		p, err := next(2)
		if err != nil {
			return err
		}
		if _, err := next(int64(p[0]) | int64(p[1])<<8); err != nil {
			return err
		}
	}
	if flags&gzipFlagName != 0 {
		name, err := zeroTerminated()
		if err != nil {
			return err
		}
		g.name = name
	}
	if flags&gzipFlagComment != 0 {
		comment, err := zeroTerminated()
		if err != nil {
			return err
		}
		g.comment = comment
	}
	if flags&gzipFlagHCRC != 0 {
		want, err := g.src.ReadShortLe()
		if err != nil {
			return fmt.Errorf("%w: truncated header: %w", ErrGzipFormat, err)
		}
		if uint16(want) != uint16(hcrc) {
			return fmt.Errorf("%w: header crc %#04x, computed %#04x", ErrChecksum, uint16(want), uint16(hcrc))
		}
	}
	return nil
}

func (g *GzipSource) readTrailer() error {
	crc, err := g.src.ReadIntLe()
	if err != nil {
		return fmt.Errorf("%w: truncated trailer: %w", ErrGzipFormat, err)
	}
	size, err := g.src.ReadIntLe()
	if err != nil {
		return fmt.Errorf("%w: truncated trailer: %w", ErrGzipFormat, err)
	}
	if uint32(crc) != g.crc {
		lg().Debug("gzip crc mismatch", zap.Uint32("trailer", uint32(crc)), zap.Uint32("computed", g.crc))
		return fmt.Errorf("%w: crc %#08x, computed %#08x", ErrChecksum, uint32(crc), g.crc)
	}
	if uint32(size) != uint32(g.count) {
		lg().Debug("gzip size mismatch", zap.Uint32("trailer", uint32(size)), zap.Int64("inflated", g.count))
		return fmt.Errorf("%w: size %d, inflated %d", ErrChecksum, uint32(size), g.count)
	}
	return nil
}

func (g *GzipSource) Timeout() *Timeout { return g.src.Timeout() }

// Close releases the inflater and closes the wrapped source. Both steps
// run; the first error is returned.
func (g *GzipSource) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	var errs firstError
	if g.fr != nil {
		errs.record(g.fr.Close())
	}
	errs.record(g.src.Close())
	return errs.err
}
