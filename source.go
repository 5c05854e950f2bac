package segio

import (
	"errors"
	"io"
	"os"
	"time"
)

// Source supplies bytes appended to a Buffer.
type Source interface {
	// ReadAtMostTo appends between 0 and n bytes to dst and returns how many.
	// It returns io.EOF once the stream is exhausted. (0, nil) means no bytes
	// were available yet and the caller may retry.
	ReadAtMostTo(dst *Buffer, n int64) (int64, error)
	// Timeout returns the Timeout consulted by blocking calls.
	Timeout() *Timeout
	// Close releases the source. Closing twice is a no-op.
	Close() error
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// ReaderSource is a Source that reads from an io.Reader straight into pooled
// segments. When the reader has SetReadDeadline, the Timeout is applied to
// every read.
type ReaderSource struct {
	r       io.Reader
	timeout *Timeout
	eof     bool
	closed  bool
}

// NewReaderSource returns a Source reading from r. Close closes r if it is
// an io.Closer.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r, timeout: NewTimeout()}
}

// OpenSource opens the file at path for reading.
func OpenSource(path string) (*ReaderSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewReaderSource(f), nil
}

// Reader returns the underlying reader.
func (s *ReaderSource) Reader() io.Reader { return s.r }

func (s *ReaderSource) ReadAtMostTo(dst *Buffer, n int64) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrByteCount
	}
	if s.eof {
		return 0, io.EOF
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.timeout.Check(); err != nil {
		return 0, err
	}
	if dl, ok := s.r.(readDeadliner); ok {
		if at, ok := s.timeout.deadlineFrom(time.Now()); ok {
			// Regular files report os.ErrNoDeadline and are read without one.
			if err := dl.SetReadDeadline(at); err == nil {
				defer dl.SetReadDeadline(time.Time{})
			} else if !errors.Is(err, os.ErrNoDeadline) {
				return 0, err
			}
		}
	}

	seg := dst.writableSegment(1)
	k := min(n, int64(SegmentSize-seg.limit))
	nr, err := s.r.Read(seg.b.data[seg.limit : seg.limit+int(k)])
	if nr > 0 {
		seg.limit += nr
		dst.size += int64(nr)
	} else {
		dst.dropEmptyTail()
	}
	if err == io.EOF {
		s.eof = true
		if nr > 0 {
			return int64(nr), nil
		}
		return 0, io.EOF
	}
	return int64(nr), transportError(err)
}

func (s *ReaderSource) Timeout() *Timeout { return s.timeout }

func (s *ReaderSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
