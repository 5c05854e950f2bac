package segio

import (
	"errors"
	"io"
	"os"
	"syscall"
	"time"
)

// Sink receives bytes moved out of a Buffer.
type Sink interface {
	// WriteFrom removes exactly n bytes from the head of src and writes
	// them. It returns ErrByteCount if n exceeds src.Size().
	WriteFrom(src *Buffer, n int64) error
	// Flush pushes buffered bytes to their final destination.
	Flush() error
	// Timeout returns the Timeout consulted by blocking calls.
	Timeout() *Timeout
	// Close flushes and releases the sink. Closing twice is a no-op.
	Close() error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// WriterSink is a Sink that writes to an io.Writer. When the writer has
// SetWriteDeadline, the Timeout is applied to every write.
type WriterSink struct {
	w       io.Writer
	timeout *Timeout
	closed  bool
}

// NewWriterSink returns a Sink writing to w. Close closes w if it is an
// io.Closer.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w, timeout: NewTimeout()}
}

// CreateSink creates or truncates the file at path and returns a Sink
// writing to it.
func CreateSink(path string) (*WriterSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return NewWriterSink(f), nil
}

// AppendSink opens the file at path for appending, creating it if needed.
func AppendSink(path string) (*WriterSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return NewWriterSink(f), nil
}

// Writer returns the underlying writer.
func (s *WriterSink) Writer() io.Writer { return s.w }

func (s *WriterSink) WriteFrom(src *Buffer, n int64) error {
	if s.closed {
		return ErrClosed
	}
	if n < 0 || n > src.Size() {
		return ErrByteCount
	}
	if n == 0 {
		return nil
	}
	if err := s.timeout.Check(); err != nil {
		return err
	}
	if dl, ok := s.w.(writeDeadliner); ok {
		if at, ok := s.timeout.deadlineFrom(time.Now()); ok {
			// Regular files report os.ErrNoDeadline and are written without one.
			if err := dl.SetWriteDeadline(at); err == nil {
				defer dl.SetWriteDeadline(time.Time{})
			} else if !errors.Is(err, os.ErrNoDeadline) {
				return err
			}
		}
	}
	_, err := src.writeToN(s.w, n)
	return transportError(err)
}

// Flush syncs the writer when it is a file or has a Flush method. Files
// that cannot be synced, such as pipes and terminals, are left alone.
func (s *WriterSink) Flush() error {
	if s.closed {
		return ErrClosed
	}
	switch w := s.w.(type) {
	case interface{ Flush() error }:
		return transportError(w.Flush())
	case *os.File:
		if err := w.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTSUP) {
			return err
		}
	}
	return nil
}

func (s *WriterSink) Timeout() *Timeout { return s.timeout }

func (s *WriterSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// transportError maps a transport deadline expiry to ErrTimeout.
func transportError(err error) error {
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// Blackhole returns a Sink that discards everything written to it.
func Blackhole() Sink {
	return &blackhole{timeout: NewTimeout()}
}

type blackhole struct {
	timeout *Timeout
	closed  bool
}

func (s *blackhole) WriteFrom(src *Buffer, n int64) error {
	if s.closed {
		return ErrClosed
	}
	if n < 0 || n > src.Size() {
		return ErrByteCount
	}
	return src.Skip(n)
}

func (s *blackhole) Flush() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *blackhole) Timeout() *Timeout { return s.timeout }

func (s *blackhole) Close() error {
	s.closed = true
	return nil
}
