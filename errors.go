package segio

import (
	"errors"
	"os"

	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by any operation on a closed Source or Sink.
	ErrClosed = errors.New("segio: closed")
	// ErrInterrupted is returned when a wait is abandoned because the
	// Timeout's context was cancelled. It wraps the context's error.
	ErrInterrupted = errors.New("segio: interrupted")
	// ErrByteCount is returned when a byte count is negative or exceeds the
	// number of readable bytes in the source Buffer.
	ErrByteCount = errors.New("segio: byte count out of range")
	// ErrSameBuffer is returned when a Buffer is asked to move bytes into itself.
	ErrSameBuffer = errors.New("segio: source and destination are the same buffer")
	// ErrNumberFormat is returned when decimal or hexadecimal text is
	// malformed or does not fit in 64 bits.
	ErrNumberFormat = errors.New("segio: malformed number")
	// ErrGzipFormat is returned for a malformed gzip header or trailing data.
	ErrGzipFormat = errors.New("segio: malformed gzip stream")
	// ErrChecksum is returned when a gzip trailer does not match the inflated data.
	ErrChecksum = errors.New("segio: checksum mismatch")
)

// ErrTimeout is returned when a blocking operation exceeds its Timeout.
// It reports Timeout() == true so it satisfies net.Error-style checks.
var ErrTimeout error = &timeoutError{}

type timeoutError struct{}

func (*timeoutError) Error() string   { return "segio: timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }

// IsClosed reports whether err was caused by use of a closed endpoint.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, os.ErrClosed)
}

// IsTimeout reports whether err was caused by an expired Timeout or an
// expired transport deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded)
}

// firstError keeps the first non-nil error passed to record. Later errors
// are logged and dropped, so cleanup sequences can run every step and still
// report a single failure.
type firstError struct {
	err error
}

func (f *firstError) record(err error) {
	if err == nil {
		return
	}
	if f.err == nil {
		f.err = err
		return
	}
	lg().Debug("suppressed cleanup error", zap.Error(err), zap.NamedError("first", f.err))
}
