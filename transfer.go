package segio

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	// copyChunk is the most a single Copy step asks its source for.
	copyChunk = 8 * SegmentSize

	// maxSpliceChunk is the most a single splice(2) may move into the pipe.
	maxSpliceChunk = 4 * 1024 * 1024
)

// Copy moves everything from src to dst until src reports io.EOF and
// returns the number of bytes moved. Neither endpoint is closed or flushed.
func Copy(dst Sink, src Source) (int64, error) {
	return CopyProgress(dst, src, nil)
}

// CopyProgress is Copy with a callback run after each step with the running
// total. A non-nil error from progress stops the copy and is returned.
//
// When dst and src wrap Unix domain sockets on Linux, bytes move through a
// kernel pipe with splice(2) and never enter user space.
func CopyProgress(dst Sink, src Source, progress func(total int64) error) (int64, error) {
	if n, ok, err := trySplice(dst, src); ok {
		if err == nil && progress != nil {
			err = progress(n)
		}
		return n, err
	}

	buf := NewBuffer()
	defer buf.Clear()
	var total int64
	for {
		n, err := src.ReadAtMostTo(buf, copyChunk)
		if n > 0 {
			if werr := dst.WriteFrom(buf, n); werr != nil {
				return total, werr
			}
			total += n
			if progress != nil {
				if perr := progress(total); perr != nil {
					return total, perr
				}
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// trySplice reports ok == false when the splice path does not apply or
// failed before moving any bytes, in which case the caller copies instead.
func trySplice(dst Sink, src Source) (n int64, ok bool, err error) {
	if !spliceSupported {
		return 0, false, nil
	}
	ws, isWriter := dst.(*WriterSink)
	rs, isReader := src.(*ReaderSource)
	if !isWriter || !isReader || ws.closed || rs.closed || rs.eof {
		return 0, false, nil
	}
	out, isOut := ws.w.(*net.UnixConn)
	in, isIn := rs.r.(*net.UnixConn)
	if !isOut || !isIn {
		return 0, false, nil
	}

	arm := func() error {
		if err := rs.timeout.Check(); err != nil {
			return err
		}
		if err := ws.timeout.Check(); err != nil {
			return err
		}
		now := time.Now()
		at, _ := rs.timeout.deadlineFrom(now)
		if err := in.SetReadDeadline(at); err != nil {
			return err
		}
		at, _ = ws.timeout.deadlineFrom(now)
		return out.SetWriteDeadline(at)
	}
	defer func() {
		in.SetReadDeadline(time.Time{})
		out.SetWriteDeadline(time.Time{})
	}()

	n, err = spliceConn(out, in, arm)
	if n == 0 && isSpliceUnsupported(err) {
		lg().Debug("splice unavailable, copying through buffer", zap.Error(err))
		return 0, false, nil
	}
	if err == nil {
		rs.eof = true
	}
	return n, true, transportError(err)
}

func isSpliceUnsupported(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOSYS) || errors.Is(err, syscall.ENOTSUP)
}

// spliceConn moves bytes from src to dst through an intermediate pipe until
// src reaches end of stream. arm runs before each round trip to refresh
// deadlines. Waits for readiness go through the runtime poller, so socket
// deadlines apply.
func spliceConn(dst, src *net.UnixConn, arm func() error) (int64, error) {
	srcRaw, err := src.SyscallConn()
	if err != nil {
		return 0, err
	}
	dstRaw, err := dst.SyscallConn()
	if err != nil {
		return 0, err
	}

	pipeR, pipeW, err := os.Pipe()
	if err != nil {
		return 0, err
	}
	defer pipeR.Close()
	defer pipeW.Close()
	pr, pw := int(pipeR.Fd()), int(pipeW.Fd())

	var total int64
	for {
		if err := arm(); err != nil {
			return total, err
		}

		var in int
		var serr error
		rerr := srcRaw.Read(func(fd uintptr) bool {
			for {
				in, serr = platformSplice(int(fd), pw, maxSpliceChunk, spliceFlags)
				if serr == syscall.EINTR {
					continue
				}
				return serr != syscall.EAGAIN
			}
		})
		if rerr != nil {
			return total, rerr
		}
		if serr != nil {
			return total, serr
		}
		if in <= 0 {
			return total, nil
		}

		drained := 0
		for drained < in {
			before := drained
			werr := dstRaw.Write(func(fd uintptr) bool {
				for {
					var out int
					out, serr = platformSplice(pr, int(fd), in-drained, spliceFlags)
					if serr == syscall.EINTR {
						continue
					}
					if out > 0 {
						drained += out
					}
					return serr != syscall.EAGAIN
				}
			})
			if werr != nil {
				return total + int64(drained), werr
			}
			if serr != nil {
				return total + int64(drained), serr
			}
			if drained == before {
				return total + int64(drained), io.ErrShortWrite
			}
		}
		total += int64(in)
	}
}
