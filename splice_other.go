//go:build !linux

package segio

import "syscall"

// platformSplice always fails so that callers fall back to copying through
// a Buffer.
func platformSplice(rfd int, wfd int, n int, flags int) (int, error) {
	return 0, syscall.ENOTSUP
}

const (
	spliceSupported = false
	spliceFlags     = 0
)
