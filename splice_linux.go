//go:build linux

package segio

import (
	"golang.org/x/sys/unix"
)

// platformSplice wraps splice(2).
func platformSplice(rfd int, wfd int, n int, flags int) (int, error) {
	moved, err := unix.Splice(rfd, nil, wfd, nil, n, flags)
	return int(moved), err
}

const (
	spliceSupported = true
	spliceFlags     = unix.SPLICE_F_MOVE | unix.SPLICE_F_NONBLOCK
)
