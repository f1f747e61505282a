//go:build darwin

package mmfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// msyncRange flushes the whole mapping.
//
// On macOS, msync() requires the address to match the original mmap() address,
// so sub-slices cannot be passed. The kernel only writes pages that are dirty.
func msyncRange(data []byte, _, _ int64) error {
	return unix.Msync(data, unix.MS_SYNC)
}

// fdatasync uses F_FULLFSYNC when full is set, fsync otherwise. macOS has no
// fdatasync.
func fdatasync(f *os.File, full bool) error {
	if full {
		_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
		return err
	}
	return unix.Fsync(int(f.Fd()))
}
