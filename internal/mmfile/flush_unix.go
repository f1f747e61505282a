//go:build unix && !darwin

package mmfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// msyncRange flushes data[off:end] rounded out to page boundaries. msync
// requires a page-aligned start address; the mapping itself is page aligned.
func msyncRange(data []byte, off, end int64) error {
	page := int64(unix.Getpagesize())
	start := (off / page) * page
	if rem := end % page; rem != 0 {
		end += page - rem
	}
	end = min(end, int64(len(data)))
	return unix.Msync(data[start:end], unix.MS_SYNC)
}

// fdatasync performs file descriptor sync. full is ignored off darwin.
func fdatasync(f *os.File, _ bool) error {
	return unix.Fdatasync(int(f.Fd()))
}
