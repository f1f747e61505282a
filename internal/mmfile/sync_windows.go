//go:build windows

package mmfile

import (
	"os"

	"golang.org/x/sys/windows"
)

// fdatasync performs file descriptor sync using FlushFileBuffers.
// The full parameter is ignored on Windows.
func fdatasync(f *os.File, _ bool) error {
	return windows.FlushFileBuffers(windows.Handle(f.Fd()))
}
