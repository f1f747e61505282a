//go:build !unix && !windows

package mmfile

import "os"

func fdatasync(f *os.File, _ bool) error {
	return f.Sync()
}
