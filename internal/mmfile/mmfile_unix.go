//go:build unix

package mmfile

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

func (r *Region) mapFile() error {
	if r.size == 0 {
		r.data = []byte{}
		r.mapped = false
		return nil
	}
	if r.size > int64(^uint(0)>>1) {
		return fmt.Errorf("mmfile: file too large to map (%d bytes)", r.size)
	}
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_SHARED
	if !r.writable {
		flags = unix.MAP_PRIVATE
	}
	data, err := unix.Mmap(int(r.f.Fd()), 0, int(r.size), prot, flags)
	if err != nil {
		return fmt.Errorf("mmfile: mmap failed: %w", err)
	}
	r.data = data
	r.mapped = true
	return nil
}

func (r *Region) unmap() error {
	if !r.mapped || r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	r.mapped = false
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}

func (r *Region) grow(newSize int64) error {
	oldSize := r.size
	if err := r.unmap(); err != nil {
		return fmt.Errorf("mmfile: failed to unmap before grow: %w", err)
	}
	if err := r.f.Truncate(newSize); err != nil {
		// Try to remap old size to recover
		_ = r.mapFile()
		return fmt.Errorf("mmfile: failed to truncate file: %w", err)
	}
	r.size = newSize
	if err := r.mapFile(); err != nil {
		r.size = oldSize
		_ = r.mapFile()
		return fmt.Errorf("mmfile: failed to remap after grow: %w", err)
	}
	return nil
}

func (r *Region) flush(off, end int64) error {
	if !r.mapped {
		return nil
	}
	return msyncRange(r.data, off, end)
}
