//go:build !unix

package mmfile

import (
	"fmt"
	"io"
)

// Platforms without mmap keep a heap copy and write ranges back on Flush.

func (r *Region) mapFile() error {
	data := make([]byte, r.size)
	if _, err := r.f.ReadAt(data, 0); err != nil && err != io.EOF {
		return fmt.Errorf("mmfile: read file: %w", err)
	}
	r.data = data
	return nil
}

func (r *Region) unmap() error {
	r.data = nil
	return nil
}

func (r *Region) grow(newSize int64) error {
	if err := r.f.Truncate(newSize); err != nil {
		return fmt.Errorf("mmfile: failed to truncate file: %w", err)
	}
	data := make([]byte, newSize)
	copy(data, r.data)
	r.data = data
	r.size = newSize
	return nil
}

func (r *Region) flush(off, end int64) error {
	if _, err := r.f.WriteAt(r.data[off:end], off); err != nil {
		return fmt.Errorf("mmfile: write back [%d,%d): %w", off, end, err)
	}
	return nil
}
