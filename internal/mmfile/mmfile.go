// Package mmfile provides platform-specific backing for container files: a
// read-write memory mapping on unix, a heap copy written back with WriteAt
// everywhere else.
package mmfile

import (
	"errors"
	"fmt"
	"os"
)

// ErrClosed is returned by operations on a closed Region.
var ErrClosed = errors.New("mmfile: region closed")

// Region is an open file whose bytes are addressable as a slice. Bytes() is
// invalidated by Grow: callers must re-fetch it after growing.
//
// NOT thread-safe.
type Region struct {
	f        *os.File
	data     []byte
	size     int64
	writable bool
	mapped   bool
}

// Open maps the file at path. A read-only region is mapped copy-on-write, so
// stray writes to Bytes() never reach the file.
func Open(path string, writable bool) (*Region, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r := &Region{f: f, size: st.Size(), writable: writable}
	if err := r.mapFile(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// Create creates (or truncates) path with size zero bytes and maps it
// read-write.
func Create(path string, size int64) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("mmfile: size new file: %w", err)
	}
	r := &Region{f: f, size: size, writable: true}
	if err := r.mapFile(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// Bytes returns the current contents. The slice aliases the mapping.
func (r *Region) Bytes() []byte { return r.data }

// Size returns the current file length.
func (r *Region) Size() int64 { return r.size }

// Writable reports whether changes can be flushed to the file.
func (r *Region) Writable() bool { return r.writable }

// Name returns the path the region was opened with.
func (r *Region) Name() string {
	if r.f == nil {
		return ""
	}
	return r.f.Name()
}

// Grow extends the file by n zero bytes and remaps it.
func (r *Region) Grow(n int64) error {
	if r.f == nil {
		return ErrClosed
	}
	if !r.writable {
		return fmt.Errorf("mmfile: grow %s: read-only region", r.f.Name())
	}
	if n <= 0 {
		return nil
	}
	return r.grow(r.size + n)
}

// Flush writes bytes [off, off+n) back to the file.
func (r *Region) Flush(off, n int64) error {
	if r.f == nil {
		return ErrClosed
	}
	if !r.writable || n <= 0 || len(r.data) == 0 {
		return nil
	}
	if off < 0 || off >= int64(len(r.data)) {
		return nil
	}
	end := min(off+n, int64(len(r.data)))
	return r.flush(off, end)
}

// Sync commits flushed data to stable storage. full requests the strongest
// guarantee the platform offers (F_FULLFSYNC on darwin).
func (r *Region) Sync(full bool) error {
	if r.f == nil {
		return ErrClosed
	}
	if !r.writable {
		return nil
	}
	return fdatasync(r.f, full)
}

// Close releases the mapping and the file. Unflushed changes to a heap-backed
// region are lost.
func (r *Region) Close() error {
	if r.f == nil {
		return nil
	}
	uerr := r.unmap()
	err := r.f.Close()
	r.f = nil
	r.data = nil
	if uerr != nil {
		return uerr
	}
	return err
}
