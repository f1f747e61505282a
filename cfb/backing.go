package cfb

// Backing is the byte image a MainStore addresses. Bytes() may be
// reallocated by Grow; slices obtained before a Grow are stale afterwards.
// *mmfile.Region satisfies it.
type Backing interface {
	Bytes() []byte
	// Grow appends n zero bytes.
	Grow(n int64) error
}

// MemBacking is a heap-backed Backing.
type MemBacking struct {
	data []byte
}

// NewMemBacking wraps data without copying it.
func NewMemBacking(data []byte) *MemBacking {
	return &MemBacking{data: data}
}

// Bytes returns the current image.
func (m *MemBacking) Bytes() []byte { return m.data }

// Grow appends n zero bytes.
func (m *MemBacking) Grow(n int64) error {
	if n <= 0 {
		return nil
	}
	m.data = append(m.data, make([]byte, n)...)
	return nil
}
