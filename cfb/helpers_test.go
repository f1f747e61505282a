package cfb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// testRoot is a RootProperty with fixed values.
type testRoot struct {
	start SectorIndex
	size  int64
}

func (r *testRoot) StartBlock() SectorIndex { return r.start }
func (r *testRoot) Size() int64             { return r.size }

// newTestMain returns an empty in-memory main store.
func newTestMain(t *testing.T, bbs BigBlockSize) (*MainStore, *MemBacking) {
	t.Helper()
	backing := NewMemBacking(nil)
	m, err := CreateMainStore(backing, bbs)
	require.NoError(t, err)
	return m, backing
}

// linkChain allocates n blocks from store and links them into one chain.
func linkChain(t *testing.T, store BlockStore, n int) []SectorIndex {
	t.Helper()
	out := make([]SectorIndex, 0, n)
	for range n {
		s, err := store.FreeBlock()
		require.NoError(t, err)
		require.NoError(t, store.SetNextBlock(s, EndOfChain))
		if len(out) > 0 {
			require.NoError(t, store.SetNextBlock(out[len(out)-1], s))
		}
		out = append(out, s)
	}
	return out
}

// reopen syncs m and loads a second main store from a copy of its image.
func reopen(t *testing.T, m *MainStore, backing *MemBacking) *MainStore {
	t.Helper()
	require.NoError(t, m.SyncWithDataSource())
	image := append([]byte(nil), backing.Bytes()...)
	h, err := ParseHeaderBlock(image)
	require.NoError(t, err)
	m2, err := OpenMainStore(NewMemBacking(image), h)
	require.NoError(t, err)
	return m2
}

func pattern(n int, seed byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = seed + byte(i*7)
	}
	return out
}

var errGrowRefused = errors.New("grow refused")

// limitBacking is a MemBacking whose Grow fails once the image would pass
// limit bytes. A zero limit never fails.
type limitBacking struct {
	MemBacking
	limit int64
}

func (b *limitBacking) Grow(n int64) error {
	if b.limit > 0 && int64(len(b.data))+n > b.limit {
		return errGrowRefused
	}
	return b.MemBacking.Grow(n)
}

// freeze makes every further Grow fail.
func (b *limitBacking) freeze() { b.limit = int64(len(b.data)) }

// newLimitedMain returns an empty main store over a limitBacking.
func newLimitedMain(t *testing.T) (*MainStore, *limitBacking) {
	t.Helper()
	backing := &limitBacking{}
	m, err := CreateMainStore(backing, SmallerBigBlockSize)
	require.NoError(t, err)
	return m, backing
}

// reopenImage syncs m and loads a second main store from a copy of image.
func reopenImage(t *testing.T, m *MainStore, image []byte) *MainStore {
	t.Helper()
	require.NoError(t, m.SyncWithDataSource())
	image = append([]byte(nil), image...)
	h, err := ParseHeaderBlock(image)
	require.NoError(t, err)
	m2, err := OpenMainStore(NewMemBacking(image), h)
	require.NoError(t, err)
	return m2
}
