package mmfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGrowFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grow.bin")

	r, err := Create(path, 1024)
	require.NoError(t, err)
	require.Equal(t, int64(1024), r.Size())
	require.Len(t, r.Bytes(), 1024)
	assert.True(t, r.Writable())
	assert.Equal(t, path, r.Name())

	copy(r.Bytes()[10:], "hello")
	require.NoError(t, r.Grow(512))
	require.Len(t, r.Bytes(), 1536)
	assert.Equal(t, "hello", string(r.Bytes()[10:15]), "grow must keep existing bytes")

	copy(r.Bytes()[1100:], "world")
	require.NoError(t, r.Flush(0, r.Size()))
	require.NoError(t, r.Sync(false))
	require.NoError(t, r.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1536)
	assert.Equal(t, "hello", string(got[10:15]))
	assert.Equal(t, "world", string(got[1100:1105]))
}

func TestReadOnlyWritesStayPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.bin")
	require.NoError(t, os.WriteFile(path, []byte("abcdefgh"), 0o644))

	r, err := Open(path, false)
	require.NoError(t, err)
	assert.False(t, r.Writable())
	assert.Equal(t, "abcdefgh", string(r.Bytes()))

	r.Bytes()[0] = 'X'
	require.NoError(t, r.Flush(0, 8))
	require.Error(t, r.Grow(8))
	require.NoError(t, r.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", string(got))
}

func TestEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	r, err := Open(path, true)
	require.NoError(t, err)
	assert.Empty(t, r.Bytes())
	require.NoError(t, r.Flush(0, 100))

	require.NoError(t, r.Grow(64))
	assert.Len(t, r.Bytes(), 64)
	require.NoError(t, r.Close())
}

func TestClosedRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.bin")
	r, err := Create(path, 16)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close(), "double close is a no-op")

	require.ErrorIs(t, r.Grow(1), ErrClosed)
	require.ErrorIs(t, r.Flush(0, 1), ErrClosed)
	require.ErrorIs(t, r.Sync(false), ErrClosed)
	assert.Empty(t, r.Name())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.bin"), false)
	require.ErrorIs(t, err, os.ErrNotExist)
}
