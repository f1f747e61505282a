// Package testutil builds small containers for tests across packages.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joshuapare/cfbkit/cfb"
	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/internal/format"
)

// Stream is one named stream to place in a built container.
type Stream struct {
	Name string
	Data []byte
}

// BuildContainer returns the bytes of a container holding streams as direct
// children of the root. Streams below the mini cutoff go to the mini stream,
// which is sized up front to fit all of them.
//
// Example:
//
//	data := testutil.BuildContainer(t, cfb.SmallerBigBlockSize,
//	    testutil.Stream{Name: "Small", Data: []byte("hi")},
//	    testutil.Stream{Name: "Big", Data: bytes.Repeat([]byte{1}, 5000)},
//	)
func BuildContainer(tb testing.TB, bbs cfb.BigBlockSize, streams ...Stream) []byte {
	tb.Helper()

	fs, err := cfb.NewInMemory(cfb.CreateOptions{BigBlockSize: bbs})
	if err != nil {
		tb.Fatalf("new container: %v", err)
	}

	var miniTotal int64
	for _, s := range streams {
		if int64(len(s.Data)) < fs.Header().MiniStreamCutoff() {
			miniTotal += buf.CeilDiv(int64(len(s.Data)), cfb.MiniBlockSize) * cfb.MiniBlockSize
		}
	}
	if miniTotal > 0 {
		if err := fs.ReserveMiniStream(miniTotal); err != nil {
			tb.Fatalf("reserve mini stream: %v", err)
		}
	}

	root := fs.Root()
	entries := []format.DirEntry{root}
	for i, s := range streams {
		st := cfb.NewStream(fs.StoreFor(int64(len(s.Data))), cfb.EndOfChain)
		if err := st.Update(s.Data); err != nil {
			tb.Fatalf("write stream %q: %v", s.Name, err)
		}
		e := format.DirEntry{
			Index:       uint32(i + 1),
			Name:        s.Name,
			Type:        format.DirTypeStream,
			Left:        format.DirNoStream,
			Right:       format.DirNoStream,
			Child:       format.DirNoStream,
			StreamStart: st.StartBlock(),
			StreamSize:  int64(len(s.Data)),
		}
		// A right-leaning list is a valid (if unbalanced) sibling tree.
		if i+1 < len(streams) {
			e.Right = uint32(i + 2)
		}
		entries = append(entries, e)
	}
	if len(streams) > 0 {
		entries[0].Child = 1
	}

	slots := bbs.Size() / format.DirEntrySize
	n := int(buf.CeilDiv(int64(len(entries)), int64(slots))) * slots
	dir := make([]byte, n*format.DirEntrySize)
	for i := range n {
		e := format.DirEntry{Index: uint32(i), Left: format.DirNoStream, Right: format.DirNoStream, Child: format.DirNoStream}
		if i < len(entries) {
			e = entries[i]
		}
		if err := format.EncodeDirEntry(dir[i*format.DirEntrySize:], e); err != nil {
			tb.Fatalf("encode entry %d: %v", i, err)
		}
	}
	ds := cfb.NewStream(fs.Main(), fs.Header().PropertyStart())
	if err := ds.Update(dir); err != nil {
		tb.Fatalf("write directory: %v", err)
	}

	data, err := fs.Bytes()
	if err != nil {
		tb.Fatalf("sync container: %v", err)
	}
	return append([]byte(nil), data...)
}

// WriteContainer builds a container and writes it to name inside a fresh
// temp directory, returning the path.
func WriteContainer(tb testing.TB, name string, bbs cfb.BigBlockSize, streams ...Stream) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, BuildContainer(tb, bbs, streams...), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}
