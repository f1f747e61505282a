package cfb

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/cfbkit/cfb/dirty"
	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/internal/logger"
	"github.com/joshuapare/cfbkit/internal/mmfile"
)

// OpenOptions configures Open.
type OpenOptions struct {
	// ReadOnly maps the file copy-on-write and refuses every mutation.
	ReadOnly bool
	// FlushMode selects the durability of Commit.
	FlushMode dirty.FlushMode
}

// CreateOptions configures Create and NewInMemory.
type CreateOptions struct {
	// BigBlockSize selects 512-byte (default) or 4096-byte sectors.
	BigBlockSize BigBlockSize
	// FlushMode selects the durability of Commit.
	FlushMode dirty.FlushMode
}

func (o CreateOptions) blockSize() BigBlockSize {
	if o.BigBlockSize.Size() == 0 {
		return SmallerBigBlockSize
	}
	return o.BigBlockSize
}

// Filesystem is an open container: the header, both block stores, and the
// decoded directory. It does not write directory entries other than the
// root entry's mini stream pointer.
//
// NOT thread-safe.
type Filesystem struct {
	region   *mmfile.Region // nil for in-memory containers
	backing  Backing
	main     *MainStore
	mini     *MiniStore
	tracker  *dirty.Tracker
	entries  []format.DirEntry
	mode     dirty.FlushMode
	readOnly bool
	closed   bool
}

// Open maps the container at path.
func Open(path string, opts OpenOptions) (*Filesystem, error) {
	region, err := mmfile.Open(path, !opts.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("cfb: open %s: %w", path, err)
	}
	fs, err := load(region, opts.ReadOnly, region)
	if err != nil {
		_ = region.Close()
		return nil, fmt.Errorf("cfb: open %s: %w", path, err)
	}
	fs.mode = opts.FlushMode
	logger.Debug("cfb: opened container", "path", path, "read_only", opts.ReadOnly,
		"block_size", fs.main.BlockSize(), "sectors", fs.main.SectorCount())
	return fs, nil
}

// OpenBytes opens a container held in memory. data is not copied unless its
// trailing sector is partial, in which case it is padded with zeros.
func OpenBytes(data []byte) (*Filesystem, error) {
	header, err := ParseHeaderBlock(data)
	if err != nil {
		return nil, err
	}
	bs := int64(header.BigBlockSize().Size())
	if rem := (int64(len(data)) - bs) % bs; rem > 0 {
		padded := make([]byte, int64(len(data))+bs-rem)
		copy(padded, data)
		data = padded
	}
	return load(NewMemBacking(data), false, nil)
}

// Create creates (or truncates) a container file at path holding only the
// root entry.
func Create(path string, opts CreateOptions) (*Filesystem, error) {
	region, err := mmfile.Create(path, 0)
	if err != nil {
		return nil, fmt.Errorf("cfb: create %s: %w", path, err)
	}
	fs, err := initialize(region, opts.blockSize(), region)
	if err != nil {
		_ = region.Close()
		return nil, fmt.Errorf("cfb: create %s: %w", path, err)
	}
	fs.mode = opts.FlushMode
	if err := fs.Commit(context.Background()); err != nil {
		_ = region.Close()
		return nil, fmt.Errorf("cfb: create %s: %w", path, err)
	}
	return fs, nil
}

// NewInMemory returns an empty in-memory container holding only the root
// entry.
func NewInMemory(opts CreateOptions) (*Filesystem, error) {
	return initialize(NewMemBacking(nil), opts.blockSize(), nil)
}

func load(backing Backing, readOnly bool, region *mmfile.Region) (*Filesystem, error) {
	header, err := ParseHeaderBlock(backing.Bytes())
	if err != nil {
		return nil, err
	}
	if region != nil && !readOnly {
		bs := int64(header.BigBlockSize().Size())
		if rem := (region.Size() - bs) % bs; rem > 0 {
			if err := region.Grow(bs - rem); err != nil {
				return nil, fmt.Errorf("cfb: pad trailing sector: %w", err)
			}
		}
	}
	store, err := OpenMainStore(backing, header)
	if err != nil {
		return nil, err
	}
	store.SetReadOnly(readOnly)
	fs := &Filesystem{region: region, backing: backing, main: store, readOnly: readOnly}
	if err := fs.loadDirectory(); err != nil {
		return nil, err
	}
	if fs.mini, err = OpenMiniStore(store, &fs.entries[0]); err != nil {
		return nil, err
	}
	fs.track()
	return fs, nil
}

func initialize(backing Backing, bbs BigBlockSize, region *mmfile.Region) (*Filesystem, error) {
	store, err := CreateMainStore(backing, bbs)
	if err != nil {
		return nil, err
	}
	fs := &Filesystem{region: region, backing: backing, main: store}
	fs.track()
	if region != nil {
		// Everything written so far predates the tracker.
		fs.tracker.Add(0, len(backing.Bytes()))
	}

	slots := bbs.Size() / format.DirEntrySize
	dir := make([]byte, bbs.Size())
	fs.entries = make([]format.DirEntry, slots)
	for i := range fs.entries {
		e := format.DirEntry{
			Index: uint32(i),
			Left:  format.DirNoStream,
			Right: format.DirNoStream,
			Child: format.DirNoStream,
		}
		if i == 0 {
			e.Name = "Root Entry"
			e.Type = format.DirTypeRoot
			e.StreamStart = EndOfChain
		}
		if err := format.EncodeDirEntry(dir[i*format.DirEntrySize:], e); err != nil {
			return nil, err
		}
		fs.entries[i] = e
	}
	ds := NewStream(store, EndOfChain)
	if err := ds.Update(dir); err != nil {
		return nil, fmt.Errorf("cfb: write directory: %w", err)
	}
	store.Header().SetPropertyStart(ds.StartBlock())

	if fs.mini, err = OpenMiniStore(store, &fs.entries[0]); err != nil {
		return nil, err
	}
	if err := store.SyncWithDataSource(); err != nil {
		return nil, err
	}
	logger.Debug("cfb: initialized container", "block_size", bbs.Size(), "directory", ds.StartBlock())
	return fs, nil
}

func (fs *Filesystem) track() {
	if fs.region == nil || fs.readOnly {
		return
	}
	fs.tracker = dirty.NewTracker(fs.region)
	fs.main.TrackDirty(fs.tracker)
}

func (fs *Filesystem) loadDirectory() error {
	h := fs.main.Header()
	if h.PropertyStart() == EndOfChain {
		return &FormatError{Field: "directory", Message: "container has no directory"}
	}
	var raw []byte
	it := NewStream(fs.main, h.PropertyStart()).Blocks()
	for {
		blk, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("cfb: read directory: %w", err)
		}
		raw = append(raw, blk...)
	}
	entries, err := format.DecodeDirectory(raw, h.Snapshot().MajorVersion)
	if err != nil {
		return &FormatError{Field: "directory", Message: "cannot decode entries", Cause: err}
	}
	if len(entries) == 0 || !entries[0].IsRoot() {
		return &FormatError{Field: "directory", Message: "first entry is not the root entry"}
	}
	for _, e := range entries {
		if e.Type == format.DirTypeInvalid {
			logger.Debug("cfb: unusable directory entry", "index", e.Index, "problem", e.Problem)
		}
	}
	fs.entries = entries
	return nil
}

// Main returns the big-block store.
func (fs *Filesystem) Main() *MainStore { return fs.main }

// Mini returns the mini-block store.
func (fs *Filesystem) Mini() *MiniStore { return fs.mini }

// Header returns the header block.
func (fs *Filesystem) Header() *HeaderBlock { return fs.main.Header() }

// Root returns the root directory entry, which locates the mini stream.
func (fs *Filesystem) Root() format.DirEntry { return fs.entries[0] }

// Directory returns a copy of every decoded directory entry, including
// empty slots.
func (fs *Filesystem) Directory() []format.DirEntry {
	out := make([]format.DirEntry, len(fs.entries))
	copy(out, fs.entries)
	return out
}

// Lookup returns the first stream entry named name.
func (fs *Filesystem) Lookup(name string) (format.DirEntry, bool) {
	for _, e := range fs.entries {
		if e.IsStream() && e.Name == name {
			return e, true
		}
	}
	return format.DirEntry{}, false
}

// ReadOnly reports whether the filesystem refuses mutations.
func (fs *Filesystem) ReadOnly() bool { return fs.readOnly }

// StoreFor returns the store a stream of the given size lives in: the mini
// store below the header's cutoff, the main store otherwise.
func (fs *Filesystem) StoreFor(size int64) BlockStore {
	if size < fs.Header().MiniStreamCutoff() {
		return fs.mini
	}
	return fs.main
}

// StreamFor returns the chain of a stream or root entry.
func (fs *Filesystem) StreamFor(e format.DirEntry) (*Stream, error) {
	if fs.closed {
		return nil, ErrClosed
	}
	switch {
	case e.IsRoot():
		return NewStream(fs.main, e.StartBlock()), nil
	case e.IsStream():
		return NewStream(fs.StoreFor(e.Size()), e.StartBlock()), nil
	}
	return nil, fmt.Errorf("cfb: entry %q is a %s, not a stream", e.Name, e.TypeName())
}

// ReadStream returns the contents of a stream or root entry.
func (fs *Filesystem) ReadStream(e format.DirEntry) ([]byte, error) {
	s, err := fs.StreamFor(e)
	if err != nil {
		return nil, err
	}
	data, err := s.ReadAll(e.Size())
	if err != nil {
		return nil, fmt.Errorf("cfb: read %q: %w", e.Name, err)
	}
	return data, nil
}

// ReserveMiniStream grows the mini stream to hold at least size bytes,
// rounded up to whole big blocks, and records the new start and size in the
// root entry. Existing mini blocks keep their contents. The mini store never
// grows the mini stream on its own.
func (fs *Filesystem) ReserveMiniStream(size int64) error {
	if fs.closed {
		return ErrClosed
	}
	if fs.readOnly {
		return ErrReadOnly
	}
	root := &fs.entries[0]
	if size <= root.Size() {
		return nil
	}
	bs := int64(fs.main.BlockSize())
	s := NewStream(fs.main, root.StartBlock())
	current, err := s.ReadAll(root.Size())
	if err != nil {
		return fmt.Errorf("cfb: reserve mini stream: %w", err)
	}
	data := make([]byte, buf.CeilDiv(size, bs)*bs)
	copy(data, current)
	if err := s.Update(data); err != nil {
		return fmt.Errorf("cfb: reserve mini stream: %w", err)
	}
	root.StreamStart = s.StartBlock()
	root.StreamSize = int64(len(data))

	entry := make([]byte, format.DirEntrySize)
	blk, err := fs.main.BlockAt(fs.Header().PropertyStart())
	if err != nil {
		return err
	}
	copy(entry, blk)
	format.PutU32(entry, format.DirStartOffset, root.StreamStart)
	format.PutU64(entry, format.DirSizeOffset, uint64(root.StreamSize))
	if err := fs.main.writeWithin(fs.Header().PropertyStart(), 0, entry); err != nil {
		return err
	}
	logger.Debug("cfb: reserved mini stream", "start", root.StreamStart, "size", root.StreamSize)
	return nil
}

// Sync writes both stores' allocation tables and the header into the
// backing image without flushing it to disk.
func (fs *Filesystem) Sync() error {
	if fs.closed {
		return ErrClosed
	}
	if fs.readOnly {
		return ErrReadOnly
	}
	if err := fs.mini.SyncWithDataSource(); err != nil {
		return err
	}
	return fs.main.SyncWithDataSource()
}

// Bytes syncs the stores and returns the container image. For a file the
// slice aliases the mapping.
func (fs *Filesystem) Bytes() ([]byte, error) {
	if err := fs.Sync(); err != nil {
		return nil, err
	}
	return fs.backing.Bytes(), nil
}

// Commit syncs both stores, then flushes modified data sectors, then the
// header, then the descriptor according to the flush mode. When the sync
// changed nothing since the last Commit, nothing is flushed.
func (fs *Filesystem) Commit(ctx context.Context) error {
	if err := fs.Sync(); err != nil {
		return err
	}
	if fs.tracker == nil || !fs.tracker.Pending() {
		return nil
	}
	if err := fs.tracker.FlushDataOnly(ctx); err != nil {
		return fmt.Errorf("cfb: flush data: %w", err)
	}
	if err := fs.tracker.FlushHeaderAndMeta(ctx, fs.mode); err != nil {
		return fmt.Errorf("cfb: flush header: %w", err)
	}
	return nil
}

// Close commits pending changes of a writable filesystem and releases the
// file.
func (fs *Filesystem) Close() error {
	if fs.closed {
		return nil
	}
	var err error
	if !fs.readOnly {
		err = fs.Commit(context.Background())
	}
	fs.closed = true
	if fs.region != nil {
		err = errors.Join(err, fs.region.Close())
	}
	return err
}
