package verify

import (
	"errors"
	"fmt"

	"github.com/joshuapare/cfbkit/cfb"
	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/internal/format"
)

// ValidationError describes one failed invariant.
type ValidationError struct {
	Type    string
	Message string
	Offset  int // File offset, or -1 when the failure has no single location
	Cause   error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, msg)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error { return e.Cause }

// AllInvariants validates all container invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
func AllInvariants(data []byte) error {
	if errs := Collect(data); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Collect runs every check and returns all failures. Table and chain checks
// are skipped when the header or the directory cannot be loaded.
func Collect(data []byte) []error {
	if err := Header(data); err != nil {
		return []error{err}
	}
	fs, err := cfb.OpenBytes(data)
	if err != nil {
		return []error{&ValidationError{Type: "Open", Message: "cannot load container", Offset: -1, Cause: err}}
	}
	var errs []error
	errs = append(errs, Directory(fs)...)
	errs = append(errs, AllocationTables(fs)...)
	errs = append(errs, Chains(fs)...)
	return errs
}

// Header validates the header fields and the file length.
func Header(data []byte) error {
	if err := format.CheckHeader(data); err != nil {
		return &ValidationError{Type: "Header", Message: "invalid header", Offset: 0, Cause: err}
	}
	h, _ := format.ParseHeader(data)
	bbs, err := cfb.BigBlockSizeForShift(h.SectorShift)
	if err != nil {
		return &ValidationError{Type: "Header", Message: "invalid sector shift", Offset: format.HeaderSectorShiftOffset, Cause: err}
	}

	if h.MiniStreamCutoff != format.MiniStreamCutoff {
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("mini stream cutoff %d (expected %d)", h.MiniStreamCutoff, format.MiniStreamCutoff),
			Offset:  format.HeaderMiniCutoffOffset,
		}
	}

	overflow := int64(h.BATCount) - format.HeaderBATArrayLen
	switch {
	case overflow <= 0 && h.XBATCount != 0:
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("%d XBAT sectors for only %d BAT sectors", h.XBATCount, h.BATCount),
			Offset:  format.HeaderXBATCountOffset,
		}
	case overflow > 0 && int64(h.XBATCount) < buf.CeilDiv(overflow, int64(bbs.XBATEntriesPerBlock())):
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("%d XBAT sectors cannot list %d BAT sectors", h.XBATCount, overflow),
			Offset:  format.HeaderXBATCountOffset,
		}
	}

	span := bbs.HeaderSpan()
	if rem := (int64(len(data)) - span) % int64(bbs.Size()); rem != 0 {
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("file length %d is not header plus whole %d-byte sectors", len(data), bbs.Size()),
			Offset:  -1,
		}
	}
	return nil
}

// Directory reports every directory entry that could not be decoded. The
// container still opens; only those entries are unusable.
func Directory(fs *cfb.Filesystem) []error {
	var errs []error
	dir := int64(fs.Header().PropertyStart())
	for _, e := range fs.Directory() {
		if e.Type != format.DirTypeInvalid {
			continue
		}
		off := -1
		if per := int64(fs.Main().BlockSize() / format.DirEntrySize); int64(e.Index) < per {
			// Entries of the first directory sector have a known offset.
			off = int((dir+1)*int64(fs.Main().BlockSize()) + int64(e.Index)*format.DirEntrySize)
		}
		errs = append(errs, &ValidationError{
			Type:    "Directory",
			Message: fmt.Sprintf("entry %d cannot be decoded: %s", e.Index, e.Problem),
			Offset:  off,
		})
	}
	return errs
}

// AllocationTables checks that every BAT and XBAT sector is marked as such
// in the BAT and that every successor stays within the governed range.
func AllocationTables(fs *cfb.Filesystem) []error {
	var errs []error
	m := fs.Main()
	bs := int64(m.BlockSize())

	expect := func(sector, marker cfb.SectorIndex, kind string) {
		next, err := m.NextBlock(sector)
		if err != nil {
			errs = append(errs, &ValidationError{Type: "AllocationTable", Message: kind + " sector not governed", Offset: -1, Cause: err})
			return
		}
		if next != marker {
			errs = append(errs, &ValidationError{
				Type:    "AllocationTable",
				Message: fmt.Sprintf("%s sector %d marked %s, expected %s", kind, sector, cfb.SectorName(next), cfb.SectorName(marker)),
				Offset:  int((int64(sector) + 1) * bs),
			})
		}
	}
	for _, b := range m.BATBlocks() {
		expect(b.OurBlockIndex(), cfb.FATSector, "BAT")
	}
	for _, b := range m.XBATBlocks() {
		expect(b.OurBlockIndex(), cfb.DIFATSector, "XBAT")
	}

	checkSuccessors := func(blocks []*cfb.BATBlock, limit int64, table string) {
		for k, b := range blocks {
			for i := range b.EntriesPerBlock() {
				v := b.ValueAt(i)
				if cfb.IsRegular(v) && int64(v) >= limit {
					errs = append(errs, &ValidationError{
						Type: "AllocationTable",
						Message: fmt.Sprintf("%s entry for sector %d points at %d, beyond the %d governed sectors",
							table, k*b.EntriesPerBlock()+i, v, limit),
						Offset: -1,
					})
				}
			}
		}
	}
	epb := int64(m.BigBlockSize().BATEntriesPerBlock())
	checkSuccessors(m.BATBlocks(), int64(len(m.BATBlocks()))*epb, "BAT")
	checkSuccessors(fs.Mini().SBATBlocks(), int64(len(fs.Mini().SBATBlocks()))*epb, "SBAT")
	return errs
}

// owners records which chain each sector belongs to.
type owners map[cfb.SectorIndex]string

func (o owners) claim(sectors []cfb.SectorIndex, name string) error {
	for _, s := range sectors {
		if prev, ok := o[s]; ok {
			return fmt.Errorf("sector %d belongs to both %s and %s", s, prev, name)
		}
		o[s] = name
	}
	return nil
}

// Chains walks every chain reachable from the header and the directory.
func Chains(fs *cfb.Filesystem) []error {
	var errs []error
	m, h := fs.Main(), fs.Header()
	mainOwners, miniOwners := owners{}, owners{}

	walk := func(store cfb.BlockStore, start cfb.SectorIndex, name string, want int64, own owners) {
		sectors, err := cfb.NewStream(store, start).Sectors()
		if err != nil {
			errs = append(errs, &ValidationError{Type: "Chain", Message: name, Offset: -1, Cause: err})
			return
		}
		if want >= 0 && int64(len(sectors)) != want {
			errs = append(errs, &ValidationError{
				Type:    "Chain",
				Message: fmt.Sprintf("%s has %d sectors, expected %d", name, len(sectors), want),
				Offset:  -1,
				Cause:   cfb.ErrCorruptChain,
			})
		}
		if err := own.claim(sectors, name); err != nil {
			errs = append(errs, &ValidationError{Type: "Chain", Message: "shared sector", Offset: -1, Cause: err})
		}
	}

	for _, b := range m.BATBlocks() {
		_ = mainOwners.claim([]cfb.SectorIndex{b.OurBlockIndex()}, "BAT")
	}
	for _, b := range m.XBATBlocks() {
		_ = mainOwners.claim([]cfb.SectorIndex{b.OurBlockIndex()}, "XBAT")
	}

	walk(m, h.PropertyStart(), "directory", -1, mainOwners)
	walk(m, h.SBATStart(), "SBAT", int64(h.SBATCount()), mainOwners)
	root := fs.Root()
	walk(m, root.StartBlock(), "mini stream", buf.CeilDiv(root.Size(), int64(m.BlockSize())), mainOwners)

	for _, e := range fs.Directory() {
		if !e.IsStream() {
			continue
		}
		store := fs.StoreFor(e.Size())
		own := mainOwners
		if store != cfb.BlockStore(m) {
			own = miniOwners
		}
		want := buf.CeilDiv(e.Size(), int64(store.BlockSize()))
		walk(store, e.StartBlock(), fmt.Sprintf("stream %q", e.Name), want, own)
	}
	return errs
}

// IsCorruption reports whether err came from a corrupt structure rather
// than an I/O failure.
func IsCorruption(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, cfb.ErrCorruptChain) ||
		errors.Is(err, cfb.ErrFormat) ||
		errors.Is(err, cfb.ErrOutOfRange)
}
