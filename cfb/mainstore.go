package cfb

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/cfbkit/cfb/dirty"
	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/internal/logger"
)

// MainStore is the BlockStore over the container's big blocks, governed by
// the main allocation table (BAT). Sector n occupies bytes
// [(n+1)*size, (n+2)*size) of the backing; the header fills the sector
// before it.
//
// NOT thread-safe.
type MainStore struct {
	backing  Backing
	header   *HeaderBlock
	bbs      BigBlockSize
	bats     []*BATBlock
	xbats    []*BATBlock
	tracker  dirty.DirtyTracker
	readOnly bool

	// generation counts successor changes so layered stores can tell when
	// a cached chain is stale.
	generation uint64
}

// CreateMainStore initializes an empty container in backing, which must be
// empty. The store starts with no BAT blocks; the first FreeBlock creates
// one.
func CreateMainStore(backing Backing, bbs BigBlockSize) (*MainStore, error) {
	if n := len(backing.Bytes()); n != 0 {
		return nil, fmt.Errorf("cfb: create main store: backing already holds %d bytes", n)
	}
	if err := backing.Grow(bbs.HeaderSpan()); err != nil {
		return nil, fmt.Errorf("cfb: create main store: %w", err)
	}
	m := &MainStore{backing: backing, header: NewHeaderBlock(bbs), bbs: bbs}
	m.header.WriteData(backing.Bytes())
	logger.Debug("cfb: created main store", "block_size", bbs.Size())
	return m, nil
}

// OpenMainStore loads the allocation table named by header: the BAT
// sectors listed in the header, then those listed in the XBAT chain.
func OpenMainStore(backing Backing, header *HeaderBlock) (*MainStore, error) {
	m := &MainStore{backing: backing, header: header, bbs: header.BigBlockSize()}
	if err := m.loadBATs(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MainStore) loadBATs() error {
	count := m.header.BATCount()
	if int64(count) > m.SectorCount() {
		return &FormatError{
			Field:   "BAT count",
			Message: fmt.Sprintf("%d BAT sectors in a file of %d sectors", count, m.SectorCount()),
		}
	}

	// Each BAT sector may be listed once.
	claimed := m.ChainLoopDetector()
	load := func(sector SectorIndex) error {
		if err := claimed.Claim(sector); err != nil {
			return err
		}
		data, err := m.BlockAt(sector)
		if err != nil {
			return fmt.Errorf("cfb: load BAT block: %w", err)
		}
		bat := CreateBATBlock(m.bbs, data, false)
		bat.SetOurBlockIndex(sector)
		m.bats = append(m.bats, bat)
		return nil
	}

	for _, sector := range m.header.BATArray() {
		if err := load(sector); err != nil {
			return err
		}
	}

	remaining := count - len(m.bats)
	next := m.header.XBATStart()
	loop := m.ChainLoopDetector()
	for range m.header.XBATCount() {
		if remaining <= 0 || next == EndOfChain || next == FreeSector {
			break
		}
		if err := loop.Claim(next); err != nil {
			return err
		}
		data, err := m.BlockAt(next)
		if err != nil {
			return fmt.Errorf("cfb: load XBAT block: %w", err)
		}
		xbat := CreateBATBlock(m.bbs, data, true)
		xbat.SetOurBlockIndex(next)
		m.xbats = append(m.xbats, xbat)
		for i := 0; i < m.bbs.XBATEntriesPerBlock() && remaining > 0; i++ {
			if err := load(xbat.ValueAt(i)); err != nil {
				return err
			}
			remaining--
		}
		next = xbat.ValueAt(m.bbs.XBATEntriesPerBlock())
	}
	if remaining > 0 {
		return &CorruptChainError{
			Sector:  next,
			Message: fmt.Sprintf("XBAT chain ends with %d BAT sectors unlisted", remaining),
		}
	}
	logger.Debug("cfb: loaded main allocation table", "bats", len(m.bats), "xbats", len(m.xbats))
	return nil
}

// TrackDirty routes every byte range the store modifies to t.
func (m *MainStore) TrackDirty(t dirty.DirtyTracker) { m.tracker = t }

// SetReadOnly makes every mutating operation fail with ErrReadOnly.
func (m *MainStore) SetReadOnly(ro bool) { m.readOnly = ro }

// ReadOnly reports whether mutations are refused.
func (m *MainStore) ReadOnly() bool { return m.readOnly }

// Header returns the header block this store owns.
func (m *MainStore) Header() *HeaderBlock { return m.header }

// BigBlockSize returns the sector geometry.
func (m *MainStore) BigBlockSize() BigBlockSize { return m.bbs }

// BATBlocks returns the loaded BAT blocks in table order.
func (m *MainStore) BATBlocks() []*BATBlock { return m.bats }

// XBATBlocks returns the loaded XBAT blocks in chain order.
func (m *MainStore) XBATBlocks() []*BATBlock { return m.xbats }

// SectorCount returns the number of whole sectors present in the backing.
func (m *MainStore) SectorCount() int64 {
	n := int64(len(m.backing.Bytes())) - m.bbs.HeaderSpan()
	if n <= 0 {
		return 0
	}
	return n / int64(m.bbs.Size())
}

// Generation changes whenever a successor pointer is written.
func (m *MainStore) Generation() uint64 { return m.generation }

func (m *MainStore) span(offset SectorIndex) (int64, int64, error) {
	if !IsRegular(offset) {
		return 0, 0, &OutOfRangeError{Sector: offset, Limit: m.SectorCount(), Message: "reserved sector index"}
	}
	start, end, err := buf.SectorSpan(m.bbs.HeaderSpan(), int64(offset), int64(m.bbs.Size()))
	if err != nil {
		return 0, 0, &OutOfRangeError{Sector: offset, Limit: m.SectorCount(), Message: err.Error()}
	}
	return start, end, nil
}

// BlockAt returns a view of sector offset. The view is invalidated when the
// backing grows.
func (m *MainStore) BlockAt(offset SectorIndex) ([]byte, error) {
	start, end, err := m.span(offset)
	if err != nil {
		return nil, err
	}
	data := m.backing.Bytes()
	if end > int64(len(data)) {
		return nil, &OutOfRangeError{Sector: offset, Limit: m.SectorCount(), Message: "beyond end of file"}
	}
	return data[start:end:end], nil
}

// CreateBlockIfNeeded grows the backing until sector offset exists.
func (m *MainStore) CreateBlockIfNeeded(offset SectorIndex) ([]byte, error) {
	if b, err := m.BlockAt(offset); err == nil {
		return b, nil
	}
	if _, _, err := m.span(offset); err != nil {
		return nil, err
	}
	if m.readOnly {
		return nil, ErrReadOnly
	}
	if int64(offset) >= int64(len(m.bats))*int64(m.bbs.BATEntriesPerBlock()) {
		return nil, &OutOfRangeError{
			Sector:  offset,
			Limit:   int64(len(m.bats)) * int64(m.bbs.BATEntriesPerBlock()),
			Message: "not governed by the allocation table",
		}
	}
	if err := m.extendTo(offset); err != nil {
		return nil, err
	}
	return m.BlockAt(offset)
}

// extendTo grows the backing so sector offset exists, whether or not the
// table governs it yet. A trailing partial sector is completed by the same
// Grow.
func (m *MainStore) extendTo(offset SectorIndex) error {
	_, end, err := m.span(offset)
	if err != nil {
		return err
	}
	if n := end - int64(len(m.backing.Bytes())); n > 0 {
		if err := m.backing.Grow(n); err != nil {
			return fmt.Errorf("cfb: grow to sector %d: %w", offset, err)
		}
		logger.Debug("cfb: grew container", "sector", offset, "bytes", len(m.backing.Bytes()))
	}
	return nil
}

// WriteBlock copies data into sector offset and zero-fills the remainder.
func (m *MainStore) WriteBlock(offset SectorIndex, data []byte) error {
	if m.readOnly {
		return ErrReadOnly
	}
	if len(data) > m.bbs.Size() {
		return fmt.Errorf("cfb: write sector %d: %d bytes exceed block size %d", offset, len(data), m.bbs.Size())
	}
	blk, err := m.BlockAt(offset)
	if err != nil {
		return err
	}
	n := copy(blk, data)
	clear(blk[n:])
	m.markSector(offset, 0, len(blk))
	return nil
}

// writeWithin copies data into sector offset at byte pos without touching
// the rest of the sector.
func (m *MainStore) writeWithin(offset SectorIndex, pos int, data []byte) error {
	if m.readOnly {
		return ErrReadOnly
	}
	blk, err := m.BlockAt(offset)
	if err != nil {
		return err
	}
	if pos < 0 || pos+len(data) > len(blk) {
		return fmt.Errorf("cfb: write sector %d at %d: %d bytes overflow the block", offset, pos, len(data))
	}
	copy(blk[pos:], data)
	m.markSector(offset, pos, len(data))
	return nil
}

func (m *MainStore) markSector(offset SectorIndex, pos, n int) {
	if m.tracker == nil {
		return
	}
	start, _, _ := m.span(offset)
	m.tracker.Add(int(start)+pos, n)
}

// BATBlockAndIndex locates the BAT block governing offset.
func (m *MainStore) BATBlockAndIndex(offset SectorIndex) (*BATBlock, int, error) {
	epb := SectorIndex(m.bbs.BATEntriesPerBlock())
	idx := offset / epb
	if !IsRegular(offset) || int(idx) >= len(m.bats) {
		return nil, 0, &OutOfRangeError{
			Sector:  offset,
			Limit:   int64(len(m.bats)) * int64(epb),
			Message: "not governed by the allocation table",
		}
	}
	return m.bats[idx], int(offset % epb), nil
}

// NextBlock returns the successor of offset.
func (m *MainStore) NextBlock(offset SectorIndex) (SectorIndex, error) {
	bat, i, err := m.BATBlockAndIndex(offset)
	if err != nil {
		return 0, err
	}
	return bat.ValueAt(i), nil
}

// SetNextBlock records next as the successor of offset.
func (m *MainStore) SetNextBlock(offset, next SectorIndex) error {
	if m.readOnly {
		return ErrReadOnly
	}
	bat, i, err := m.BATBlockAndIndex(offset)
	if err != nil {
		return err
	}
	bat.SetValueAt(i, next)
	m.generation++
	return nil
}

// FreeBlock returns the first FREE sector, in table order. When every BAT
// block is full a new one is created at the first sector it governs and the
// sector after it is returned. Past 109 BAT blocks the new block is listed
// in an XBAT block, created when needed right after the new BAT block.
func (m *MainStore) FreeBlock() (SectorIndex, error) {
	if m.readOnly {
		return 0, ErrReadOnly
	}
	epb := m.bbs.BATEntriesPerBlock()
	offset := 0
	for _, bat := range m.bats {
		if bat.HasFreeSectors() {
			for j := range epb {
				if bat.ValueAt(j) == FreeSector {
					return SectorIndex(offset + j), nil
				}
			}
		}
		offset += epb
	}

	if uint64(offset)+uint64(epb) > uint64(MaxRegularSector) {
		return 0, &OutOfRangeError{Sector: SectorIndex(offset), Limit: int64(offset), Message: "sector address space exhausted"}
	}
	return m.growBAT(SectorIndex(offset))
}

// growBAT places a new BAT block at offset, plus an XBAT block right after
// it when the header and the existing XBAT blocks are full. The backing is
// grown first so a failed Grow leaves the tables untouched.
func (m *MainStore) growBAT(offset SectorIndex) (SectorIndex, error) {
	n := len(m.bats) + 1
	xepb := m.bbs.XBATEntriesPerBlock()
	pos := n - 1 - format.HeaderBATArrayLen
	needXBAT := pos >= 0 && pos/xepb == len(m.xbats)

	last := offset
	if needXBAT {
		last = offset + 1
	}
	if err := m.extendTo(last); err != nil {
		return 0, err
	}

	bat := CreateEmptyBATBlock(m.bbs, false)
	bat.SetOurBlockIndex(offset)
	bat.SetValueAt(0, FATSector)
	m.bats = append(m.bats, bat)
	m.generation++

	if pos < 0 {
		m.header.SetBATArrayEntry(n-1, offset)
	} else {
		if needXBAT {
			xbat := CreateEmptyBATBlock(m.bbs, true)
			xbat.SetOurBlockIndex(offset + 1)
			bat.SetValueAt(1, DIFATSector)
			if len(m.xbats) == 0 {
				m.header.SetXBATStart(offset + 1)
			} else {
				m.xbats[len(m.xbats)-1].SetValueAt(xepb, offset+1)
			}
			m.xbats = append(m.xbats, xbat)
			m.header.SetXBATCount(len(m.xbats))
			logger.Debug("cfb: created XBAT block", "sector", offset+1, "xbats", len(m.xbats))
		}
		m.xbats[pos/xepb].SetValueAt(pos%xepb, offset)
	}
	m.header.SetBATCount(n)
	logger.Debug("cfb: created BAT block", "sector", offset, "bats", n)
	return last + 1, nil
}

// BlockSize returns the big block size.
func (m *MainStore) BlockSize() int { return m.bbs.Size() }

// ChainLoopDetector returns a detector sized to the whole file.
func (m *MainStore) ChainLoopDetector() *ChainLoopDetector {
	return NewChainLoopDetector(int64(len(m.backing.Bytes())), m.bbs.Size())
}

// SyncWithDataSource writes the BAT and XBAT blocks and the header back into
// the backing. Only bytes that changed are reported as dirty.
func (m *MainStore) SyncWithDataSource() error {
	if m.readOnly {
		return ErrReadOnly
	}
	for _, blocks := range [][]*BATBlock{m.bats, m.xbats} {
		for _, b := range blocks {
			if err := m.syncTable(b); err != nil {
				return err
			}
		}
	}

	hdr := m.backing.Bytes()[:format.HeaderSize]
	if !bytes.Equal(hdr, m.header.raw) {
		m.header.WriteData(hdr)
		if m.tracker != nil {
			m.tracker.Add(0, format.HeaderSize)
		}
	}
	logger.Debug("cfb: synced main store", "bats", len(m.bats), "xbats", len(m.xbats))
	return nil
}

func (m *MainStore) syncTable(b *BATBlock) error {
	blk, err := m.CreateBlockIfNeeded(b.OurBlockIndex())
	if err != nil {
		return fmt.Errorf("cfb: sync table block: %w", err)
	}
	data := b.Bytes()
	if bytes.Equal(blk, data) {
		return nil
	}
	copy(blk, data)
	m.markSector(b.OurBlockIndex(), 0, len(blk))
	return nil
}
