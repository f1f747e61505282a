package cfb

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/cfbkit/internal/logger"
)

// MiniStore is the BlockStore over 64-byte mini blocks. Its blocks live in
// the mini stream, a big-block chain in the main store rooted at the root
// directory entry; its allocation table (SBAT) is itself a big-block chain
// rooted in the header.
//
// Mini offset n is byte n*64 of the mini stream. Reads resolve that to a big
// block of the chain plus an offset within it.
//
// NOT thread-safe.
type MiniStore struct {
	main   *MainStore
	header *HeaderBlock
	root   RootProperty
	sbats  []*BATBlock

	// chain caches the mini stream's big-block chain, valid while the
	// root start and the main store's generation are unchanged.
	chain      []SectorIndex
	chainStart SectorIndex
	chainGen   uint64
	chainOK    bool
}

// OpenMiniStore loads the SBAT chain named by the main store's header. root
// locates the mini stream and is consulted on every access, so changes to
// it are seen immediately; a nil root means there is no mini stream.
func OpenMiniStore(main *MainStore, root RootProperty) (*MiniStore, error) {
	if root == nil {
		root = emptyRoot{}
	}
	ms := &MiniStore{main: main, header: main.Header(), root: root}

	want := ms.header.SBATCount()
	it := NewStream(main, ms.header.SBATStart()).Blocks()
	for {
		data, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cfb: load SBAT chain: %w", err)
		}
		if len(ms.sbats) == want {
			return nil, &CorruptChainError{
				Sector:  it.Sector(),
				Message: fmt.Sprintf("SBAT chain is longer than the %d sectors in the header", want),
			}
		}
		sbat := CreateBATBlock(main.BigBlockSize(), data, false)
		sbat.SetOurBlockIndex(it.Sector())
		ms.sbats = append(ms.sbats, sbat)
	}
	if len(ms.sbats) != want {
		return nil, &CorruptChainError{
			Sector:  it.Sector(),
			Message: fmt.Sprintf("SBAT chain has %d sectors, header says %d", len(ms.sbats), want),
		}
	}
	logger.Debug("cfb: loaded mini allocation table", "sbats", len(ms.sbats), "mini_stream_size", root.Size())
	return ms, nil
}

type emptyRoot struct{}

func (emptyRoot) StartBlock() SectorIndex { return EndOfChain }
func (emptyRoot) Size() int64             { return 0 }

// Root returns the property that locates the mini stream.
func (ms *MiniStore) Root() RootProperty { return ms.root }

// SBATBlocks returns the loaded SBAT blocks in chain order.
func (ms *MiniStore) SBATBlocks() []*BATBlock { return ms.sbats }

// MiniBlockCount returns how many whole mini blocks the mini stream holds.
func (ms *MiniStore) MiniBlockCount() int64 { return ms.root.Size() / MiniBlockSize }

// miniStreamChain returns the big-block chain of the mini stream, walking it
// again only after the main store's successors changed.
func (ms *MiniStore) miniStreamChain() ([]SectorIndex, error) {
	start := ms.root.StartBlock()
	if ms.chainOK && ms.chainStart == start && ms.chainGen == ms.main.Generation() {
		return ms.chain, nil
	}
	chain, err := NewStream(ms.main, start).Sectors()
	if err != nil {
		return nil, fmt.Errorf("cfb: mini stream: %w", err)
	}
	ms.chain, ms.chainStart, ms.chainGen, ms.chainOK = chain, start, ms.main.Generation(), true
	return chain, nil
}

// locate resolves mini offset to a big block of the mini stream and a byte
// offset within it.
func (ms *MiniStore) locate(offset SectorIndex) (SectorIndex, int, error) {
	size := ms.root.Size()
	byteOffset := int64(offset) * MiniBlockSize
	if !IsRegular(offset) || byteOffset+MiniBlockSize > size {
		return 0, 0, &OutOfRangeError{
			Sector:  offset,
			Limit:   size / MiniBlockSize,
			Message: "beyond end of mini stream",
		}
	}
	bs := int64(ms.main.BlockSize())
	bigBlockNumber := byteOffset / bs
	bigBlockOffset := int(byteOffset % bs)

	chain, err := ms.miniStreamChain()
	if err != nil {
		return 0, 0, err
	}
	if bigBlockNumber >= int64(len(chain)) {
		return 0, 0, &CorruptChainError{
			Sector:  ms.root.StartBlock(),
			Message: fmt.Sprintf("mini stream chain has %d blocks, size %d needs at least %d", len(chain), size, bigBlockNumber+1),
		}
	}
	return chain[bigBlockNumber], bigBlockOffset, nil
}

// BlockAt returns a copy of mini block offset.
func (ms *MiniStore) BlockAt(offset SectorIndex) ([]byte, error) {
	big, pos, err := ms.locate(offset)
	if err != nil {
		return nil, err
	}
	blk, err := ms.main.BlockAt(big)
	if err != nil {
		return nil, err
	}
	out := make([]byte, MiniBlockSize)
	copy(out, blk[pos:pos+MiniBlockSize])
	return out, nil
}

// CreateBlockIfNeeded returns mini block offset. Growing the mini stream is
// not supported; an offset past its end fails with ErrUnsupported.
func (ms *MiniStore) CreateBlockIfNeeded(offset SectorIndex) ([]byte, error) {
	b, err := ms.BlockAt(offset)
	if errors.Is(err, ErrOutOfRange) {
		return nil, fmt.Errorf("cfb: mini block %d lies past the %d-byte mini stream: %w",
			offset, ms.root.Size(), ErrUnsupported)
	}
	return b, err
}

// WriteBlock copies data into mini block offset through the main store.
func (ms *MiniStore) WriteBlock(offset SectorIndex, data []byte) error {
	if ms.main.ReadOnly() {
		return ErrReadOnly
	}
	if len(data) > MiniBlockSize {
		return fmt.Errorf("cfb: write mini block %d: %d bytes exceed block size %d", offset, len(data), MiniBlockSize)
	}
	big, pos, err := ms.locate(offset)
	if err != nil {
		return err
	}
	padded := make([]byte, MiniBlockSize)
	copy(padded, data)
	return ms.main.writeWithin(big, pos, padded)
}

// BATBlockAndIndex locates the SBAT block governing offset.
func (ms *MiniStore) BATBlockAndIndex(offset SectorIndex) (*BATBlock, int, error) {
	epb := SectorIndex(ms.main.BigBlockSize().BATEntriesPerBlock())
	idx := offset / epb
	if !IsRegular(offset) || int(idx) >= len(ms.sbats) {
		return nil, 0, &OutOfRangeError{
			Sector:  offset,
			Limit:   int64(len(ms.sbats)) * int64(epb),
			Message: "not governed by the mini allocation table",
		}
	}
	return ms.sbats[idx], int(offset % epb), nil
}

// NextBlock returns the successor of mini block offset.
func (ms *MiniStore) NextBlock(offset SectorIndex) (SectorIndex, error) {
	sbat, i, err := ms.BATBlockAndIndex(offset)
	if err != nil {
		return 0, err
	}
	return sbat.ValueAt(i), nil
}

// SetNextBlock records next as the successor of mini block offset.
func (ms *MiniStore) SetNextBlock(offset, next SectorIndex) error {
	if ms.main.ReadOnly() {
		return ErrReadOnly
	}
	sbat, i, err := ms.BATBlockAndIndex(offset)
	if err != nil {
		return err
	}
	sbat.SetValueAt(i, next)
	return nil
}

// FreeBlock returns the first FREE mini block in table order. When every
// SBAT block is full a new one is placed in a free big block of the main
// store, linked at the end of the SBAT chain, and the first mini block it
// governs is returned.
func (ms *MiniStore) FreeBlock() (SectorIndex, error) {
	if ms.main.ReadOnly() {
		return 0, ErrReadOnly
	}
	epb := ms.main.BigBlockSize().BATEntriesPerBlock()
	offset := 0
	for _, sbat := range ms.sbats {
		if sbat.HasFreeSectors() {
			for j := range epb {
				if sbat.ValueAt(j) == FreeSector {
					return SectorIndex(offset + j), nil
				}
			}
		}
		offset += epb
	}
	if err := ms.growSBAT(); err != nil {
		return 0, err
	}
	return SectorIndex(offset), nil
}

// growSBAT places a new SBAT block in a free big block and links it at the
// end of the SBAT chain. The header and the chain change only once the block
// has been written.
func (ms *MiniStore) growSBAT() error {
	sbat := CreateEmptyBATBlock(ms.main.BigBlockSize(), false)
	placed, err := ms.main.FreeBlock()
	if err != nil {
		return fmt.Errorf("cfb: place SBAT block: %w", err)
	}
	sbat.SetOurBlockIndex(placed)
	if _, err := ms.main.CreateBlockIfNeeded(placed); err != nil {
		return fmt.Errorf("cfb: place SBAT block: %w", err)
	}

	last := EndOfChain
	if ms.header.SBATCount() > 0 {
		if last, err = ms.lastSBATSector(); err != nil {
			return err
		}
	}
	if err := ms.main.WriteBlock(placed, sbat.Bytes()); err != nil {
		return err
	}
	if err := ms.main.SetNextBlock(placed, EndOfChain); err != nil {
		return err
	}
	if last == EndOfChain {
		ms.header.SetSBATStart(placed)
	} else if err := ms.main.SetNextBlock(last, placed); err != nil {
		_ = ms.main.SetNextBlock(placed, FreeSector)
		return err
	}
	ms.header.SetSBATCount(ms.header.SBATCount() + 1)
	ms.sbats = append(ms.sbats, sbat)
	logger.Debug("cfb: created SBAT block", "sector", placed, "sbats", len(ms.sbats))
	return nil
}

// lastSBATSector walks the SBAT chain, which lives in the main store's
// address space, to its final sector.
func (ms *MiniStore) lastSBATSector() (SectorIndex, error) {
	loop := ms.main.ChainLoopDetector()
	last := ms.header.SBATStart()
	for {
		if err := loop.Claim(last); err != nil {
			return 0, err
		}
		next, err := ms.main.NextBlock(last)
		if err != nil {
			return 0, err
		}
		if next == EndOfChain {
			return last, nil
		}
		last = next
	}
}

// BlockSize returns the mini block size.
func (ms *MiniStore) BlockSize() int { return MiniBlockSize }

// ChainLoopDetector returns a detector sized to the mini stream.
func (ms *MiniStore) ChainLoopDetector() *ChainLoopDetector {
	return NewChainLoopDetector(ms.root.Size(), MiniBlockSize)
}

// SyncWithDataSource writes every SBAT block back to its big block. The
// header fields it changed are written by the main store's sync.
func (ms *MiniStore) SyncWithDataSource() error {
	if ms.main.ReadOnly() {
		return ErrReadOnly
	}
	for _, sbat := range ms.sbats {
		if err := ms.main.syncTable(sbat); err != nil {
			return err
		}
	}
	logger.Debug("cfb: synced mini store", "sbats", len(ms.sbats))
	return nil
}
