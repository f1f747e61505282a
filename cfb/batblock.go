package cfb

import (
	"fmt"

	"github.com/joshuapare/cfbkit/internal/format"
)

// BATBlock is one sector interpreted as an array of sector indices. Entry i
// of the k-th table block of a store governs sector k*entriesPerBlock + i.
//
// An XBAT block uses the same layout, but its entries name BAT sectors and
// its last entry links to the next XBAT block.
type BATBlock struct {
	bbs           BigBlockSize
	values        []SectorIndex
	free          int
	isXBAT        bool
	ourBlockIndex SectorIndex
}

// CreateEmptyBATBlock returns a table block with every entry FREE. An XBAT
// block's chain link starts as END_OF_CHAIN.
func CreateEmptyBATBlock(bbs BigBlockSize, isXBAT bool) *BATBlock {
	b := &BATBlock{
		bbs:           bbs,
		values:        make([]SectorIndex, bbs.BATEntriesPerBlock()),
		isXBAT:        isXBAT,
		ourBlockIndex: FreeSector,
	}
	for i := range b.values {
		b.values[i] = FreeSector
	}
	b.free = len(b.values)
	if isXBAT {
		b.values[bbs.XBATEntriesPerBlock()] = EndOfChain
		b.free = bbs.XBATEntriesPerBlock()
	}
	return b
}

// CreateBATBlock decodes one sector of table data. data must hold at least
// bbs.Size() bytes.
func CreateBATBlock(bbs BigBlockSize, data []byte, isXBAT bool) *BATBlock {
	if len(data) < bbs.Size() {
		panic(fmt.Sprintf("cfb: BAT block data is %d bytes, need %d", len(data), bbs.Size()))
	}
	b := &BATBlock{
		bbs:           bbs,
		values:        make([]SectorIndex, bbs.BATEntriesPerBlock()),
		isXBAT:        isXBAT,
		ourBlockIndex: FreeSector,
	}
	format.DecodeSectorTable(b.values, data)
	b.recount()
	return b
}

func (b *BATBlock) recount() {
	b.free = 0
	for i := range b.governed() {
		if b.values[i] == FreeSector {
			b.free++
		}
	}
}

// governed is the number of entries that describe sectors rather than the
// XBAT chain link.
func (b *BATBlock) governed() int {
	if b.isXBAT {
		return b.bbs.XBATEntriesPerBlock()
	}
	return len(b.values)
}

func (b *BATBlock) checkIndex(i int) {
	if i < 0 || i >= len(b.values) {
		panic(fmt.Sprintf("cfb: BAT block index %d out of range [0,%d)", i, len(b.values)))
	}
}

// ValueAt returns entry i. It panics if i is outside the block.
func (b *BATBlock) ValueAt(i int) SectorIndex {
	b.checkIndex(i)
	return b.values[i]
}

// SetValueAt stores v in entry i. It panics if i is outside the block.
func (b *BATBlock) SetValueAt(i int, v SectorIndex) {
	b.checkIndex(i)
	old := b.values[i]
	b.values[i] = v
	if i >= b.governed() {
		return
	}
	if old == FreeSector {
		b.free--
	}
	if v == FreeSector {
		b.free++
	}
}

// HasFreeSectors reports whether any governed entry is FREE.
func (b *BATBlock) HasFreeSectors() bool { return b.free > 0 }

// FreeCount returns the number of FREE governed entries.
func (b *BATBlock) FreeCount() int { return b.free }

// UsedSectors returns the number of governed entries that are not FREE.
func (b *BATBlock) UsedSectors() int { return b.governed() - b.free }

// EntriesPerBlock returns the entry count, chain link included.
func (b *BATBlock) EntriesPerBlock() int { return len(b.values) }

// IsXBAT reports whether this block lists BAT locations.
func (b *BATBlock) IsXBAT() bool { return b.isXBAT }

// OurBlockIndex returns the sector this block is stored in, or FREE if it
// has not been placed yet.
func (b *BATBlock) OurBlockIndex() SectorIndex { return b.ourBlockIndex }

// SetOurBlockIndex records the sector this block is stored in.
func (b *BATBlock) SetOurBlockIndex(s SectorIndex) { b.ourBlockIndex = s }

// WriteData serializes the block into dst[0:Size].
func (b *BATBlock) WriteData(dst []byte) {
	format.EncodeSectorTable(dst, b.values)
}

// Bytes returns a serialized copy of the block.
func (b *BATBlock) Bytes() []byte {
	out := make([]byte, b.bbs.Size())
	b.WriteData(out)
	return out
}
