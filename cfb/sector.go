package cfb

import (
	"fmt"

	"github.com/joshuapare/cfbkit/internal/format"
)

// SectorIndex identifies one block within a store. Values above
// MaxRegularSector are reserved markers.
type SectorIndex = uint32

// Reserved sector index values.
const (
	MaxRegularSector SectorIndex = format.MaxRegularSector
	DIFATSector      SectorIndex = format.DIFATSector
	FATSector        SectorIndex = format.FATSector
	EndOfChain       SectorIndex = format.EndOfChain
	FreeSector       SectorIndex = format.FreeSector
)

// MiniBlockSize is the block size of the mini store for every big block size.
const MiniBlockSize = format.SmallBlockSize

// IsRegular reports whether s can name a real sector.
func IsRegular(s SectorIndex) bool { return s <= MaxRegularSector }

// SectorName renders reserved markers by name and regular indices in decimal.
func SectorName(s SectorIndex) string {
	switch s {
	case DIFATSector:
		return "DIFAT"
	case FATSector:
		return "FAT"
	case EndOfChain:
		return "END_OF_CHAIN"
	case FreeSector:
		return "FREE"
	}
	if !IsRegular(s) {
		return fmt.Sprintf("RESERVED(0x%08X)", s)
	}
	return fmt.Sprintf("%d", s)
}

// BigBlockSize describes one of the two sector sizes a container may use and
// the allocation-table geometry derived from it.
type BigBlockSize struct {
	size  int
	shift uint16
}

var (
	// SmallerBigBlockSize is the 512-byte sector of version 3 files.
	SmallerBigBlockSize = BigBlockSize{size: format.SmallerBigBlockSize, shift: format.SmallerBigBlockShift}
	// LargerBigBlockSize is the 4096-byte sector of version 4 files.
	LargerBigBlockSize = BigBlockSize{size: format.LargerBigBlockSize, shift: format.LargerBigBlockShift}
)

// BigBlockSizeForShift returns the block size for a header sector shift.
func BigBlockSizeForShift(shift uint16) (BigBlockSize, error) {
	switch shift {
	case format.SmallerBigBlockShift:
		return SmallerBigBlockSize, nil
	case format.LargerBigBlockShift:
		return LargerBigBlockSize, nil
	}
	return BigBlockSize{}, &FormatError{Field: "sector shift", Message: fmt.Sprintf("unsupported value %d", shift)}
}

// Size returns the block size in bytes.
func (b BigBlockSize) Size() int { return b.size }

// Shift returns log2(Size()).
func (b BigBlockSize) Shift() uint16 { return b.shift }

// MajorVersion returns the header major version that pairs with this size.
func (b BigBlockSize) MajorVersion() uint16 {
	if b.shift == format.LargerBigBlockShift {
		return format.MajorVersion4
	}
	return format.MajorVersion3
}

// BATEntriesPerBlock is the number of sector indices one table block holds.
func (b BigBlockSize) BATEntriesPerBlock() int { return b.size / format.SectorIndexSize }

// XBATEntriesPerBlock is the number of BAT locations one XBAT block holds;
// its last slot is the link to the next XBAT block.
func (b BigBlockSize) XBATEntriesPerBlock() int { return b.BATEntriesPerBlock() - 1 }

// NextXBATChainOffset is the byte offset of the chain link in an XBAT block.
func (b BigBlockSize) NextXBATChainOffset() int { return b.XBATEntriesPerBlock() * format.SectorIndexSize }

// HeaderSpan is the number of bytes before sector 0: the header padded to
// one full sector.
func (b BigBlockSize) HeaderSpan() int64 { return int64(b.size) }

func (b BigBlockSize) String() string { return fmt.Sprintf("%d", b.size) }
