package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/cfbkit/internal/buf"
)

// Header is a decoded snapshot of the container header. The diagram below
// lists the fields that matter for sector addressing.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   8    D0 CF 11 E0 A1 B1 1A E1
//	 0x018   2    Minor version (0x3E)
//	 0x01A   2    Major version (3 = 512-byte sectors, 4 = 4096-byte sectors)
//	 0x01C   2    Byte order mark (0xFFFE)
//	 0x01E   2    Sector shift (9 or 12)
//	 0x020   2    Mini sector shift (6)
//	 0x02C   4    Number of BAT sectors
//	 0x030   4    First directory (property table) sector
//	 0x038   4    Mini stream cutoff (4096)
//	 0x03C   4    First SBAT (mini FAT) sector
//	 0x040   4    Number of SBAT sectors
//	 0x044   4    First XBAT (DIFAT) sector
//	 0x048   4    Number of XBAT sectors
//	 0x04C 436    First 109 BAT sector indices
//
// All fields are little-endian.
type Header struct {
	MinorVersion     uint16   `json:"minor_version"`
	MajorVersion     uint16   `json:"major_version"`
	SectorShift      uint16   `json:"sector_shift"`
	MiniSectorShift  uint16   `json:"mini_sector_shift"`
	BATCount         uint32   `json:"bat_count"`
	PropertyStart    uint32   `json:"property_start"`
	MiniStreamCutoff uint32   `json:"mini_stream_cutoff"`
	SBATStart        uint32   `json:"sbat_start"`
	SBATCount        uint32   `json:"sbat_count"`
	XBATStart        uint32   `json:"xbat_start"`
	XBATCount        uint32   `json:"xbat_count"`
	BATArray         []uint32 `json:"bat_array"`
}

// SectorSize returns 1 << SectorShift.
func (h Header) SectorSize() int { return 1 << h.SectorShift }

// ParseHeader validates and extracts the header fields. The BATArray holds
// only the first min(BATCount, 109) entries.
func ParseHeader(b []byte) (Header, error) {
	if err := CheckHeader(b); err != nil {
		return Header{}, err
	}
	h := Header{
		MinorVersion:     ReadU16(b, HeaderMinorVersionOffset),
		MajorVersion:     ReadU16(b, HeaderMajorVersionOffset),
		SectorShift:      ReadU16(b, HeaderSectorShiftOffset),
		MiniSectorShift:  ReadU16(b, HeaderMiniShiftOffset),
		BATCount:         ReadU32(b, HeaderBATCountOffset),
		PropertyStart:    ReadU32(b, HeaderPropertyStartOffset),
		MiniStreamCutoff: ReadU32(b, HeaderMiniCutoffOffset),
		SBATStart:        ReadU32(b, HeaderSBATStartOffset),
		SBATCount:        ReadU32(b, HeaderSBATCountOffset),
		XBATStart:        ReadU32(b, HeaderXBATStartOffset),
		XBATCount:        ReadU32(b, HeaderXBATCountOffset),
	}
	n := min(int(h.BATCount), HeaderBATArrayLen)
	h.BATArray = make([]uint32, n)
	for i := range n {
		h.BATArray[i] = SectorAt(b[HeaderBATArrayOffset:], i)
	}
	return h, nil
}

// CheckHeader performs the checks that decide whether b can be opened at all:
// length, signature, byte order, and a sector shift pair this package can
// address. Every failure wraps ErrTruncated, ErrSignatureMismatch, ErrOOXML,
// or ErrBadField.
func CheckHeader(b []byte) error {
	if !buf.Has(b, 0, HeaderSize) {
		return fmt.Errorf("header: %w (have %d bytes, need %d)", ErrTruncated, len(b), HeaderSize)
	}
	if bytes.HasPrefix(b, OOXMLSignature) {
		return fmt.Errorf("header: %w", ErrOOXML)
	}
	if !bytes.Equal(b[:HeaderSignatureSize], Signature) {
		return fmt.Errorf("header: %w", ErrSignatureMismatch)
	}
	if bom := ReadU16(b, HeaderByteOrderOffset); bom != HeaderByteOrderMark {
		return fmt.Errorf("header: %w: byte order 0x%04X", ErrBadField, bom)
	}
	major := ReadU16(b, HeaderMajorVersionOffset)
	shift := ReadU16(b, HeaderSectorShiftOffset)
	switch {
	case major == MajorVersion3 && shift == SmallerBigBlockShift:
	case major == MajorVersion4 && shift == LargerBigBlockShift:
	default:
		return fmt.Errorf("header: %w: major version %d with sector shift %d", ErrBadField, major, shift)
	}
	if ms := ReadU16(b, HeaderMiniShiftOffset); ms != SmallBlockShift {
		return fmt.Errorf("header: %w: mini sector shift %d", ErrBadField, ms)
	}
	return nil
}

// NewHeader returns the raw bytes of an empty header for the given sector
// shift: no BAT sectors yet, no directory, no SBAT, no XBAT.
func NewHeader(sectorShift uint16) []byte {
	b := make([]byte, HeaderSize)
	copy(b, Signature)
	PutU16(b, HeaderMinorVersionOffset, HeaderMinorVersion)
	major := uint16(MajorVersion3)
	if sectorShift == LargerBigBlockShift {
		major = MajorVersion4
	}
	PutU16(b, HeaderMajorVersionOffset, major)
	PutU16(b, HeaderByteOrderOffset, HeaderByteOrderMark)
	PutU16(b, HeaderSectorShiftOffset, sectorShift)
	PutU16(b, HeaderMiniShiftOffset, SmallBlockShift)
	PutU32(b, HeaderPropertyStartOffset, EndOfChain)
	PutU32(b, HeaderMiniCutoffOffset, MiniStreamCutoff)
	PutU32(b, HeaderSBATStartOffset, EndOfChain)
	PutU32(b, HeaderXBATStartOffset, EndOfChain)
	for i := range HeaderBATArrayLen {
		PutSectorAt(b[HeaderBATArrayOffset:], i, FreeSector)
	}
	return b
}
