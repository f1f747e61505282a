package cfb

import (
	"fmt"

	"github.com/joshuapare/cfbkit/internal/format"
)

// HeaderBlock owns the fixed-layout leading block of a container. It keeps a
// private copy of the raw bytes; setters mutate that copy and WriteData puts
// it back, so fields nobody touched round-trip unchanged.
type HeaderBlock struct {
	raw []byte
	bbs BigBlockSize
}

// NewHeaderBlock returns the header of an empty container: no BAT, no
// directory, no SBAT, no XBAT.
func NewHeaderBlock(bbs BigBlockSize) *HeaderBlock {
	return &HeaderBlock{raw: format.NewHeader(bbs.Shift()), bbs: bbs}
}

// ParseHeaderBlock validates and copies the header at the start of data.
func ParseHeaderBlock(data []byte) (*HeaderBlock, error) {
	if err := format.CheckHeader(data); err != nil {
		return nil, &FormatError{Field: "header", Message: "cannot open container", Cause: err}
	}
	bbs, err := BigBlockSizeForShift(format.ReadU16(data, format.HeaderSectorShiftOffset))
	if err != nil {
		return nil, err
	}
	raw := make([]byte, format.HeaderSize)
	copy(raw, data)
	h := &HeaderBlock{raw: raw, bbs: bbs}
	if c := h.MiniStreamCutoff(); c == 0 {
		return nil, &FormatError{Field: "mini stream cutoff", Message: "must be positive"}
	}
	return h, nil
}

// BigBlockSize returns the container's sector geometry.
func (h *HeaderBlock) BigBlockSize() BigBlockSize { return h.bbs }

func (h *HeaderBlock) u32(off int) uint32       { return format.ReadU32(h.raw, off) }
func (h *HeaderBlock) setU32(off int, v uint32) { format.PutU32(h.raw, off, v) }

// BATCount returns the number of main allocation-table sectors.
func (h *HeaderBlock) BATCount() int { return int(h.u32(format.HeaderBATCountOffset)) }

// SetBATCount records the number of main allocation-table sectors.
func (h *HeaderBlock) SetBATCount(n int) { h.setU32(format.HeaderBATCountOffset, uint32(n)) }

// BATArray returns the BAT sector indices held in the header itself, at
// most 109 of them.
func (h *HeaderBlock) BATArray() []SectorIndex {
	n := min(h.BATCount(), format.HeaderBATArrayLen)
	out := make([]SectorIndex, n)
	for i := range out {
		out[i] = format.SectorAt(h.raw[format.HeaderBATArrayOffset:], i)
	}
	return out
}

// SetBATArrayEntry stores the sector of the i-th BAT block in the header.
// It panics if i is not below 109.
func (h *HeaderBlock) SetBATArrayEntry(i int, s SectorIndex) {
	if i < 0 || i >= format.HeaderBATArrayLen {
		panic(fmt.Sprintf("cfb: header BAT array index %d out of range", i))
	}
	format.PutSectorAt(h.raw[format.HeaderBATArrayOffset:], i, s)
}

// PropertyStart returns the first sector of the directory stream.
func (h *HeaderBlock) PropertyStart() SectorIndex { return h.u32(format.HeaderPropertyStartOffset) }

// SetPropertyStart records the first sector of the directory stream.
func (h *HeaderBlock) SetPropertyStart(s SectorIndex) {
	h.setU32(format.HeaderPropertyStartOffset, s)
}

// SBATStart returns the first sector of the mini allocation table.
func (h *HeaderBlock) SBATStart() SectorIndex { return h.u32(format.HeaderSBATStartOffset) }

// SetSBATStart records the first sector of the mini allocation table.
func (h *HeaderBlock) SetSBATStart(s SectorIndex) { h.setU32(format.HeaderSBATStartOffset, s) }

// SBATCount returns the number of mini allocation-table sectors.
func (h *HeaderBlock) SBATCount() int { return int(h.u32(format.HeaderSBATCountOffset)) }

// SetSBATCount records the number of mini allocation-table sectors.
func (h *HeaderBlock) SetSBATCount(n int) { h.setU32(format.HeaderSBATCountOffset, uint32(n)) }

// XBATStart returns the first XBAT (DIFAT) sector.
func (h *HeaderBlock) XBATStart() SectorIndex { return h.u32(format.HeaderXBATStartOffset) }

// SetXBATStart records the first XBAT (DIFAT) sector.
func (h *HeaderBlock) SetXBATStart(s SectorIndex) { h.setU32(format.HeaderXBATStartOffset, s) }

// XBATCount returns the number of XBAT sectors.
func (h *HeaderBlock) XBATCount() int { return int(h.u32(format.HeaderXBATCountOffset)) }

// SetXBATCount records the number of XBAT sectors.
func (h *HeaderBlock) SetXBATCount(n int) { h.setU32(format.HeaderXBATCountOffset, uint32(n)) }

// MiniStreamCutoff returns the size below which streams live in the mini
// stream.
func (h *HeaderBlock) MiniStreamCutoff() int64 { return int64(h.u32(format.HeaderMiniCutoffOffset)) }

// WriteData copies the header bytes into dst[0:512].
func (h *HeaderBlock) WriteData(dst []byte) { copy(dst[:format.HeaderSize], h.raw) }

// Snapshot decodes the current header fields.
func (h *HeaderBlock) Snapshot() format.Header {
	// raw always passed CheckHeader or came from NewHeader.
	s, _ := format.ParseHeader(h.raw)
	return s
}
