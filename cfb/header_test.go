package cfb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cfbkit/internal/format"
)

func TestHeaderBlockRoundTrip(t *testing.T) {
	h := NewHeaderBlock(SmallerBigBlockSize)
	assert.Equal(t, 0, h.BATCount())
	assert.Equal(t, EndOfChain, h.PropertyStart())
	assert.Equal(t, EndOfChain, h.SBATStart())
	assert.Equal(t, EndOfChain, h.XBATStart())
	assert.Equal(t, int64(4096), h.MiniStreamCutoff())

	h.SetBATCount(2)
	h.SetBATArrayEntry(0, 0)
	h.SetBATArrayEntry(1, 128)
	h.SetPropertyStart(1)
	h.SetSBATStart(7)
	h.SetSBATCount(3)
	h.SetXBATStart(900)
	h.SetXBATCount(1)

	raw := make([]byte, 512)
	h.WriteData(raw)
	parsed, err := ParseHeaderBlock(raw)
	require.NoError(t, err)

	assert.Equal(t, []SectorIndex{0, 128}, parsed.BATArray())
	assert.Equal(t, SectorIndex(1), parsed.PropertyStart())
	assert.Equal(t, SectorIndex(7), parsed.SBATStart())
	assert.Equal(t, 3, parsed.SBATCount())
	assert.Equal(t, SectorIndex(900), parsed.XBATStart())
	assert.Equal(t, 1, parsed.XBATCount())
	assert.Equal(t, SmallerBigBlockSize, parsed.BigBlockSize())

	snap := parsed.Snapshot()
	assert.Equal(t, uint16(3), snap.MajorVersion)
	assert.Equal(t, uint32(2), snap.BATCount)
}

func TestHeaderBlockPreservesUntouchedBytes(t *testing.T) {
	raw := format.NewHeader(format.SmallerBigBlockShift)
	format.PutU32(raw, format.HeaderTxSignatureOffset, 0xCAFEBABE)

	h, err := ParseHeaderBlock(raw)
	require.NoError(t, err)
	h.SetSBATCount(1)

	out := make([]byte, 512)
	h.WriteData(out)
	assert.Equal(t, uint32(0xCAFEBABE), format.ReadU32(out, format.HeaderTxSignatureOffset))
}

func TestHeaderBlockBATArrayCappedAt109(t *testing.T) {
	h := NewHeaderBlock(SmallerBigBlockSize)
	h.SetBATCount(500)
	assert.Len(t, h.BATArray(), 109)
	assert.Panics(t, func() { h.SetBATArrayEntry(109, 0) })
}

func TestParseHeaderBlockErrors(t *testing.T) {
	t.Run("signature", func(t *testing.T) {
		raw := format.NewHeader(format.SmallerBigBlockShift)
		raw[0] = 0
		_, err := ParseHeaderBlock(raw)
		require.ErrorIs(t, err, ErrFormat)
		require.ErrorIs(t, err, format.ErrSignatureMismatch)
	})
	t.Run("truncated", func(t *testing.T) {
		_, err := ParseHeaderBlock(make([]byte, 100))
		require.ErrorIs(t, err, ErrFormat)
		require.ErrorIs(t, err, format.ErrTruncated)
	})
	t.Run("zero cutoff", func(t *testing.T) {
		raw := format.NewHeader(format.LargerBigBlockShift)
		format.PutU32(raw, format.HeaderMiniCutoffOffset, 0)
		_, err := ParseHeaderBlock(raw)
		var fe *FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "mini stream cutoff", fe.Field)
	})
}

func TestBigBlockSizeGeometry(t *testing.T) {
	assert.Equal(t, 128, SmallerBigBlockSize.BATEntriesPerBlock())
	assert.Equal(t, 127, SmallerBigBlockSize.XBATEntriesPerBlock())
	assert.Equal(t, 508, SmallerBigBlockSize.NextXBATChainOffset())
	assert.Equal(t, uint16(3), SmallerBigBlockSize.MajorVersion())
	assert.Equal(t, 1024, LargerBigBlockSize.BATEntriesPerBlock())
	assert.Equal(t, uint16(4), LargerBigBlockSize.MajorVersion())

	_, err := BigBlockSizeForShift(10)
	require.ErrorIs(t, err, ErrFormat)
}

func TestSectorName(t *testing.T) {
	assert.Equal(t, "FREE", SectorName(FreeSector))
	assert.Equal(t, "END_OF_CHAIN", SectorName(EndOfChain))
	assert.Equal(t, "FAT", SectorName(FATSector))
	assert.Equal(t, "DIFAT", SectorName(DIFATSector))
	assert.Equal(t, "RESERVED(0xFFFFFFFB)", SectorName(0xFFFFFFFB))
	assert.Equal(t, "42", SectorName(42))
}
