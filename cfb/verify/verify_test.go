package verify

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cfbkit/cfb"
	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/internal/testutil"
)

func sampleContainer(t *testing.T) []byte {
	t.Helper()
	return testutil.BuildContainer(t, cfb.SmallerBigBlockSize,
		testutil.Stream{Name: "Alpha", Data: []byte("alpha")},
		testutil.Stream{Name: "Beta", Data: bytes.Repeat([]byte{2}, 300)},
		testutil.Stream{Name: "Large", Data: bytes.Repeat([]byte{3}, 9000)},
	)
}

// sectorOffset returns the file offset of a 512-byte sector.
func sectorOffset(s cfb.SectorIndex) int { return int(s+1) * 512 }

func TestAllInvariants_Valid(t *testing.T) {
	require.NoError(t, AllInvariants(sampleContainer(t)))
	require.NoError(t, AllInvariants(testutil.BuildContainer(t, cfb.LargerBigBlockSize,
		testutil.Stream{Name: "x", Data: []byte{1}},
	)))
	require.NoError(t, AllInvariants(testutil.BuildContainer(t, cfb.SmallerBigBlockSize)))
}

func TestHeader_InvalidSignature(t *testing.T) {
	data := sampleContainer(t)
	copy(data, "XXXXXXXX")
	err := Header(data)
	require.Error(t, err)
	require.ErrorIs(t, err, format.ErrSignatureMismatch)
	assert.Contains(t, err.Error(), "Header")
}

func TestHeader_Length(t *testing.T) {
	data := sampleContainer(t)
	err := Header(data[:len(data)-1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whole 512-byte sectors")
}

func TestHeader_XBATCount(t *testing.T) {
	data := sampleContainer(t)
	format.PutU32(data, format.HeaderXBATCountOffset, 1)
	err := Header(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XBAT")

	data = sampleContainer(t)
	format.PutU32(data, format.HeaderBATCountOffset, 200)
	err = Header(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot list")
}

func TestHeader_Cutoff(t *testing.T) {
	data := sampleContainer(t)
	format.PutU32(data, format.HeaderMiniCutoffOffset, 1024)
	require.Error(t, Header(data))
}

func TestAllocationTables_BATNotMarked(t *testing.T) {
	data := sampleContainer(t)
	fs, err := cfb.OpenBytes(append([]byte(nil), data...))
	require.NoError(t, err)
	bat := fs.Main().BATBlocks()[0].OurBlockIndex()

	// Entry 0 of the first BAT describes the BAT itself.
	format.PutSectorAt(data[sectorOffset(bat):], int(bat), cfb.EndOfChain)
	errs := Collect(data)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "marked END_OF_CHAIN, expected FAT")
}

func TestAllocationTables_SuccessorBeyondTable(t *testing.T) {
	data := sampleContainer(t)
	fs, err := cfb.OpenBytes(append([]byte(nil), data...))
	require.NoError(t, err)
	e, ok := fs.Lookup("Large")
	require.True(t, ok)
	bat := fs.Main().BATBlocks()[0].OurBlockIndex()

	format.PutSectorAt(data[sectorOffset(bat):], int(e.StartBlock()), 100000)
	fs, err = cfb.OpenBytes(data)
	require.NoError(t, err)
	errs := AllocationTables(fs)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "beyond the 128 governed sectors")
}

func TestChains_LengthMismatch(t *testing.T) {
	data := sampleContainer(t)
	fs, err := cfb.OpenBytes(append([]byte(nil), data...))
	require.NoError(t, err)
	e, ok := fs.Lookup("Large")
	require.True(t, ok)

	// Shrink the declared size of Large in its directory entry.
	dir := sectorOffset(fs.Header().PropertyStart())
	format.PutU64(data, dir+int(e.Index)*format.DirEntrySize+format.DirSizeOffset, 5000)
	fs, err = cfb.OpenBytes(data)
	require.NoError(t, err)

	errs := Chains(fs)
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], cfb.ErrCorruptChain)
	assert.Contains(t, errs[0].Error(), `stream "Large" has 18 sectors, expected 10`)
	assert.True(t, IsCorruption(errs[0]))
}

func TestChains_SharedSector(t *testing.T) {
	data := sampleContainer(t)
	fs, err := cfb.OpenBytes(append([]byte(nil), data...))
	require.NoError(t, err)
	alpha, _ := fs.Lookup("Alpha")
	beta, _ := fs.Lookup("Beta")

	// Point Alpha (one mini block) at Beta's last mini block.
	sectors, err := cfb.NewStream(fs.Mini(), beta.StartBlock()).Sectors()
	require.NoError(t, err)
	dir := sectorOffset(fs.Header().PropertyStart())
	format.PutU32(data, dir+int(alpha.Index)*format.DirEntrySize+format.DirStartOffset, sectors[len(sectors)-1])

	fs, err = cfb.OpenBytes(data)
	require.NoError(t, err)
	errs := Chains(fs)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "belongs to both")
}

func TestChains_Loop(t *testing.T) {
	data := sampleContainer(t)
	fs, err := cfb.OpenBytes(append([]byte(nil), data...))
	require.NoError(t, err)
	e, _ := fs.Lookup("Large")
	sectors, err := cfb.NewStream(fs.Main(), e.StartBlock()).Sectors()
	require.NoError(t, err)

	bat := fs.Main().BATBlocks()[0].OurBlockIndex()
	last := sectors[len(sectors)-1]
	format.PutSectorAt(data[sectorOffset(bat):], int(last), sectors[0])

	err = AllInvariants(data)
	require.Error(t, err)
	require.ErrorIs(t, err, cfb.ErrCorruptChain)
}

func TestCollect_Unopenable(t *testing.T) {
	data := sampleContainer(t)
	format.PutU32(data, format.HeaderPropertyStartOffset, 4000)
	errs := Collect(data)
	require.Len(t, errs, 1)
	var ve *ValidationError
	require.True(t, errors.As(errs[0], &ve))
	assert.Equal(t, "Open", ve.Type)
	require.ErrorIs(t, errs[0], cfb.ErrOutOfRange)
}

func TestDirectory_UndecodableEntry(t *testing.T) {
	data := sampleContainer(t)
	fs, err := cfb.OpenBytes(append([]byte(nil), data...))
	require.NoError(t, err)
	entry := sectorOffset(fs.Header().PropertyStart()) + 2*format.DirEntrySize
	format.PutU16(data, entry+format.DirNameLenOffset, 3)

	errs := Collect(data)
	require.Len(t, errs, 1)
	var ve *ValidationError
	require.True(t, errors.As(errs[0], &ve))
	assert.Equal(t, "Directory", ve.Type)
	assert.Equal(t, entry, ve.Offset)
	assert.Contains(t, ve.Message, "entry 2 cannot be decoded")
}
