package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSectorTable(t *testing.T) {
	table := make([]byte, 16)
	EncodeSectorTable(table, []uint32{1, EndOfChain, FreeSector, FATSector})
	require.Equal(t, []byte{
		0x01, 0x00, 0x00, 0x00,
		0xFE, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF,
		0xFD, 0xFF, 0xFF, 0xFF,
	}, table)

	PutSectorAt(table, 2, DIFATSector)
	require.Equal(t, DIFATSector, SectorAt(table, 2))

	got := make([]uint32, 4)
	DecodeSectorTable(got, table)
	require.Equal(t, []uint32{1, EndOfChain, DIFATSector, FATSector}, got)
}

func TestFieldAccessors(t *testing.T) {
	b := make([]byte, 16)
	PutU16(b, 1, 0xFFFE)
	PutU32(b, 3, 0x01020304)
	PutU64(b, 7, 0x1122334455667788)
	require.Equal(t, uint16(0xFFFE), ReadU16(b, 1))
	require.Equal(t, uint32(0x01020304), ReadU32(b, 3))
	require.Equal(t, uint64(0x1122334455667788), ReadU64(b, 7))
	require.Equal(t, byte(0xFE), b[1], "little-endian")
}
