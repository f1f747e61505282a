package format

import "encoding/binary"

var le = binary.LittleEndian

// Field accessors for the fixed offsets in consts.go. Callers check lengths
// first; a short buffer panics like any slice expression.

func ReadU16(b []byte, off int) uint16 { return le.Uint16(b[off:]) }
func ReadU32(b []byte, off int) uint32 { return le.Uint32(b[off:]) }
func ReadU64(b []byte, off int) uint64 { return le.Uint64(b[off:]) }

func PutU16(b []byte, off int, v uint16) { le.PutUint16(b[off:], v) }
func PutU32(b []byte, off int, v uint32) { le.PutUint32(b[off:], v) }
func PutU64(b []byte, off int, v uint64) { le.PutUint64(b[off:], v) }

// SectorAt returns entry i of an allocation table sector: the successor of
// the i-th sector it governs, or a sentinel.
func SectorAt(table []byte, i int) uint32 {
	return le.Uint32(table[i*SectorIndexSize:])
}

// PutSectorAt sets entry i of an allocation table sector.
func PutSectorAt(table []byte, i int, v uint32) {
	le.PutUint32(table[i*SectorIndexSize:], v)
}

// DecodeSectorTable reads every whole entry of an allocation table sector
// (BAT, SBAT, or XBAT) into dst, which must hold len(table)/4 values.
func DecodeSectorTable(dst []uint32, table []byte) {
	for i := range dst {
		dst[i] = SectorAt(table, i)
	}
}

// EncodeSectorTable writes values as consecutive entries starting at
// table[0].
func EncodeSectorTable(table []byte, values []uint32) {
	for i, v := range values {
		PutSectorAt(table, i, v)
	}
}
