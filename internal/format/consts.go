// Package format houses the on-disk layout of compound binary container files:
// header field offsets, sector sentinels, and directory entry offsets. The
// decoders here stay independent from the engine in package cfb so that
// validators and tools can share one definition of the layout.
package format

// Signature is the eight-byte magic at the start of every container.
// Layout (little-endian uint64 0xE11AB1A1E011CFD0):
//
//	0x00  D0 CF 11 E0 A1 B1 1A E1
var Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// OOXMLSignature is the leading PK\x03\x04 of a zip-based Office file. Seeing
// it where a container header should be gets a more useful error.
var OOXMLSignature = []byte{0x50, 0x4B, 0x03, 0x04}

// ============================================================================
// Sector sizes
// ============================================================================.
const (
	// SmallerBigBlockSize is the 512-byte sector of major version 3 files.
	SmallerBigBlockSize = 0x0200
	// SmallerBigBlockShift is log2(SmallerBigBlockSize).
	SmallerBigBlockShift = 9

	// LargerBigBlockSize is the 4096-byte sector of major version 4 files.
	LargerBigBlockSize = 0x1000
	// LargerBigBlockShift is log2(LargerBigBlockSize).
	LargerBigBlockShift = 12

	// SmallBlockSize is the mini sector size. It is the same for both versions.
	SmallBlockSize = 0x0040
	// SmallBlockShift is log2(SmallBlockSize).
	SmallBlockShift = 6

	// MiniStreamCutoff is the default size below which a stream lives in the
	// mini stream. Streams at or above it are big-block chains.
	MiniStreamCutoff = 0x1000

	// SectorIndexSize is the width of one allocation table entry.
	SectorIndexSize = 4
)

// ============================================================================
// Sector index sentinels
// ============================================================================.
const (
	// MaxRegularSector is the highest index that may name a real sector.
	MaxRegularSector uint32 = 0xFFFFFFFA

	// DIFATSector marks a sector holding part of the extended BAT list (XBAT).
	DIFATSector uint32 = 0xFFFFFFFC

	// FATSector marks a sector holding allocation table entries.
	FATSector uint32 = 0xFFFFFFFD

	// EndOfChain terminates a chain.
	EndOfChain uint32 = 0xFFFFFFFE

	// FreeSector marks an unused sector.
	FreeSector uint32 = 0xFFFFFFFF
)

// ============================================================================
// Header
// ============================================================================
// The header occupies the first 512 bytes of the file. In 4096-byte sector
// files the rest of sector -1 is zero padding.
const (
	HeaderSignatureOffset     = 0x00 // [8]byte
	HeaderSignatureSize       = 8
	HeaderCLSIDOffset         = 0x08 // [16]byte, must be zero
	HeaderMinorVersionOffset  = 0x18 // uint16, 0x003E
	HeaderMajorVersionOffset  = 0x1A // uint16, 3 or 4
	HeaderByteOrderOffset     = 0x1C // uint16, 0xFFFE
	HeaderSectorShiftOffset   = 0x1E // uint16, 9 or 12
	HeaderMiniShiftOffset     = 0x20 // uint16, 6
	HeaderReservedOffset      = 0x22 // [6]byte
	HeaderDirSectorsOffset    = 0x28 // uint32, zero for version 3
	HeaderBATCountOffset      = 0x2C // uint32, number of BAT sectors
	HeaderPropertyStartOffset = 0x30 // uint32, first directory sector
	HeaderTxSignatureOffset   = 0x34 // uint32
	HeaderMiniCutoffOffset    = 0x38 // uint32, 4096
	HeaderSBATStartOffset     = 0x3C // uint32, first mini FAT sector
	HeaderSBATCountOffset     = 0x40 // uint32, number of mini FAT sectors
	HeaderXBATStartOffset     = 0x44 // uint32, first DIFAT sector
	HeaderXBATCountOffset     = 0x48 // uint32, number of DIFAT sectors
	HeaderBATArrayOffset      = 0x4C // [109]uint32

	// HeaderBATArrayLen is how many BAT sector indices fit in the header.
	HeaderBATArrayLen = 109

	// HeaderSize is the number of meaningful header bytes.
	HeaderSize = 0x200

	// HeaderByteOrderMark is the only byte order value ever written.
	HeaderByteOrderMark = 0xFFFE

	// HeaderMinorVersion is the conventional minor version.
	HeaderMinorVersion = 0x003E

	// MajorVersion3 uses 512-byte sectors, MajorVersion4 uses 4096-byte sectors.
	MajorVersion3 = 3
	MajorVersion4 = 4
)

// ============================================================================
// Directory entries
// ============================================================================
// Each directory sector is an array of 128-byte entries. Only the fields the
// engine and tools consume are named here.
const (
	DirEntrySize = 0x80

	DirNameOffset      = 0x00 // [64]byte UTF-16LE, NUL terminated
	DirNameMaxBytes    = 64
	DirNameLenOffset   = 0x40 // uint16, byte length including the NUL
	DirTypeOffset      = 0x42 // uint8
	DirColorOffset     = 0x43 // uint8
	DirLeftOffset      = 0x44 // uint32
	DirRightOffset     = 0x48 // uint32
	DirChildOffset     = 0x4C // uint32
	DirCLSIDOffset     = 0x50 // [16]byte
	DirStateOffset     = 0x60 // uint32
	DirCreatedOffset   = 0x64 // FILETIME
	DirModifiedOffset  = 0x6C // FILETIME
	DirStartOffset     = 0x74 // uint32
	DirSizeOffset      = 0x78 // uint64; high half ignored in version 3

	// DirNoStream is the empty link value for Left/Right/Child.
	DirNoStream uint32 = 0xFFFFFFFF
)

// Directory entry object types.
const (
	DirTypeEmpty   = 0x00
	DirTypeStorage = 0x01
	DirTypeStream  = 0x02
	DirTypeRoot    = 0x05

	// DirTypeInvalid is never written. DecodeDirectory gives it to entries
	// that fail to decode.
	DirTypeInvalid = 0xFF
)
