package format

import (
	"fmt"
	"time"

	"golang.org/x/text/encoding/unicode"

	"github.com/joshuapare/cfbkit/internal/buf"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DirEntry is one decoded 128-byte directory entry. The engine only consumes
// the start sector and size; the name and tree links are kept for tools.
type DirEntry struct {
	Index       uint32    `json:"index"`
	Name        string    `json:"name"`
	Type        uint8     `json:"type"`
	Left        uint32    `json:"left"`
	Right       uint32    `json:"right"`
	Child       uint32    `json:"child"`
	Created     time.Time `json:"created,omitzero"`
	Modified    time.Time `json:"modified,omitzero"`
	StreamStart uint32    `json:"start"`
	StreamSize  int64     `json:"size"`

	// Problem is set on DirTypeInvalid entries.
	Problem string `json:"problem,omitempty"`
}

// StartBlock returns the first sector of the entry's stream.
func (e DirEntry) StartBlock() uint32 { return e.StreamStart }

// Size returns the declared byte length of the entry's stream.
func (e DirEntry) Size() int64 { return e.StreamSize }

// IsStream reports whether the entry names a stream.
func (e DirEntry) IsStream() bool { return e.Type == DirTypeStream }

// IsRoot reports whether the entry is the root storage, whose stream is the
// mini stream.
func (e DirEntry) IsRoot() bool { return e.Type == DirTypeRoot }

// TypeName returns a short label for the entry type.
func (e DirEntry) TypeName() string {
	switch e.Type {
	case DirTypeEmpty:
		return "empty"
	case DirTypeStorage:
		return "storage"
	case DirTypeStream:
		return "stream"
	case DirTypeRoot:
		return "root"
	case DirTypeInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("unknown(%d)", e.Type)
	}
}

// DecodeDirEntry decodes the entry at b[0:128]. Version 3 files only define
// the low 32 bits of the size field; the high half is ignored for them.
func DecodeDirEntry(b []byte, index uint32, majorVersion uint16) (DirEntry, error) {
	raw, ok := buf.Slice(b, 0, DirEntrySize)
	if !ok {
		return DirEntry{}, fmt.Errorf("dir entry %d: %w", index, ErrTruncated)
	}
	nameLen := int(ReadU16(raw, DirNameLenOffset))
	if nameLen > DirNameMaxBytes || nameLen%2 != 0 {
		return DirEntry{}, fmt.Errorf("dir entry %d: %w: name length %d", index, ErrBadField, nameLen)
	}
	name, err := decodeName(raw[DirNameOffset : DirNameOffset+nameLen])
	if err != nil {
		return DirEntry{}, fmt.Errorf("dir entry %d: name: %w", index, err)
	}
	size := ReadU64(raw, DirSizeOffset)
	if majorVersion == MajorVersion3 {
		size &= 0xFFFFFFFF
	}
	if size > 1<<62 {
		return DirEntry{}, fmt.Errorf("dir entry %d: %w: size %d", index, ErrBadField, size)
	}
	return DirEntry{
		Index:       index,
		Name:        name,
		Type:        raw[DirTypeOffset],
		Left:        ReadU32(raw, DirLeftOffset),
		Right:       ReadU32(raw, DirRightOffset),
		Child:       ReadU32(raw, DirChildOffset),
		Created:     FiletimeToTime(ReadU64(raw, DirCreatedOffset)),
		Modified:    FiletimeToTime(ReadU64(raw, DirModifiedOffset)),
		StreamStart: ReadU32(raw, DirStartOffset),
		StreamSize:  int64(size),
	}, nil
}

// DecodeDirectory decodes every entry in a directory stream. A trailing
// partial entry is ignored. Only a bad root entry (index 0) is an error; any
// other entry that fails to decode comes back as DirTypeInvalid with the
// reason in Problem, so the rest of the directory stays usable.
func DecodeDirectory(stream []byte, majorVersion uint16) ([]DirEntry, error) {
	n := len(stream) / DirEntrySize
	out := make([]DirEntry, 0, n)
	for i := range n {
		e, err := DecodeDirEntry(stream[i*DirEntrySize:], uint32(i), majorVersion)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			e = DirEntry{
				Index:       uint32(i),
				Type:        DirTypeInvalid,
				Left:        DirNoStream,
				Right:       DirNoStream,
				Child:       DirNoStream,
				StreamStart: EndOfChain,
				Problem:     err.Error(),
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// EncodeDirEntry writes e into b[0:128]. The name must fit in 31 UTF-16 code
// units plus the terminating NUL.
func EncodeDirEntry(b []byte, e DirEntry) error {
	raw, ok := buf.Slice(b, 0, DirEntrySize)
	if !ok {
		return fmt.Errorf("dir entry %d: %w", e.Index, ErrTruncated)
	}
	name, err := utf16le.NewEncoder().Bytes([]byte(e.Name))
	if err != nil {
		return fmt.Errorf("dir entry %d: name: %w", e.Index, err)
	}
	if len(name)+2 > DirNameMaxBytes {
		return fmt.Errorf("dir entry %d: %w: name %q too long", e.Index, ErrBadField, e.Name)
	}
	clear(raw)
	copy(raw[DirNameOffset:], name)
	nameLen := 0
	if e.Name != "" || e.Type != DirTypeEmpty {
		nameLen = len(name) + 2
	}
	PutU16(raw, DirNameLenOffset, uint16(nameLen))
	raw[DirTypeOffset] = e.Type
	raw[DirColorOffset] = 1 // black
	PutU32(raw, DirLeftOffset, e.Left)
	PutU32(raw, DirRightOffset, e.Right)
	PutU32(raw, DirChildOffset, e.Child)
	PutU64(raw, DirCreatedOffset, TimeToFiletime(e.Created))
	PutU64(raw, DirModifiedOffset, TimeToFiletime(e.Modified))
	PutU32(raw, DirStartOffset, e.StreamStart)
	PutU64(raw, DirSizeOffset, uint64(e.StreamSize))
	return nil
}

func decodeName(b []byte) (string, error) {
	if len(b) >= 2 && b[len(b)-1] == 0 && b[len(b)-2] == 0 {
		b = b[:len(b)-2]
	}
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
