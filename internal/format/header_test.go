package format

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaderSuccess(t *testing.T) {
	buf := NewHeader(SmallerBigBlockShift)
	PutU32(buf, HeaderBATCountOffset, 2)
	PutU32(buf, HeaderBATArrayOffset, 0)
	PutU32(buf, HeaderBATArrayOffset+4, 7)
	PutU32(buf, HeaderPropertyStartOffset, 1)
	PutU32(buf, HeaderSBATStartOffset, 3)
	PutU32(buf, HeaderSBATCountOffset, 1)

	hdr, err := ParseHeader(buf)
	require.NoError(t, err)
	require.Equal(t, uint16(MajorVersion3), hdr.MajorVersion)
	require.Equal(t, 512, hdr.SectorSize())
	require.Equal(t, uint32(2), hdr.BATCount)
	require.Equal(t, []uint32{0, 7}, hdr.BATArray)
	require.Equal(t, uint32(1), hdr.PropertyStart)
	require.Equal(t, uint32(3), hdr.SBATStart)
	require.Equal(t, uint32(1), hdr.SBATCount)
	require.Equal(t, EndOfChain, hdr.XBATStart)
	require.Equal(t, uint32(MiniStreamCutoff), hdr.MiniStreamCutoff)
}

func TestParseHeaderLargeSectors(t *testing.T) {
	hdr, err := ParseHeader(NewHeader(LargerBigBlockShift))
	require.NoError(t, err)
	require.Equal(t, uint16(MajorVersion4), hdr.MajorVersion)
	require.Equal(t, 4096, hdr.SectorSize())
	require.Empty(t, hdr.BATArray)
}

func TestParseHeaderBATArrayCapped(t *testing.T) {
	buf := NewHeader(SmallerBigBlockShift)
	PutU32(buf, HeaderBATCountOffset, 500)
	hdr, err := ParseHeader(buf)
	require.NoError(t, err)
	require.Len(t, hdr.BATArray, HeaderBATArrayLen)
}

func TestParseHeaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"truncated", func(b []byte) []byte { return b[:10] }, ErrTruncated},
		{"bad signature", func(b []byte) []byte { copy(b, []byte("BAD!BAD!")); return b }, ErrSignatureMismatch},
		{"ooxml", func(b []byte) []byte { copy(b, []byte{'P', 'K', 3, 4}); return b }, ErrOOXML},
		{"byte order", func(b []byte) []byte { PutU16(b, HeaderByteOrderOffset, 0xFEFF); return b }, ErrBadField},
		{"shift mismatch", func(b []byte) []byte { PutU16(b, HeaderSectorShiftOffset, 12); return b }, ErrBadField},
		{"odd shift", func(b []byte) []byte { PutU16(b, HeaderSectorShiftOffset, 10); return b }, ErrBadField},
		{"mini shift", func(b []byte) []byte { PutU16(b, HeaderMiniShiftOffset, 7); return b }, ErrBadField},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseHeader(tc.mutate(NewHeader(SmallerBigBlockShift)))
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.want), "got %v, want %v", err, tc.want)
		})
	}
}
