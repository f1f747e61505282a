package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int64.
func AddOverflowSafe(a, b int64) (int64, bool) {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return 0, false
	case b < 0 && a < math.MinInt64-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative values, returning ok = false on
// overflow or when either operand is negative. Sector arithmetic never needs
// signed products, so negative input is treated as a failure.
func MulOverflowSafe(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

// SectorSpan returns the byte range [start, end) occupied by the n-th
// fixed-size unit of size unit that follows a leading region of base bytes.
// It is the checked form of base + n*unit used to place sectors in a file.
func SectorSpan(base, n, unit int64) (start, end int64, err error) {
	off, ok := MulOverflowSafe(n, unit)
	if !ok {
		return 0, 0, fmt.Errorf("overflow: index=%d * unit=%d", n, unit)
	}
	start, ok = AddOverflowSafe(base, off)
	if !ok {
		return 0, 0, fmt.Errorf("overflow: base=%d + off=%d", base, off)
	}
	end, ok = AddOverflowSafe(start, unit)
	if !ok {
		return 0, 0, fmt.Errorf("overflow: start=%d + unit=%d", start, unit)
	}
	return start, end, nil
}

// CeilDiv returns ceil(n / d) for n >= 0 and d > 0.
func CeilDiv(n, d int64) int64 {
	if n <= 0 {
		return 0
	}
	return (n-1)/d + 1
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(int64(off), int64(n))
	if !ok || end > int64(len(b)) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
