package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt64, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt64")
	}
	if _, ok := AddOverflowSafe(math.MinInt64, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt64")
	}
}

func TestMulOverflowSafe(t *testing.T) {
	if p, ok := MulOverflowSafe(512, 8); !ok || p != 4096 {
		t.Fatalf("MulOverflowSafe(512,8)=%d,%v", p, ok)
	}
	if p, ok := MulOverflowSafe(0, math.MaxInt64); !ok || p != 0 {
		t.Fatalf("zero operand should be ok, got %d,%v", p, ok)
	}
	if _, ok := MulOverflowSafe(math.MaxInt64/2, 3); ok {
		t.Fatalf("expected overflow")
	}
	if _, ok := MulOverflowSafe(-1, 3); ok {
		t.Fatalf("negative operand must fail")
	}
}

func TestSectorSpan(t *testing.T) {
	start, end, err := SectorSpan(512, 3, 512)
	if err != nil {
		t.Fatalf("SectorSpan: %v", err)
	}
	if start != 2048 || end != 2560 {
		t.Fatalf("SectorSpan = [%d,%d), want [2048,2560)", start, end)
	}
	if _, _, err := SectorSpan(512, math.MaxInt64/2, 512); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestCeilDiv(t *testing.T) {
	cases := []struct{ n, d, want int64 }{
		{0, 64, 0},
		{1, 64, 1},
		{64, 64, 1},
		{65, 64, 2},
		{4096, 512, 8},
		{-3, 64, 0},
	}
	for _, c := range cases {
		if got := CeilDiv(c.n, c.d); got != c.want {
			t.Fatalf("CeilDiv(%d,%d)=%d want %d", c.n, c.d, got, c.want)
		}
	}
}

func TestSliceAndHas(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	if got, ok := Slice(data, 1, 3); !ok || len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Slice returned unexpected result: %v, %v", got, ok)
	}
	if _, ok := Slice(data, 4, 2); ok {
		t.Fatalf("Slice should fail when extending beyond len")
	}
	if Has(data, 2, 4) {
		t.Fatalf("Has should be false for out-of-bounds range")
	}
	if !Has(data, 2, 1) {
		t.Fatalf("Has should be true for valid range")
	}

	if _, ok := Slice(data, -1, 1); ok {
		t.Fatalf("Slice should reject negative offset")
	}
	if _, ok := Slice(data, 1, -1); ok {
		t.Fatalf("Slice should reject negative length")
	}
}
