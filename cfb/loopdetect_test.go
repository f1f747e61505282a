package cfb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainLoopDetector_CycleFailsByNPlusOneClaims(t *testing.T) {
	for _, n := range []int{1, 2, 3, 17, 200} {
		t.Run(fmt.Sprintf("cycle_%d", n), func(t *testing.T) {
			d := NewChainLoopDetector(int64(n)*512, 512)

			// Follow a cycle 0 -> 1 -> ... -> n-1 -> 0 until the detector stops it.
			var claims int
			var err error
			for sector := SectorIndex(0); ; sector = (sector + 1) % SectorIndex(n) {
				claims++
				if err = d.Claim(sector); err != nil {
					break
				}
				require.LessOrEqual(t, claims, n+1)
			}
			assert.Equal(t, n+1, claims)
			assert.True(t, errors.Is(err, ErrCorruptChain))
			assert.True(t, d.Failed())
			assert.Equal(t, n, d.Claims())
		})
	}
}

func TestChainLoopDetector_FailedIsTerminal(t *testing.T) {
	d := NewChainLoopDetector(4096, 512)
	require.NoError(t, d.Claim(3))
	require.Error(t, d.Claim(3))

	err := d.Claim(4)
	var cce *CorruptChainError
	require.ErrorAs(t, err, &cce)
	assert.Equal(t, SectorIndex(3), cce.Sector)
}

func TestChainLoopDetector_BeyondCapacity(t *testing.T) {
	d := NewChainLoopDetector(512, 512)
	require.NoError(t, d.Claim(1))
	require.NoError(t, d.Claim(0xFFFF0000))
	require.NoError(t, d.Claim(1000))
	require.ErrorIs(t, d.Claim(0xFFFF0000), ErrCorruptChain)
}

func TestChainLoopDetector_ZeroSize(t *testing.T) {
	d := NewChainLoopDetector(0, 64)
	require.NoError(t, d.Claim(0))
	require.ErrorIs(t, d.Claim(0), ErrCorruptChain)
}

func TestChainLoopDetector_BadBlockSizePanics(t *testing.T) {
	assert.Panics(t, func() { NewChainLoopDetector(100, 0) })
}
