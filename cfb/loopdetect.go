package cfb

import "github.com/joshuapare/cfbkit/internal/buf"

// ChainLoopDetector records the sectors claimed during one chain traversal
// and fails the moment one repeats. Once failed it stays failed.
//
// Sectors below the capacity hint are tracked in a bitset; anything above
// spills into a map, so a hostile index costs at most one map entry.
type ChainLoopDetector struct {
	bits     []uint64
	capacity int64
	overflow map[SectorIndex]struct{}
	claims   int
	failed   *CorruptChainError
}

// chainLoopSlack covers the header sector and a partially used last block.
const chainLoopSlack = 1

// NewChainLoopDetector sizes a detector for a region of rawSize bytes split
// into blockSize blocks.
func NewChainLoopDetector(rawSize int64, blockSize int) *ChainLoopDetector {
	if blockSize <= 0 {
		panic("cfb: loop detector block size must be positive")
	}
	capacity := buf.CeilDiv(max(rawSize, 0), int64(blockSize)) + chainLoopSlack
	return &ChainLoopDetector{
		bits:     make([]uint64, (capacity+63)/64),
		capacity: capacity,
	}
}

// Claim records offset as visited. Claiming a sector twice, or claiming
// anything after a failure, returns a *CorruptChainError.
func (d *ChainLoopDetector) Claim(offset SectorIndex) error {
	if d.failed != nil {
		return d.failed
	}
	if d.seen(offset) {
		d.failed = &CorruptChainError{
			Sector:  offset,
			Message: "sector already claimed by this chain (potential loop)",
		}
		return d.failed
	}
	d.claims++
	return nil
}

// seen marks offset and reports whether it was already marked.
func (d *ChainLoopDetector) seen(offset SectorIndex) bool {
	if int64(offset) < d.capacity {
		word, bit := offset/64, uint64(1)<<(offset%64)
		if d.bits[word]&bit != 0 {
			return true
		}
		d.bits[word] |= bit
		return false
	}
	if d.overflow == nil {
		d.overflow = make(map[SectorIndex]struct{})
	}
	if _, ok := d.overflow[offset]; ok {
		return true
	}
	d.overflow[offset] = struct{}{}
	return false
}

// Claims returns the number of successful claims.
func (d *ChainLoopDetector) Claims() int { return d.claims }

// Failed reports whether a repeated claim has been observed.
func (d *ChainLoopDetector) Failed() bool { return d.failed != nil }
