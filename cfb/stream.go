package cfb

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/cfbkit/internal/buf"
)

// Stream is one chain of blocks in a BlockStore, identified by its start
// sector. A stream with no blocks starts at END_OF_CHAIN.
type Stream struct {
	store BlockStore
	start SectorIndex
}

// NewStream returns the stream whose chain begins at start.
func NewStream(store BlockStore, start SectorIndex) *Stream {
	return &Stream{store: store, start: start}
}

// StartBlock returns the first sector, which changes when Update allocates
// the first block of an empty stream or Free releases the chain.
func (s *Stream) StartBlock() SectorIndex { return s.start }

// Store returns the store the chain lives in.
func (s *Stream) Store() BlockStore { return s.store }

// Blocks returns an iterator over the stream's blocks in chain order.
func (s *Stream) Blocks() *BlockIterator {
	return &BlockIterator{
		store:    s.store,
		next:     s.start,
		current:  EndOfChain,
		detector: s.store.ChainLoopDetector(),
	}
}

// BlockIterator walks a chain one block at a time. Every step is claimed in
// a ChainLoopDetector, so a cyclic chain fails instead of looping.
//
// Usage:
//
//	it := stream.Blocks()
//	for {
//	    blk, err := it.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    // use blk
//	}
type BlockIterator struct {
	store    BlockStore
	next     SectorIndex
	current  SectorIndex
	detector *ChainLoopDetector
	err      error
}

// Next returns the next block, or io.EOF once END_OF_CHAIN is reached.
// After any other error the iterator keeps returning it.
func (it *BlockIterator) Next() ([]byte, error) {
	sector, err := it.advance()
	if err != nil {
		return nil, err
	}
	blk, err := it.store.BlockAt(sector)
	if err != nil {
		it.err = err
		return nil, err
	}
	return blk, nil
}

// NextSector is Next without reading the block.
func (it *BlockIterator) NextSector() (SectorIndex, error) {
	return it.advance()
}

func (it *BlockIterator) advance() (SectorIndex, error) {
	if it.err != nil {
		return EndOfChain, it.err
	}
	if it.next == EndOfChain {
		return EndOfChain, io.EOF
	}
	if !IsRegular(it.next) {
		it.err = &CorruptChainError{
			Sector:  it.current,
			Message: fmt.Sprintf("chain continues into %s", SectorName(it.next)),
		}
		return EndOfChain, it.err
	}
	if err := it.detector.Claim(it.next); err != nil {
		it.err = err
		return EndOfChain, err
	}
	it.current = it.next
	next, err := it.store.NextBlock(it.current)
	if err != nil {
		it.err = err
		return EndOfChain, err
	}
	it.next = next
	return it.current, nil
}

// Sector returns the sector of the block last returned, or END_OF_CHAIN
// before the first call.
func (it *BlockIterator) Sector() SectorIndex { return it.current }

// Sectors walks the chain without reading block contents.
func (s *Stream) Sectors() ([]SectorIndex, error) {
	var out []SectorIndex
	it := s.Blocks()
	for {
		sector, err := it.NextSector()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, sector)
	}
}

// ReadAll returns the first size bytes of the stream. The chain must hold
// exactly ceil(size / block size) blocks.
func (s *Stream) ReadAll(size int64) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("cfb: negative stream size %d", size)
	}
	bs := int64(s.store.BlockSize())
	want := buf.CeilDiv(size, bs)
	// The declared size is untrusted; let append grow past the first MiB.
	out := make([]byte, 0, min(size, 1<<20))
	it := s.Blocks()
	var got int64
	for {
		blk, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		got++
		if got > want {
			return nil, &CorruptChainError{
				Sector:  it.Sector(),
				Message: fmt.Sprintf("chain is longer than the %d blocks its size of %d bytes needs", want, size),
			}
		}
		out = append(out, blk[:min(bs, size-int64(len(out)))]...)
	}
	if got < want {
		return nil, &CorruptChainError{
			Sector:  it.Sector(),
			Message: fmt.Sprintf("chain ends after %d of %d blocks", got, want),
		}
	}
	return out, nil
}

// Update replaces the stream contents with data. Existing blocks are reused
// in order, missing ones are allocated from the store, and surplus ones are
// freed. Every block is in place before any data is written; on failure the
// newly allocated blocks are released and the chain is left as it was.
func (s *Stream) Update(data []byte) error {
	existing, err := s.Sectors()
	if err != nil {
		return err
	}
	bs := s.store.BlockSize()
	needed := int(buf.CeilDiv(int64(len(data)), int64(bs)))

	sectors, err := s.reserve(existing, needed)
	if err != nil {
		return err
	}
	for i, sector := range sectors {
		chunk := data[i*bs : min((i+1)*bs, len(data))]
		if err := s.store.WriteBlock(sector, chunk); err != nil {
			return err
		}
	}

	if needed == 0 {
		s.start = EndOfChain
	} else if err := s.store.SetNextBlock(sectors[needed-1], EndOfChain); err != nil {
		return err
	}
	for _, sector := range existing[min(needed, len(existing)):] {
		if err := s.store.SetNextBlock(sector, FreeSector); err != nil {
			return err
		}
	}
	return nil
}

// reserve returns the first needed blocks of the chain, extending it from
// the store and creating every block. Nothing is kept when it fails.
func (s *Stream) reserve(existing []SectorIndex, needed int) ([]SectorIndex, error) {
	sectors := make([]SectorIndex, 0, needed)
	sectors = append(sectors, existing[:min(needed, len(existing))]...)

	start := s.start
	var added []SectorIndex
	fail := func(err error) ([]SectorIndex, error) {
		if rerr := s.release(start, existing, added); rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}

	prev := EndOfChain
	if len(sectors) > 0 {
		prev = sectors[len(sectors)-1]
	}
	for len(sectors) < needed {
		sector, err := s.store.FreeBlock()
		if err != nil {
			return fail(err)
		}
		added = append(added, sector)
		if err := s.link(prev, sector); err != nil {
			return fail(err)
		}
		sectors = append(sectors, sector)
		prev = sector
	}
	for _, sector := range sectors {
		if _, err := s.store.CreateBlockIfNeeded(sector); err != nil {
			return fail(err)
		}
	}
	return sectors, nil
}

// link terminates the chain at sector and hangs it after prev, or makes it
// the start when prev is END_OF_CHAIN.
func (s *Stream) link(prev, sector SectorIndex) error {
	if err := s.store.SetNextBlock(sector, EndOfChain); err != nil {
		return err
	}
	if prev == EndOfChain {
		s.start = sector
		return nil
	}
	return s.store.SetNextBlock(prev, sector)
}

// release frees added and restores the chain that existed before them.
func (s *Stream) release(start SectorIndex, existing, added []SectorIndex) error {
	var errs []error
	for _, sector := range added {
		errs = append(errs, s.store.SetNextBlock(sector, FreeSector))
	}
	if len(added) > 0 && len(existing) > 0 {
		errs = append(errs, s.store.SetNextBlock(existing[len(existing)-1], EndOfChain))
	}
	s.start = start
	return errors.Join(errs...)
}

// Free releases every block of the chain and empties the stream.
func (s *Stream) Free() error {
	sectors, err := s.Sectors()
	if err != nil {
		return err
	}
	for _, sector := range sectors {
		if err := s.store.SetNextBlock(sector, FreeSector); err != nil {
			return err
		}
	}
	s.start = EndOfChain
	return nil
}
