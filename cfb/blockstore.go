package cfb

// BlockStore is the contract shared by the main (big block) store and the
// mini store layered on top of it. Offsets are expressed in the store's own
// block units.
//
// Implementations are not safe for concurrent mutation. A grow-and-link
// sequence (FreeBlock followed by SetNextBlock) must not interleave with
// another caller.
type BlockStore interface {
	// BlockAt returns the bytes of block offset. The main store returns a
	// view into the backing that a later growth may invalidate; the mini
	// store returns an independent copy.
	BlockAt(offset SectorIndex) ([]byte, error)

	// CreateBlockIfNeeded is BlockAt, extending the store first when offset
	// lies past its current end.
	CreateBlockIfNeeded(offset SectorIndex) ([]byte, error)

	// WriteBlock copies data into block offset, zero-filling the rest of the
	// block. data must not exceed BlockSize().
	WriteBlock(offset SectorIndex, data []byte) error

	// BATBlockAndIndex locates the allocation-table block governing offset
	// and the entry within it.
	BATBlockAndIndex(offset SectorIndex) (*BATBlock, int, error)

	// NextBlock returns the successor of offset.
	NextBlock(offset SectorIndex) (SectorIndex, error)

	// SetNextBlock records next as the successor of offset.
	SetNextBlock(offset, next SectorIndex) error

	// FreeBlock returns a FREE sector, growing the allocation table when
	// none is left. The sector stays FREE until the caller links it.
	FreeBlock() (SectorIndex, error)

	// BlockSize returns the store's block size in bytes.
	BlockSize() int

	// ChainLoopDetector returns a fresh detector sized to this store.
	ChainLoopDetector() *ChainLoopDetector

	// SyncWithDataSource writes every in-memory allocation-table block back
	// to its sector.
	SyncWithDataSource() error
}

// RootProperty supplies the location of the mini stream. The directory's
// root entry satisfies it.
type RootProperty interface {
	StartBlock() SectorIndex
	Size() int64
}

var (
	_ BlockStore = (*MainStore)(nil)
	_ BlockStore = (*MiniStore)(nil)
)
