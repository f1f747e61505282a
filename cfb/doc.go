// Package cfb implements the storage engine of compound binary container
// files: a single file that behaves like a small filesystem, holding named
// streams inside fixed-size sectors addressed through allocation tables.
//
// # Overview
//
// Two stores share the BlockStore contract:
//
//   - MainStore addresses the file's big blocks (512 or 4096 bytes) through
//     the main allocation table (BAT). BAT sectors are listed in the header
//     and, past the first 109, in a chain of XBAT sectors.
//   - MiniStore addresses 64-byte mini blocks inside the mini stream, a
//     big-block chain owned by the root directory entry. Its allocation
//     table (SBAT) is a big-block chain rooted in the header.
//
// Streams are chains of blocks followed through NextBlock until
// END_OF_CHAIN. Every traversal claims each sector in a ChainLoopDetector,
// so a cyclic chain in a hostile file fails with a CorruptChainError rather
// than looping.
//
// # Usage Example
//
//	fs, err := cfb.Open("report.doc", cfb.OpenOptions{ReadOnly: true})
//	if err != nil {
//	    return err
//	}
//	defer fs.Close()
//
//	entry, ok := fs.Lookup("WordDocument")
//	if !ok {
//	    return errors.New("no WordDocument stream")
//	}
//	data, err := fs.ReadStream(entry)
//
// Writing goes through a Stream on one of the stores:
//
//	s := cfb.NewStream(fs.Main(), cfb.EndOfChain)
//	if err := s.Update(payload); err != nil {
//	    return err
//	}
//	// s.StartBlock() is the new chain's first sector
//	err = fs.Commit(ctx)
//
// # Errors
//
// Malformed input surfaces as *FormatError, *CorruptChainError or
// *OutOfRangeError, matched with errors.Is against ErrFormat,
// ErrCorruptChain and ErrOutOfRange. I/O errors are wrapped unchanged.
// Out-of-range BATBlock entry indices are programming errors and panic.
//
// # Mini Stream Growth
//
// MiniStore never extends the mini stream. CreateBlockIfNeeded past its end
// returns ErrUnsupported; Filesystem.ReserveMiniStream sizes it up front.
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. MiniStore caches the
// mini stream chain on read, so even readers need their own Filesystem or
// an external lock.
package cfb
