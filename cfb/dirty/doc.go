// Package dirty tracks which byte ranges of an open container have been
// modified and flushes them in commit order: data pages first, then the page
// holding the header, then an optional fdatasync.
//
// # Usage
//
//	tracker := dirty.NewTracker(region)
//
//	// after writing sector n
//	tracker.Add(sectorOffset, sectorSize)
//
//	// commit
//	if err := tracker.FlushDataOnly(ctx); err != nil { ... }
//	if err := tracker.FlushHeaderAndMeta(ctx, dirty.FlushAuto); err != nil { ... }
//
// # Page-Level Granularity
//
// Ranges are rounded out to 4KB pages and merged before flushing, so many
// small sector writes cost one msync per contiguous run. A 512-byte sector
// file keeps its header and first seven sectors in page zero; that page is
// written with the header, never before it.
//
// NOT thread-safe.
package dirty
