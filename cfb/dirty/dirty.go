package dirty

import (
	"context"
	"sort"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	defaultRangeCapacity = 64

	// standardPageSize is the typical OS page size (4KB).
	standardPageSize = 4096
)

// FlushMode controls durability guarantees for commits.
type FlushMode int

const (
	// FlushAuto flushes dirty data pages, then the header page, then calls
	// fdatasync().
	FlushAuto FlushMode = iota

	// FlushDataOnly flushes dirty pages and the header page but never syncs
	// the descriptor. The caller is responsible for syncing later.
	FlushDataOnly

	// FlushFull is FlushAuto with F_FULLFSYNC on macOS.
	FlushFull
)

// String returns the flag spelling of the mode.
func (m FlushMode) String() string {
	switch m {
	case FlushAuto:
		return "auto"
	case FlushDataOnly:
		return "data"
	case FlushFull:
		return "full"
	default:
		return "unknown"
	}
}

// Range represents a dirty byte range (absolute file offsets).
type Range struct {
	Off int64 // Absolute offset in file
	Len int64 // Length in bytes
}

// Tracker accumulates dirty ranges and flushes them efficiently.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	target      Target
	ranges      []Range
	pageSize    int64
	headerDirty bool
}

// NewTracker creates a dirty tracker flushing into target.
func NewTracker(target Target) *Tracker {
	return &Tracker{
		target:   target,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: standardPageSize,
	}
}

// Add records a dirty range. Alignment and merging happen at flush time.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	if int64(off) < t.pageSize {
		t.headerDirty = true
	}
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// Pending reports whether anything is waiting to be flushed.
func (t *Tracker) Pending() bool {
	return len(t.ranges) > 0 || t.headerDirty
}

// FlushDataOnly flushes all dirty ranges outside the header page.
//
// The context is checked between ranges. If cancelled mid-way, some ranges
// may have been flushed while others have not; the unflushed ones stay
// tracked.
func (t *Tracker) FlushDataOnly(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Page zero goes out with the header.
		if r.Off < t.pageSize {
			end := r.Off + r.Len
			r.Off = t.pageSize
			r.Len = end - t.pageSize
			if r.Len <= 0 {
				continue
			}
		}
		if err := t.target.Flush(r.Off, r.Len); err != nil {
			return err
		}
	}

	t.ranges = t.ranges[:0]
	return nil
}

// FlushHeaderAndMeta flushes the header page if it is dirty, then syncs the
// file descriptor according to mode:
//   - FlushAuto: fdatasync()
//   - FlushDataOnly: no sync
//   - FlushFull: fdatasync() + F_FULLFSYNC on macOS
func (t *Tracker) FlushHeaderAndMeta(ctx context.Context, mode FlushMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.headerDirty {
		if err := t.target.Flush(0, t.pageSize); err != nil {
			return err
		}
		t.headerDirty = false
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if mode == FlushDataOnly {
		return nil
	}
	return t.target.Sync(mode == FlushFull)
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping or
// adjacent ones.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.Off+current.Len {
			current.Len = max(current.Off+current.Len, next.Off+next.Len) - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
