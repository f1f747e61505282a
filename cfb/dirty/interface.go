package dirty

// Target is the flushable storage behind a tracker. *mmfile.Region
// satisfies it.
type Target interface {
	// Flush writes bytes [off, off+n) of the in-memory image to the file.
	Flush(off, n int64) error
	// Sync commits flushed data to stable storage.
	Sync(full bool) error
}

// DirtyTracker is the minimal interface for components that only report
// modified regions (stores, streams) without controlling when they are
// flushed.
type DirtyTracker interface {
	// Add marks a byte range as dirty.
	// off is the offset from the start of the file, length is the number of bytes.
	Add(off, length int)
}
