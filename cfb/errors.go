package cfb

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat indicates the header or a fixed-layout field failed validation.
	ErrFormat = errors.New("cfb: invalid container format")

	// ErrCorruptChain indicates a chain revisits a sector or disagrees with
	// its declared length.
	ErrCorruptChain = errors.New("cfb: corrupt chain")

	// ErrOutOfRange indicates a sector index outside the store's extent.
	ErrOutOfRange = errors.New("cfb: sector out of range")

	// ErrUnsupported indicates an operation this engine does not perform,
	// such as growing the mini stream.
	ErrUnsupported = errors.New("cfb: unsupported operation")

	// ErrClosed indicates use of a closed filesystem.
	ErrClosed = errors.New("cfb: filesystem closed")

	// ErrReadOnly indicates a mutation on a filesystem opened read-only.
	ErrReadOnly = errors.New("cfb: filesystem is read-only")
)

// FormatError reports a header field that fails validation. It matches
// ErrFormat with errors.Is.
type FormatError struct {
	Field   string // Header field that failed
	Message string // Human-readable error message
	Cause   error  // Underlying error, if any
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cfb: invalid %s: %s: %v", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("cfb: invalid %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *FormatError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// CorruptChainError reports a chain that loops or has the wrong length.
type CorruptChainError struct {
	Sector  SectorIndex // Sector at which the corruption was observed
	Message string
}

// Error implements the error interface.
func (e *CorruptChainError) Error() string {
	return fmt.Sprintf("cfb: corrupt chain at sector %s: %s", SectorName(e.Sector), e.Message)
}

// Is reports whether target is ErrCorruptChain.
func (e *CorruptChainError) Is(target error) bool { return target == ErrCorruptChain }

// OutOfRangeError reports a sector index beyond the physical extent of a
// store.
type OutOfRangeError struct {
	Sector  SectorIndex // Requested sector
	Limit   int64       // Number of addressable sectors (or bytes, see Message)
	Message string
}

// Error implements the error interface.
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("cfb: sector %s out of range (limit %d): %s", SectorName(e.Sector), e.Limit, e.Message)
}

// Is reports whether target is ErrOutOfRange.
func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }
