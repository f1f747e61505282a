package format

import "errors"

var (
	// ErrSignatureMismatch indicates the file does not start with the container magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrOOXML indicates a zip-based Office file was supplied instead of a container.
	ErrOOXML = errors.New("format: data is an OOXML (zip) file, not a compound file")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadField indicates a fixed-layout field holds a value outside its legal range.
	ErrBadField = errors.New("format: invalid header field")
)
