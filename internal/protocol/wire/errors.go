package wire

import "errors"

var (
	ErrTextTooLong = errors.New("text exceeds max line length")
	ErrEmptyText   = errors.New("empty text payload")
	ErrIndexRange  = errors.New("sub-index out of range")
	ErrIDTooLong   = errors.New("node id does not fit the record")
)
