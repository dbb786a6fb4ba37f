package profiler

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is matched by every *IndexError.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrSessionClosed is returned by a session after Teardown.
	ErrSessionClosed = errors.New("profiler session closed")

	// ErrSourceUnavailable wraps failures to read a source file.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// IndexError reports a node id or instruction offset outside its valid range.
type IndexError struct {
	Kind  string // "node" or "offset"
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0, %d)", e.Kind, e.Index, e.Len)
}

// Is reports whether target is ErrIndexOutOfRange.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}
