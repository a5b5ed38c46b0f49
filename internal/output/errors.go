package output

import (
	"errors"
	"fmt"
)

var (
	ErrWriteFailed = errors.New("write failed")
	ErrExists      = errors.New("destination exists")
)

// Describes a failed write.
type WriteError struct {
	Path string // Destination path.
	Err  error  // Underlying cause.
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrWriteFailed, e.Path, e.Err)
}

// Returns [ErrWriteFailed] and the underlying cause.
func (e *WriteError) Unwrap() []error {
	return []error{ErrWriteFailed, e.Err}
}
