package toolchain

import (
	"errors"
	"fmt"
)

var (
	ErrCompileFailed = errors.New("compilation failed")
	ErrTargetSpec    = errors.New("cannot install target specification")
)

// Describes a failed compilation.
//
// Diagnostics holds the compiler's standard error exactly as it was
// produced; it is never parsed.
type CompileError struct {
	Binary      string // Binary target being compiled.
	Diagnostics string // Compiler diagnostics, verbatim.
	Err         error  // Underlying cause, such as an exit status.
}

// Formats the failure without the diagnostics.
func (e *CompileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrCompileFailed, e.Binary)
	}
	return fmt.Sprintf("%s: %s: %s", ErrCompileFailed, e.Binary, e.Err)
}

// Returns [ErrCompileFailed] and the underlying cause.
func (e *CompileError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCompileFailed}
	}
	return []error{ErrCompileFailed, e.Err}
}
