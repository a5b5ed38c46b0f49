package pvm

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidObject     = errors.New("invalid object")
	ErrInvalidBlob       = errors.New("invalid program blob")
	ErrMissingEntryPoint = errors.New("missing entry point")
	ErrUnresolvedImport  = errors.New("unresolved import")
)

// Reports an undefined symbol that is not a known host function.
type ImportError struct {
	Symbol string // Undefined symbol name.
	Module string // Host module the symbol was looked up in.
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: %q is not a %s host function", ErrUnresolvedImport, e.Symbol, e.Module)
}

// Returns [ErrUnresolvedImport].
func (e *ImportError) Unwrap() error {
	return ErrUnresolvedImport
}
