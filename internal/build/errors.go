package build

import (
	"errors"
	"fmt"

	"github.com/paritytech/cargo-pvm-contract/internal/output"
	"github.com/paritytech/cargo-pvm-contract/internal/pvm"
	"github.com/paritytech/cargo-pvm-contract/internal/target"
	"github.com/paritytech/cargo-pvm-contract/internal/toolchain"
)

var (
	ErrBuild     = errors.New("build failed")
	ErrCancelled = errors.New("build cancelled")
)

// Failure of one pipeline stage.
type StageError struct {
	Stage Stage // Stage that failed.
	Err   error // Cause.
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

// Returns [ErrBuild] and the cause.
func (e *StageError) Unwrap() []error {
	return []error{ErrBuild, e.Err}
}

// Error kinds reported to users, checked in order.
var kinds = []struct {
	err  error
	name string
}{
	{ErrCancelled, "Cancelled"},
	{target.ErrNoBinaryTargets, "NoBinaryTargets"},
	{target.ErrAmbiguousTarget, "AmbiguousTarget"},
	{target.ErrTargetNotFound, "TargetNotFound"},
	{toolchain.ErrCompileFailed, "CompileFailed"},
	{pvm.ErrMissingEntryPoint, "MissingEntryPoint"},
	{pvm.ErrUnresolvedImport, "UnresolvedImport"},
	{output.ErrWriteFailed, "WriteFailed"},
}

// Returns the name of the failure kind err belongs to, or an empty string
// when it is none of them.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}
