package target

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoBinaryTargets = errors.New("no binary targets")
	ErrAmbiguousTarget = errors.New("ambiguous binary target")
	ErrTargetNotFound  = errors.New("binary target not found")
	ErrMetadata        = errors.New("cannot read crate metadata")
)

// Describes a failed target selection.
//
// Kind is one of the sentinel errors above. Candidates lists the binary
// targets that were available, in declaration order.
type Error struct {
	Kind       error    // Sentinel identifying the failure.
	Requested  string   // Binary name asked for, empty when none was given.
	Candidates []string // Declared binary targets.
}

// Formats the failure together with the candidates.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())

	if e.Requested != "" {
		fmt.Fprintf(&b, " %q", e.Requested)
	}

	if len(e.Candidates) > 0 {
		fmt.Fprintf(&b, " (available: %s)", strings.Join(e.Candidates, ", "))
	}

	return b.String()
}

// Returns the sentinel so callers can use [errors.Is].
func (e *Error) Unwrap() error {
	return e.Kind
}
