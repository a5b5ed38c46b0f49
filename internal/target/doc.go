// Package target selects the binary target a build compiles.
//
// Binary targets are declared by the crate (or every member of a workspace)
// and reported by a [Provider]. [Resolve] picks exactly one of them: the
// target named by the caller, or the only target the crate declares. It never
// falls back to the first declared target, so the result does not depend on
// declaration order. Candidate lists carried by errors keep declaration order
// purely for display.
//
// Example usage:
//
//	resolved, err := target.Resolve(ctx, cargo.NewProvider(""), ".", "")
//	if errors.Is(err, target.ErrAmbiguousTarget) {
//	    // ask the user to pick one of err.(*target.Error).Candidates
//	}
package target
