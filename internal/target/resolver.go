package target

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// A binary target together with the package that declares it.
type candidate struct {
	pkg  *Package
	name string
	root string // Workspace root directory.
}

// Selects the binary target to build.
//
// When name is empty the crate must declare exactly one binary target.
// Otherwise name must match exactly one declared target. Failures are
// returned as [*Error] wrapping [ErrNoBinaryTargets], [ErrAmbiguousTarget]
// or [ErrTargetNotFound].
func Resolve(ctx context.Context, provider Provider, root, name string) (*Resolved, error) {
	md, err := provider.Metadata(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadata, err)
	}

	all := candidates(md)
	slog.Debug("binary targets", "manifest", md.ManifestPath, "count", len(all))

	if name == "" {
		return selectOnly(all)
	}
	return selectNamed(all, name)
}

// Flattens the packages into a list of candidates in declaration order.
func candidates(md *Metadata) []candidate {
	root := filepath.Dir(md.ManifestPath)

	var all []candidate
	for i := range md.Packages {
		pkg := &md.Packages[i]
		for _, bin := range pkg.Binaries {
			all = append(all, candidate{pkg: pkg, name: bin, root: root})
		}
	}
	return all
}

// Returns the only candidate, or an error when there are none or several.
func selectOnly(all []candidate) (*Resolved, error) {
	switch len(all) {
	case 0:
		return nil, &Error{Kind: ErrNoBinaryTargets}
	case 1:
		return all[0].resolved(), nil
	default:
		return nil, &Error{Kind: ErrAmbiguousTarget, Candidates: labels(all)}
	}
}

// Returns the candidate called name.
//
// A name declared by more than one workspace package is ambiguous; the error
// lists the qualified "package/binary" labels of the clashing targets, and
// either label selects its target.
func selectNamed(all []candidate, name string) (*Resolved, error) {
	pkg, bin, qualified := strings.Cut(name, "/")
	if !qualified {
		pkg, bin = "", name
	}

	var matches []candidate
	for _, c := range all {
		if c.name == bin && (pkg == "" || c.pkg.Name == pkg) {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		return nil, &Error{Kind: ErrTargetNotFound, Requested: name, Candidates: labels(all)}
	case 1:
		return matches[0].resolved(), nil
	default:
		qualified := make([]string, len(matches))
		for i, m := range matches {
			qualified[i] = m.pkg.Name + "/" + m.name
		}
		return nil, &Error{Kind: ErrAmbiguousTarget, Requested: name, Candidates: qualified}
	}
}

// Returns display labels for candidates.
//
// Names are qualified with the package only when the same name is declared
// by more than one package.
func labels(all []candidate) []string {
	seen := make(map[string]int, len(all))
	for _, c := range all {
		seen[c.name]++
	}

	out := make([]string, len(all))
	for i, c := range all {
		if seen[c.name] > 1 {
			out[i] = c.pkg.Name + "/" + c.name
		} else {
			out[i] = c.name
		}
	}
	return out
}

func (c candidate) resolved() *Resolved {
	return &Resolved{
		CrateRoot:     c.pkg.Root,
		Binary:        c.name,
		ManifestPath:  c.pkg.ManifestPath,
		Package:       c.pkg.Name,
		WorkspaceRoot: c.root,
	}
}
