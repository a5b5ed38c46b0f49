package toolchain

import (
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Everything a backend needs to compile one binary.
//
// Paths are absolute in the filesystem the backend runs cargo in.
type Invocation struct {
	Binary        string  // Binary target name.
	ManifestPath  string  // Manifest of the package declaring Binary.
	CrateRoot     string  // Directory cargo runs in.
	WorkspaceRoot string  // Root of the workspace, remapped out of debug paths.
	TargetSpec    string  // Path to the rustc target specification.
	TargetDir     string  // Cargo target directory.
	Profile       Profile // Codegen settings.
}

// Returns the target triple.
func (inv *Invocation) Triple() string {
	return inv.Profile.Triple()
}

// Returns the cargo arguments, not including the cargo executable.
func (inv *Invocation) Args() []string {
	args := []string{
		"build",
		"--release",
		"--manifest-path", inv.ManifestPath,
		"--bin", inv.Binary,
		"--target", inv.TargetSpec,
		"--target-dir", inv.TargetDir,
	}
	args = append(args, inv.Profile.buildStdArgs()...)
	for _, kv := range inv.Profile.configOverrides() {
		args = append(args, "--config", kv)
	}
	return args
}

// Returns the environment overrides for the cargo process.
//
// CARGO_ENCODED_RUSTFLAGS replaces RUSTFLAGS and every rustflags setting
// from config files. RUSTC_BOOTSTRAP enables -Zbuild-std on stable
// toolchains.
func (inv *Invocation) Env() []string {
	flags := slices.Clone(inv.Profile.RustFlags)
	flags = append(flags, fmt.Sprintf("--remap-path-prefix=%s=.", inv.WorkspaceRoot))

	return []string{
		"RUSTC_BOOTSTRAP=1",
		"CARGO_ENCODED_RUSTFLAGS=" + strings.Join(flags, "\x1f"),
	}
}

// Returns where cargo places the linked binary.
func (inv *Invocation) ObjectPath() string {
	return filepath.Join(inv.TargetDir, inv.Triple(), "release", inv.Binary)
}

// Returns a copy with every workspace path moved under root, using slash
// separators, and the target specification at spec.
//
// Used to run the same build in a filesystem where the workspace lives
// elsewhere, such as inside a container.
func (inv *Invocation) rebase(root, spec string) (*Invocation, error) {
	move := func(p string) (string, error) {
		rel, err := filepath.Rel(inv.WorkspaceRoot, p)
		if err != nil {
			return "", err
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%s is outside the workspace %s", p, inv.WorkspaceRoot)
		}
		return path.Join(root, filepath.ToSlash(rel)), nil
	}

	out := *inv
	out.WorkspaceRoot = root
	out.TargetSpec = spec

	var err error
	if out.ManifestPath, err = move(inv.ManifestPath); err != nil {
		return nil, err
	}
	if out.CrateRoot, err = move(inv.CrateRoot); err != nil {
		return nil, err
	}
	if out.TargetDir, err = move(inv.TargetDir); err != nil {
		return nil, err
	}

	return &out, nil
}
