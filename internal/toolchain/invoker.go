package toolchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paritytech/cargo-pvm-contract/internal/target"
)

// The native object produced for a binary.
//
// The object lives in the cargo target directory or a scratch directory and
// may be replaced by the next build.
type Artifact struct {
	ObjectPath string // Path to the linked ELF object.
	Triple     string // Target triple the object was built for.
}

// Runs cargo and returns the path of the linked object.
//
// Implementations block until the compiler process exits. A failed
// compilation is reported as [*CompileError] carrying the compiler's
// diagnostics; cancellation of ctx is reported as ctx.Err().
type Backend interface {
	Compile(ctx context.Context, inv *Invocation) (string, error)
}

// Compiles resolved binaries with a fixed profile.
type Invoker struct {
	backend Backend // Runs the compiler process.
	profile Profile // Codegen settings for every build.
	specDir string  // Directory holding installed target specifications.
}

// Creates a new [Invoker].
func NewInvoker(backend Backend, profile Profile, specDir string) *Invoker {
	return &Invoker{
		backend: backend,
		profile: profile,
		specDir: specDir,
	}
}

// Compiles the resolved binary into a native object.
//
// The target directory is pinned to the workspace's target directory so the
// object location does not depend on CARGO_TARGET_DIR or config files.
func (i *Invoker) Compile(ctx context.Context, t *target.Resolved) (*Artifact, error) {
	triple := i.profile.Triple()

	spec, err := InstallTargetSpec(ctx, i.specDir, triple)
	if err != nil {
		return nil, err
	}

	inv := i.invocation(t, spec)

	slog.Info("compiling", "bin", t.Binary, "package", t.Package, "target", triple)
	slog.Debug("cargo invocation", "dir", inv.CrateRoot, "args", inv.Args(), "env", inv.Env())

	obj, err := i.backend.Compile(ctx, inv)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var ce *CompileError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &CompileError{Binary: t.Binary, Err: err}
	}

	info, err := os.Stat(obj)
	if err != nil || !info.Mode().IsRegular() {
		return nil, &CompileError{Binary: t.Binary, Err: fmt.Errorf("object was not generated at %s", obj)}
	}

	slog.Debug("compiled", "object", obj, "size", info.Size())

	return &Artifact{ObjectPath: obj, Triple: triple}, nil
}

// Builds the invocation for a resolved binary.
func (i *Invoker) invocation(t *target.Resolved, spec string) *Invocation {
	root := t.WorkspaceRoot
	if root == "" {
		root = t.CrateRoot
	}

	return &Invocation{
		Binary:        t.Binary,
		ManifestPath:  t.ManifestPath,
		CrateRoot:     t.CrateRoot,
		WorkspaceRoot: root,
		TargetSpec:    spec,
		TargetDir:     filepath.Join(root, "target"),
		Profile:       i.profile,
	}
}
