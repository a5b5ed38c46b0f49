package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/opencontainers/go-digest"
	"github.com/paritytech/cargo-pvm-contract/internal/output"
	"github.com/paritytech/cargo-pvm-contract/internal/pvm"
	"github.com/paritytech/cargo-pvm-contract/internal/target"
	"github.com/paritytech/cargo-pvm-contract/internal/toolchain"
)

// What to build.
type Request struct {
	Binary string // Binary target name, empty to build the only one.
	Output string // Destination path, empty for <binary>.polkavm in Root.
	Root   string // Directory the build was started from.
}

// Compiles a resolved binary target.
type Compiler interface {
	Compile(ctx context.Context, t *target.Resolved) (*toolchain.Artifact, error)
}

// Converts a compiled object into a program.
type Converter interface {
	Convert(ctx context.Context, objectPath string) (*pvm.Program, error)
}

// Places a program at its destination.
type WriteFunc func(ctx context.Context, prog *pvm.Program, loc output.Location) (digest.Digest, error)

// Collaborators used by [Run].
type Deps struct {
	Metadata  target.Provider // Crate metadata.
	Compiler  Compiler        // Toolchain invoker.
	Converter Converter       // Bytecode converter.
	Write     WriteFunc       // Output writer, [output.Write] when nil.
	Progress  func(Stage)     // Called on entering each stage, may be nil.
}

// Returned after a successful build.
type Result struct {
	Target   *target.Resolved    // Binary that was built.
	Artifact *toolchain.Artifact // Native object.
	Program  *pvm.Program        // Converted program.
	Output   output.Location     // Where the program was written.
	Digest   digest.Digest       // Digest of the program bytes.
}

// Runs the pipeline for req.
//
// Stages run strictly in order and each one starts only after the previous
// one succeeded. Cancelling ctx stops the current stage; the error then
// wraps [ErrCancelled] and the destination is left as it was.
func Run(ctx context.Context, deps Deps, req Request) (*Result, error) {
	if deps.Write == nil {
		deps.Write = output.Write
	}
	p := &pipeline{deps: deps}
	return p.run(ctx, req)
}

// Tracks the current stage of one build.
type pipeline struct {
	deps  Deps
	stage Stage
}

func (p *pipeline) run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{}
	var err error

	p.enter(StageResolving)
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	res.Target, err = target.Resolve(ctx, p.deps.Metadata, req.Root, req.Binary)
	if err != nil {
		return nil, p.fail(ctx, err)
	}

	slog.Info("building", "bin", res.Target.Binary, "package", res.Target.Package, "manifest", res.Target.ManifestPath)

	p.enter(StageCompiling)
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	res.Artifact, err = p.deps.Compiler.Compile(ctx, res.Target)
	if err != nil {
		return nil, p.fail(ctx, err)
	}

	p.enter(StageConverting)
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	res.Program, err = p.deps.Converter.Convert(ctx, res.Artifact.ObjectPath)
	if err != nil {
		return nil, p.fail(ctx, err)
	}

	slog.Info("converted", "entry_points", res.Program.EntryPoints, "imports", len(res.Program.Imports), "size", len(res.Program.Bytes))

	p.enter(StageWriting)
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	res.Output = output.Locate(res.Target.Binary, req.Output, req.Root)
	res.Digest, err = p.deps.Write(ctx, res.Program, res.Output)
	if err != nil {
		return nil, p.fail(ctx, err)
	}

	p.enter(StageDone)
	return res, nil
}

// Moves to the next stage.
func (p *pipeline) enter(s Stage) {
	p.stage = s
	slog.Debug("build stage", "stage", s)
	if p.deps.Progress != nil {
		p.deps.Progress(s)
	}
}

// Fails the current stage if ctx is done.
func (p *pipeline) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return p.fail(ctx, err)
	}
	return nil
}

// Wraps err as a failure of the current stage.
//
// Any failure while ctx is done is reported as a cancellation, since the
// stage's own error is then a consequence of the interrupt.
func (p *pipeline) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ErrCancelled) {
		err = fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
	}
	return &StageError{Stage: p.stage, Err: err}
}
