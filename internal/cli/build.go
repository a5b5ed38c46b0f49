package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/paritytech/cargo-pvm-contract/internal"
	"github.com/paritytech/cargo-pvm-contract/internal/build"
	"github.com/paritytech/cargo-pvm-contract/internal/cache"
	"github.com/paritytech/cargo-pvm-contract/internal/cargo"
	"github.com/paritytech/cargo-pvm-contract/internal/paths"
	"github.com/paritytech/cargo-pvm-contract/internal/pvm"
	"github.com/paritytech/cargo-pvm-contract/internal/runtime"
	"github.com/paritytech/cargo-pvm-contract/internal/settings"
	"github.com/paritytech/cargo-pvm-contract/internal/toolchain"
)

// Represents the 'cargo pvm-contract build' command.
type BuildCmd struct {
	Bin          string `arg:"" optional:"" help:"Binary target to build. Required when the crate declares several." placeholder:"BIN_NAME"`
	Output       string `short:"o" help:"Write the program to PATH instead of ./<BIN_NAME>.polkavm." placeholder:"PATH"`
	ManifestPath string `name:"manifest-path" help:"Path to Cargo.toml. Searched upwards from the working directory by default." placeholder:"PATH"`
	Backend      string `help:"Compilation backend, cargo or container." placeholder:"BACKEND"`
	Bits         int    `help:"Target register width, 32 or 64." placeholder:"BITS"`
	NoStrip      bool   `name:"no-strip" help:"Keep debug strings in the program."`
	NoCache      bool   `name:"no-cache" help:"Neither reuse nor store converted programs."`
}

// Executes the build command.
//
// Compiler output is shown live in verbose mode. Otherwise it is only
// printed when compilation fails.
func (c *BuildCmd) Run(ctx context.Context) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if err := c.apply(&cfg); err != nil {
		return err
	}

	root, err := os.Getwd()
	if err != nil {
		return err
	}

	var compilerOutput io.Writer = io.Discard
	if internal.IsVerbose() {
		compilerOutput = os.Stderr
	}

	backend, closeBackend, err := newBackend(cfg, compilerOutput)
	if err != nil {
		return err
	}
	defer closeBackend()

	var store pvm.Cache
	if cfg.Convert.Cache {
		store = cache.New(paths.Programs())
	}

	res, err := build.Run(ctx, build.Deps{
		Metadata:  cargo.NewProvider(c.ManifestPath),
		Compiler:  toolchain.NewInvoker(backend, toolchain.DefaultProfile(cfg.Toolchain.Bits), paths.Targets()),
		Converter: pvm.NewConverter(pvm.HostFunctionsV1, pvm.Options{Strip: cfg.Convert.Strip}, store),
	}, build.Request{
		Binary: c.Bin,
		Output: c.Output,
		Root:   root,
	})
	if err != nil {
		report(os.Stderr, err)
		return err
	}

	slog.Info("program written", "digest", res.Digest, "size", len(res.Program.Bytes))
	fmt.Printf("Successfully built contract: %s\n", res.Output.Path)
	return nil
}

// Applies command line overrides on top of the loaded settings.
func (c *BuildCmd) apply(cfg *settings.Settings) error {
	if c.Backend != "" {
		cfg.Toolchain.Backend = c.Backend
	}
	if c.Bits != 0 {
		cfg.Toolchain.Bits = c.Bits
	}
	if c.NoStrip {
		cfg.Convert.Strip = false
	}
	if c.NoCache {
		cfg.Convert.Cache = false
	}
	return cfg.Validate()
}

// Creates the configured compilation backend.
//
// The returned function releases the backend's resources.
func newBackend(cfg settings.Settings, out io.Writer) (toolchain.Backend, func(), error) {
	if cfg.Toolchain.Backend != settings.BackendContainer {
		return toolchain.NewCargo(cfg.Toolchain.Cargo, out), func() {}, nil
	}

	rt, err := runtime.New(cfg.Container.Address, cfg.Container.Namespace)
	if err != nil {
		return nil, nil, err
	}
	closeRuntime := func() {
		if err := rt.Close(); err != nil {
			slog.Debug("closing container runtime", "error", err)
		}
	}
	return toolchain.NewContainer(rt, cfg.Container.Image, cfg.Container.Platform, paths.Scratch(), out), closeRuntime, nil
}

// Prints what the error message leaves out.
//
// Compiler diagnostics are printed unless they were already shown live.
func report(w io.Writer, err error) {
	slog.Debug("build failed", "kind", build.Kind(err))

	var ce *toolchain.CompileError
	if errors.As(err, &ce) && ce.Diagnostics != "" && !internal.IsVerbose() {
		fmt.Fprint(w, ce.Diagnostics)
	}
}
