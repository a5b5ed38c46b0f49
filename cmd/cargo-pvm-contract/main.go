package main

import (
	"log/slog"
	"os"

	"github.com/paritytech/cargo-pvm-contract/internal"
	"github.com/paritytech/cargo-pvm-contract/internal/cli"
)

// The entry point for cargo-pvm-contract.
//
// Initializes logging, displays startup information, and executes the
// requested subcommand. If any error occurs it exits with a non-zero code.
func main() {
	slog.SetDefault(cli.NewLogger())

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("cargo-pvm-contract is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(os.Args[1:]); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
