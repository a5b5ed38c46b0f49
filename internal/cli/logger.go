package cli

import (
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/paritytech/cargo-pvm-contract/internal"
)

var (
	logLevel   slog.LevelVar // Minimum level of the global logger.
	logVerbose atomic.Bool   // Whether records carry timestamps.
)

// Creates the process logger seeded from build-time linker flags.
//
// The logger writes to stderr and is reconfigured after flag parsing by
// [Execute].
func NewLogger() *slog.Logger {
	logLevel.Set(internal.LogLevel())
	logVerbose.Store(internal.IsVerbose())

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       &logLevel,
		ReplaceAttr: replaceAttr,
	}))
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	internal.SetDebug(RootCmd.Debug || internal.IsDebug())
	internal.SetQuiet(RootCmd.Quiet || internal.IsQuiet())
	internal.SetVerbose(RootCmd.Verbose || internal.IsVerbose())

	logLevel.Set(internal.LogLevel())
	logVerbose.Store(internal.IsVerbose() || internal.IsDebug())
}

// Drops timestamps unless verbose.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && !logVerbose.Load() {
		return slog.Attr{}
	}
	return a
}
