package internal

import (
	"log/slog"
	"strconv"
	"sync/atomic"
)

// Output modes, seeded from linker flags and overridden by -q, -d and -v.
var (
	quietMode   atomic.Bool // Only warnings and errors are logged.
	debugMode   atomic.Bool // Debug records are logged.
	verboseMode atomic.Bool // Compiler output is streamed while building.
)

func init() {
	seed(&quietMode, rawQuiet)
	seed(&debugMode, rawDebug)
	seed(&verboseMode, rawVerbose)
}

// Stores a boolean linker flag. Values that do not parse are ignored.
func seed(mode *atomic.Bool, raw string) {
	if v, err := strconv.ParseBool(raw); err == nil {
		mode.Store(v)
	}
}

// Enables or disables quiet mode.
func SetQuiet(enabled bool) {
	quietMode.Store(enabled)
}

// Returns true if only warnings and errors are logged.
func IsQuiet() bool {
	return quietMode.Load()
}

// Enables or disables debug mode.
func SetDebug(enabled bool) {
	debugMode.Store(enabled)
}

// Returns true if debug records are logged.
func IsDebug() bool {
	return debugMode.Load()
}

// Enables or disables verbose mode.
func SetVerbose(enabled bool) {
	verboseMode.Store(enabled)
}

// Returns true if compiler output is streamed while building.
func IsVerbose() bool {
	return verboseMode.Load()
}

// Returns the log level implied by the current modes.
//
// Debug wins over quiet. Verbose does not change the level.
func LogLevel() slog.Level {
	if IsDebug() {
		return slog.LevelDebug
	}
	if IsQuiet() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
