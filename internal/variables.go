package internal

import (
	"fmt"
	"runtime"
	"strings"
)

const (

	// Name of the executable. Cargo runs it for "cargo pvm-contract".
	Name = "cargo-pvm-contract"

	// First argument cargo passes to external subcommands.
	Subcommand = "pvm-contract"

	// Release channel that is left out of version strings.
	stableChannel = "stable"
)

// Release metadata and default output modes, set with
// -ldflags "-X github.com/paritytech/cargo-pvm-contract/internal.<name>=<value>".
var (
	version   = "" // Release version (e.g., "v0.3.1").
	channel   = "" // Release channel (e.g., "nightly"), empty for stable.
	gitCommit = "" // Commit the release was built from.

	rawQuiet   = "false" // Default for -q.
	rawDebug   = "false" // Default for -d.
	rawVerbose = "false" // Default for -v.
)

// Returns the release version without a leading "v".
//
// Development builds have no version and return "".
func Version() string {
	v := strings.ToLower(strings.TrimSpace(version))
	return strings.TrimPrefix(v, "v")
}

// Returns true if the binary was not built by the release process.
func IsDev() bool {
	return Version() == "" || strings.TrimSpace(gitCommit) == ""
}

// Returns the line printed by "cargo pvm-contract version".
//
// Releases report "<version>[-<channel>] (<commit>) <os>/<arch>" and
// development builds report "dev <os>/<arch>".
func VersionString() string {
	platform := runtime.GOOS + "/" + runtime.GOARCH
	if IsDev() {
		return "dev " + platform
	}

	v := Version()
	if c := strings.ToLower(strings.TrimSpace(channel)); c != "" && c != stableChannel {
		v += "-" + c
	}
	return fmt.Sprintf("%s (%s) %s", v, strings.TrimSpace(gitCommit), platform)
}
