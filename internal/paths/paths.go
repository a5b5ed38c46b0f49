package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	toolName = "cargo-pvm-contract"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the user configuration file.
//
//	Linux:   $XDG_CONFIG_HOME/cargo-pvm-contract/config.toml
//	macOS:   ~/Library/Application Support/cargo-pvm-contract/config.toml
func ConfigFile() string {
	return filepath.Join(xdg.ConfigHome, toolName, "config.toml")
}

// Path to the cache root.
//
//	Linux:   $XDG_CACHE_HOME/cargo-pvm-contract
//	macOS:   ~/Library/Caches/cargo-pvm-contract
func Cache() string {
	return filepath.Join(xdg.CacheHome, toolName)
}

// Directory holding the generated rustc target specifications.
func Targets() string {
	return filepath.Join(Cache(), "targets")
}

// Directory holding converted program blobs keyed by object digest.
func Programs() string {
	return filepath.Join(Cache(), "programs")
}

// Scratch directory for objects copied out of toolchain containers.
//
// Contents are not cleaned up automatically and may be removed at any time.
func Scratch() string {
	return filepath.Join(Cache(), "scratch")
}
