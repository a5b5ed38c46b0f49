package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
)

const (

	// Backend that runs cargo as a local process.
	BackendCargo = "cargo"

	// Backend that runs cargo inside a containerd toolchain container.
	BackendContainer = "container"

	// Default containerd socket address.
	DefaultContainerdAddress = "/run/containerd/containerd.sock"

	// Default containerd namespace for toolchain images and containers.
	DefaultContainerdNamespace = "pvm-contract"
)

// Tool configuration.
type Settings struct {
	Toolchain Toolchain `toml:"toolchain"`
	Container Container `toml:"container"`
	Convert   Convert   `toml:"convert"`
}

// Selects and configures the compilation backend.
type Toolchain struct {
	Backend string `toml:"backend"` // One of [BackendCargo] or [BackendContainer].
	Cargo   string `toml:"cargo"`   // Cargo executable for the local backend.
	Bits    int    `toml:"bits"`    // Register width of the target, 32 or 64.
}

// Configures the containerd-hosted backend.
type Container struct {
	Address   string `toml:"address"`   // Containerd socket address.
	Namespace string `toml:"namespace"` // Containerd namespace.
	Image     string `toml:"image"`     // Path to the OCI archive of the toolchain image.
	Platform  string `toml:"platform"`  // OCI platform, empty for the host platform.
}

// Configures the bytecode conversion.
type Convert struct {
	Cache bool `toml:"cache"` // Whether converted programs are cached by object digest.
	Strip bool `toml:"strip"` // Whether debug information is left out of the blob.
}

// Returns the settings used when no configuration file exists.
func Default() Settings {
	return Settings{
		Toolchain: Toolchain{
			Backend: BackendCargo,
			Cargo:   "cargo",
			Bits:    64,
		},
		Container: Container{
			Address:   DefaultContainerdAddress,
			Namespace: DefaultContainerdNamespace,
		},
		Convert: Convert{
			Cache: true,
			Strip: true,
		},
	}
}

// Loads settings from the TOML file at path on top of [Default].
//
// A missing file is not an error unless required is set, which is the case
// when the path was given explicitly by the user.
func Load(path string, required bool) (Settings, error) {
	s := Default()

	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			slog.Debug("no settings file", "path", path)
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("%w: %s: %w", ErrInvalidSettings, path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Settings{}, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalidSettings, path, strings.Join(keys, ", "))
	}

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}

	slog.Debug("settings loaded", "path", path, "backend", s.Toolchain.Backend)
	return s, nil
}

// Checks that enumerated values are in range.
func (s Settings) Validate() error {
	switch s.Toolchain.Backend {
	case BackendCargo, BackendContainer:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidSettings, s.Toolchain.Backend)
	}

	if s.Toolchain.Bits != 32 && s.Toolchain.Bits != 64 {
		return fmt.Errorf("%w: bits must be 32 or 64, got %d", ErrInvalidSettings, s.Toolchain.Bits)
	}

	if s.Toolchain.Backend == BackendContainer && s.Container.Image == "" {
		return fmt.Errorf("%w: the container backend requires container.image", ErrInvalidSettings)
	}

	return nil
}
