package cargo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// File name of a Cargo manifest.
const ManifestName = "Cargo.toml"

// A parsed Cargo.toml.
type Manifest struct {
	Package   *Package   `toml:"package"`
	Bins      []Bin      `toml:"bin"`
	Workspace *Workspace `toml:"workspace"`

	// Path is the absolute path of the manifest file (set at load time).
	Path string `toml:"-"`
}

// The [package] table.
type Package struct {
	Name     string `toml:"name"`
	Autobins *bool  `toml:"autobins"`
}

// A [[bin]] table.
type Bin struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// The [workspace] table.
type Workspace struct {
	Members []string `toml:"members"`
	Exclude []string `toml:"exclude"`
}

// Parses the Cargo.toml at path.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", abs, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidManifest, abs, err)
	}
	m.Path = abs

	if m.Package == nil && m.Workspace == nil {
		return nil, fmt.Errorf("%w: %s: neither [package] nor [workspace] is present", ErrInvalidManifest, abs)
	}

	for i, bin := range m.Bins {
		if bin.Name == "" {
			return nil, fmt.Errorf("%w: %s: [[bin]] #%d has no name", ErrInvalidManifest, abs, i+1)
		}
	}

	return &m, nil
}

// Walks up from startDir to the nearest directory containing Cargo.toml and
// returns the manifest path.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(dir, ManifestName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s", ErrManifestNotFound, startDir)
		}
		dir = parent
	}
}

// Directory containing the manifest.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// Returns the binary target names of the package in declaration order.
//
// Explicit [[bin]] tables come first. Inferred binaries follow unless
// autobins is disabled, skipping any whose name or source file is already
// claimed by an explicit table. A workspace-only manifest has no binaries.
func (m *Manifest) Binaries() []string {
	if m.Package == nil {
		return nil
	}

	names := make([]string, 0, len(m.Bins))
	claimedName := make(map[string]bool, len(m.Bins))
	claimedPath := make(map[string]bool, len(m.Bins))

	for _, bin := range m.Bins {
		if claimedName[bin.Name] {
			continue
		}
		names = append(names, bin.Name)
		claimedName[bin.Name] = true
		if bin.Path != "" {
			claimedPath[filepath.Clean(bin.Path)] = true
		}
	}

	if m.Package.Autobins != nil && !*m.Package.Autobins {
		return names
	}

	for _, bin := range inferBinaries(m.Dir(), m.Package.Name) {
		if claimedName[bin.Name] || claimedPath[bin.Path] {
			continue
		}
		names = append(names, bin.Name)
		claimedName[bin.Name] = true
	}

	return names
}

// Returns the binaries Cargo infers from the source layout.
//
// Paths are relative to the package root. src/main.rs is named after the
// package; entries under src/bin are returned in directory order.
func inferBinaries(root, pkgName string) []Bin {
	var bins []Bin

	main := filepath.Join("src", "main.rs")
	if isFile(filepath.Join(root, main)) {
		bins = append(bins, Bin{Name: pkgName, Path: main})
	}

	binDir := filepath.Join("src", "bin")
	entries, err := os.ReadDir(filepath.Join(root, binDir))
	if err != nil {
		return bins
	}

	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
			path := filepath.Join(binDir, name, "main.rs")
			if isFile(filepath.Join(root, path)) {
				bins = append(bins, Bin{Name: name, Path: path})
			}
		case strings.HasSuffix(name, ".rs"):
			bins = append(bins, Bin{Name: strings.TrimSuffix(name, ".rs"), Path: filepath.Join(binDir, name)})
		}
	}

	return bins
}

// Whether path names an existing regular file.
func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
