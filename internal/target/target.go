package target

import "context"

// Describes the binary targets of a crate or workspace.
type Metadata struct {
	ManifestPath string    // Manifest at the crate or workspace root.
	Packages     []Package // Packages in declaration order, root package first.
}

// A package and the binary targets it declares.
type Package struct {
	Name         string   // Package name from the manifest.
	Root         string   // Directory containing the package manifest.
	ManifestPath string   // Absolute path to the package manifest.
	Binaries     []string // Binary target names in declaration order.
}

// Reports crate metadata for a directory.
//
// Implementations only inspect files; they never build anything.
type Provider interface {
	Metadata(ctx context.Context, root string) (*Metadata, error)
}

// The binary target a build compiles.
//
// Binary names exactly one binary target declared in the manifest at
// ManifestPath.
type Resolved struct {
	CrateRoot     string // Directory containing ManifestPath.
	Binary        string // Binary target name.
	ManifestPath  string // Manifest of the package declaring Binary.
	Package       string // Name of the package declaring Binary.
	WorkspaceRoot string // Directory of the root manifest; equals CrateRoot outside workspaces.
}
