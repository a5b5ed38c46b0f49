package cargo

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/paritytech/cargo-pvm-contract/internal/target"
)

// Reports binary targets by reading Cargo manifests from disk.
type Provider struct {
	manifestPath string // Explicit manifest path; empty means search upwards.
}

var _ target.Provider = (*Provider)(nil)

// Creates a new [Provider].
//
// When manifestPath is empty the manifest is found by walking up from the
// root directory passed to Metadata.
func NewProvider(manifestPath string) *Provider {
	return &Provider{manifestPath: manifestPath}
}

// Returns the packages and binary targets reachable from root.
//
// For a workspace manifest the root package (if any) is listed first,
// followed by members in the order their patterns appear.
func (p *Provider) Metadata(ctx context.Context, root string) (*target.Metadata, error) {
	path := p.manifestPath
	if path == "" {
		found, err := Find(root)
		if err != nil {
			return nil, err
		}
		path = found
	}

	m, err := Load(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("found manifest", "path", m.Path)

	md := &target.Metadata{ManifestPath: m.Path}
	if m.Package != nil {
		md.Packages = append(md.Packages, packageOf(m))
	}

	if m.Workspace != nil {
		members, err := workspaceMembers(ctx, m)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			md.Packages = append(md.Packages, packageOf(member))
		}
	}

	return md, nil
}

// Loads the package manifests of the workspace members.
//
// Member entries may be glob patterns. Directories without a manifest,
// excluded directories, and the workspace root itself are skipped.
func workspaceMembers(ctx context.Context, ws *Manifest) ([]*Manifest, error) {
	root := ws.Dir()

	excluded := make(map[string]bool, len(ws.Workspace.Exclude))
	for _, e := range ws.Workspace.Exclude {
		excluded[filepath.Join(root, e)] = true
	}

	var members []*Manifest
	var seen []string

	for _, pattern := range ws.Workspace.Members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dirs, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad member pattern %q: %w", ErrInvalidManifest, ws.Path, pattern, err)
		}

		for _, dir := range dirs {
			if excluded[dir] || dir == root || slices.Contains(seen, dir) {
				continue
			}
			path := filepath.Join(dir, ManifestName)
			if !isFile(path) {
				continue
			}

			m, err := Load(path)
			if err != nil {
				return nil, err
			}
			if m.Package == nil {
				continue
			}

			seen = append(seen, dir)
			members = append(members, m)
		}
	}

	return members, nil
}

// Converts a package manifest into target metadata.
func packageOf(m *Manifest) target.Package {
	return target.Package{
		Name:         m.Package.Name,
		Root:         m.Dir(),
		ManifestPath: m.Path,
		Binaries:     m.Binaries(),
	}
}
