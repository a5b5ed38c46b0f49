package toolchain

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paritytech/cargo-pvm-contract/internal/output"
	"github.com/paritytech/cargo-pvm-contract/internal/paths"
)

// Rustc target specifications, one per supported register width.
//
//go:embed targets/*.json
var targetSpecs embed.FS

// Returns the target specification for triple.
func TargetSpec(triple string) ([]byte, error) {
	data, err := targetSpecs.ReadFile("targets/" + triple + ".json")
	if err != nil {
		return nil, fmt.Errorf("%w: unknown target %q", ErrTargetSpec, triple)
	}
	return data, nil
}

// Writes the target specification for triple into dir and returns its path.
//
// The file is named after the triple because cargo derives the target name
// (and with it the output directory) from the file stem. An identical
// existing file is left untouched so cargo's fingerprints stay valid.
func InstallTargetSpec(ctx context.Context, dir, triple string) (string, error) {
	data, err := TargetSpec(triple)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, triple+".json")
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return path, nil
	}

	if err := output.WriteFile(ctx, path, data, paths.DefaultFileMode); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTargetSpec, err)
	}

	slog.Debug("installed target specification", "path", path)
	return path, nil
}
