package output

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"github.com/paritytech/cargo-pvm-contract/internal/paths"
	"github.com/paritytech/cargo-pvm-contract/internal/pvm"
)

// Where a program is written.
type Location struct {
	Path      string // Absolute destination path.
	Overwrite bool   // Replace an existing file at Path.
}

// Renames the temporary file into place.
var rename = os.Rename

// Returns the destination for a binary's program.
//
// An explicit path is resolved against workDir when relative. Without one,
// the program is written to workDir as <binary>.polkavm. Existing files are
// replaced either way.
func Locate(binary, explicit, workDir string) Location {
	path := explicit
	if path == "" {
		path = binary + "." + pvm.Extension
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	return Location{Path: filepath.Clean(path), Overwrite: true}
}

// Writes a program to loc and returns the digest of its bytes.
func Write(ctx context.Context, prog *pvm.Program, loc Location) (digest.Digest, error) {
	if !loc.Overwrite {
		if _, err := os.Lstat(loc.Path); err == nil {
			return "", &WriteError{Path: loc.Path, Err: ErrExists}
		}
	}

	if err := WriteFile(ctx, loc.Path, prog.Bytes, paths.DefaultFileMode); err != nil {
		return "", err
	}

	d := digest.FromBytes(prog.Bytes)
	slog.Debug("program written", "path", loc.Path, "size", len(prog.Bytes), "digest", d)
	return d, nil
}

// Atomically replaces the file at path with data.
//
// Parent directories are created as needed. Cancellation is checked before
// the rename, the last point at which the destination is still untouched.
// Failures are reported as [*WriteError].
func WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Chmod(perm); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := rename(tmp.Name(), path); err != nil {
		return &WriteError{Path: path, Err: fmt.Errorf("rename into place: %w", err)}
	}

	syncDir(dir)
	return nil
}

// Flushes a directory entry update to disk, where supported.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		slog.Debug("directory sync failed", "dir", dir, "error", err)
	}
}
