package runtime

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Decides whether a host path is left out of a directory copy.
//
// rel is the slash-separated path relative to the copied directory.
type SkipFunc func(rel string, d fs.DirEntry) bool

// Creates a directory inside the container, including parents.
func (c *Container) MkdirAll(ctx context.Context, path string) error {
	return c.mustExec(ctx, "mkdir", nil, nil, "mkdir", "-p", path)
}

// Copies a tar stream into the container's filesystem.
//
// The contents of r are extracted into destDir by piping them to "tar xf - -C
// destDir" inside the container.
func (c *Container) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	return c.mustExec(ctx, "tar extract", r, nil, "tar", "xf", "-", "-C", destDir)
}

// Copies a path from the container's filesystem as a tar stream.
//
// The file or directory at path is archived by running "tar cf - -C <dir>
// <base>" inside the container and streaming the output to w.
func (c *Container) CopyFrom(ctx context.Context, w io.Writer, path string) error {
	return c.mustExec(ctx, "tar archive", nil, w, "tar", "cf", "-", "-C", filepath.Dir(path), filepath.Base(path))
}

// Copies a host directory tree into the container at dest.
//
// Entries for which skip returns true are left out; a skipped directory is
// not descended into.
func (c *Container) CopyDirTo(ctx context.Context, hostDir, dest string, skip SkipFunc) error {
	if err := c.MkdirAll(ctx, filepath.Dir(dest)); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	slog.Debug("copy into container", "src", hostDir, "dest", dest)

	pr, pw := io.Pipe()
	go func() {
		tw := tar.NewWriter(pw)
		writeErr := writeDirToTar(tw, hostDir, filepath.Base(dest), skip)
		if closeErr := tw.Close(); writeErr == nil {
			writeErr = closeErr
		}
		pw.CloseWithError(writeErr)
	}()

	if err := c.CopyTo(ctx, pr, filepath.Dir(dest)); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	return nil
}

// Copies a host file into the container at dest.
func (c *Container) CopyFileTo(ctx context.Context, hostPath, dest string) error {
	if err := c.MkdirAll(ctx, filepath.Dir(dest)); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := writeFileToTar(tw, hostPath, filepath.Base(dest)); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	if err := c.CopyTo(ctx, &buf, filepath.Dir(dest)); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}
	return nil
}

// Copies a single regular file out of the container to hostPath.
func (c *Container) CopyFileFrom(ctx context.Context, path, hostPath string) error {
	var buf bytes.Buffer
	if err := c.CopyFrom(ctx, &buf, path); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	if err := os.MkdirAll(filepath.Dir(hostPath), 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	if err := extractFile(tar.NewReader(&buf), filepath.Base(path), hostPath); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}
	return nil
}

// Helper method that runs a command inside the container, returning an error
// that includes desc if the process exits with a non-zero code.
func (c *Container) mustExec(ctx context.Context, desc string, stdin io.Reader, stdout io.Writer, args ...string) error {
	pspec, err := c.buildProcessSpec(ctx, nil, "", args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	var stderr bytes.Buffer
	exitCode, err := c.execProcess(ctx, pspec, stdin, stdout, &stderr)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("%w: %s failed with exit code %d (%s)", ErrRuntime, desc, exitCode, stderr.String())
	}
	return nil
}

// Writes a single file to a tar writer with the given archive name.
func writeFileToTar(tw *tar.Writer, hostPath, name string) error {
	info, err := os.Stat(hostPath)
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	f, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}

// Writes a directory tree to a tar writer rooted at the given archive prefix.
func writeDirToTar(tw *tar.Writer, hostDir, prefix string, skip SkipFunc) error {
	return filepath.WalkDir(hostDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(hostDir, path)
		if err != nil {
			return err
		}

		if relPath != "." && skip != nil && skip(filepath.ToSlash(relPath), d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		archivePath := filepath.ToSlash(filepath.Join(prefix, relPath))
		return writeTarEntry(tw, path, archivePath, d)
	})
}

// Writes a single file or directory entry to a tar writer.
//
// Symbolic links are recorded as links, not followed.
func writeTarEntry(tw *tar.Writer, hostPath, archivePath string, d os.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		if link, err = os.Readlink(hostPath); err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	header.Name = archivePath

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if info.Mode().IsRegular() {
		f, err := os.Open(hostPath)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	}

	return nil
}

// Extracts the regular file called name from a tar stream to hostPath.
func extractFile(tr *tar.Reader, name, hostPath string) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return fmt.Errorf("%s not found in archive", name)
		}
		if err != nil {
			return err
		}

		if filepath.Clean(header.Name) != name || header.Typeflag != tar.TypeReg {
			continue
		}

		f, err := os.OpenFile(hostPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}
