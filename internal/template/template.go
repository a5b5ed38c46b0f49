package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/paritytech/cargo-pvm-contract/internal/paths"
)

// Template used when none is named.
const Default = "pico-alloc"

// Manifest template file name inside a template directory.
const manifestTemplate = "_Cargo.toml"

//go:embed all:templates
var templates embed.FS

// Valid Cargo package names.
var crateName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// A name key with a string value, followed by anything such as a comment.
var nameKey = regexp.MustCompile(`^(\s*name\s*=\s*)("[^"]*"|'[^']*')(.*)$`)

// Returns the names of the available templates, sorted.
func Names() []string {
	entries, err := fs.ReadDir(templates, "templates")
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

// Creates the crate name in dir from the named template.
//
// dir must not exist yet. On failure the partially written directory is
// removed.
func Instantiate(name, tmpl, dir string) (err error) {
	if !crateName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	root := path.Join("templates", tmpl)
	if !slices.Contains(Names(), tmpl) {
		return fmt.Errorf("%w: %q (available: %s)", ErrUnknownTemplate, tmpl, strings.Join(Names(), ", "))
	}

	if err := os.Mkdir(dir, paths.DefaultDirMode); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDirExists, dir)
		}
		return err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(dir)
		}
	}()

	slog.Debug("instantiating template", "template", tmpl, "dir", dir)

	return fs.WalkDir(templates, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if rel == "" {
			return nil
		}
		dest := filepath.Join(dir, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(dest, paths.DefaultDirMode)
		}

		data, err := templates.ReadFile(p)
		if err != nil {
			return err
		}

		if rel == manifestTemplate {
			dest = filepath.Join(dir, "Cargo.toml")
			if data, err = renamePackage(data, name); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidTemplate, tmpl, err)
			}
		}

		slog.Debug("writing template file", "path", dest)
		return os.WriteFile(dest, data, paths.DefaultFileMode)
	})
}

// Returns the manifest with package.name replaced.
//
// Only the name line of the [package] table is rewritten, so comments and
// key order survive. The result is decoded again to confirm the new name.
func renamePackage(manifest []byte, name string) ([]byte, error) {
	lines := strings.SplitAfter(string(manifest), "\n")
	table := ""
	renamed := false

	for i, line := range lines {
		body := strings.TrimRight(line, "\r\n")
		eol := line[len(body):]

		switch trimmed := strings.TrimSpace(body); {
		case strings.HasPrefix(trimmed, "[["):
			table = ""
		case strings.HasPrefix(trimmed, "["):
			table = ""
			if end := strings.Index(trimmed, "]"); end > 0 {
				table = strings.TrimSpace(trimmed[1:end])
			}
		case table == "package" && !renamed:
			if m := nameKey.FindStringSubmatch(body); m != nil {
				lines[i] = m[1] + strconv.Quote(name) + m[3] + eol
				renamed = true
			}
		}
	}
	if !renamed {
		return nil, errors.New("manifest has no [package] name")
	}

	out := []byte(strings.Join(lines, ""))

	var check struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(out, &check); err != nil {
		return nil, err
	}
	if check.Package.Name != name {
		return nil, fmt.Errorf("package name is %q after rewrite", check.Package.Name)
	}
	return out, nil
}
