package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paritytech/cargo-pvm-contract/internal"
	"github.com/paritytech/cargo-pvm-contract/internal/template"
)

// Represents the 'cargo pvm-contract init' command.
type InitCmd struct {
	Name     string `arg:"" help:"Name of the new crate, also used as its directory."`
	Template string `short:"t" default:"${default_template}" help:"Template to start from (${templates})."`
}

// Executes the init command.
//
// The crate is created in a new directory under the working directory.
func (c *InitCmd) Run(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	dir := filepath.Join(cwd, c.Name)

	slog.Debug("initializing contract", "name", c.Name, "template", c.Template)

	if err := template.Instantiate(c.Name, c.Template, dir); err != nil {
		return err
	}

	fmt.Printf("Successfully initialized contract project: %s\n", dir)
	fmt.Printf("\nNext steps:\n  cd %s\n  cargo %s build\n", c.Name, internal.Subcommand)
	return nil
}
