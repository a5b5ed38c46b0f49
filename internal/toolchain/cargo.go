package toolchain

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// Time a cancelled cargo process is given to exit after the interrupt
// before it is killed.
const cancelGrace = 10 * time.Second

// Runs cargo as a local process.
type Cargo struct {
	path   string        // Cargo executable.
	output *lockedWriter // Receives cargo's output as it is produced.
}

var _ Backend = (*Cargo)(nil)

// Creates a new [Cargo] backend.
//
// Compiler output is copied to output when it is non-nil; it is captured for
// [CompileError] either way. Writes to output are serialized.
func NewCargo(path string, output io.Writer) *Cargo {
	return &Cargo{path: path, output: newLockedWriter(output)}
}

// Runs cargo in the crate root and waits for it to exit.
//
// The invocation's environment is appended to the current environment, so
// its values take precedence. Cancelling ctx sends the process an interrupt
// the same way a terminal would.
func (c *Cargo) Compile(ctx context.Context, inv *Invocation) (string, error) {
	cmd := exec.CommandContext(ctx, c.path, inv.Args()...)
	cmd.Dir = inv.CrateRoot
	cmd.Env = append(os.Environ(), inv.Env()...)
	cmd.Cancel = func() error {
		slog.Debug("forwarding interrupt", "pid", cmd.Process.Pid)
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = cancelGrace

	var diag bytes.Buffer
	cmd.Stdout = c.output
	cmd.Stderr = io.MultiWriter(&diag, c.output)

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &CompileError{
			Binary:      inv.Binary,
			Diagnostics: diag.String(),
			Err:         err,
		}
	}

	return inv.ObjectPath(), nil
}
