package toolchain

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/paritytech/cargo-pvm-contract/internal/runtime"
)

const (
	// Age after which a toolchain container is assumed to be left over from
	// an interrupted build.
	staleAfter = 24 * time.Hour

	// Workspace location inside the toolchain container.
	containerWorkspace = "/build/workspace"

	// Directory for target specifications inside the toolchain container.
	containerTargets = "/build/targets"
)

// Runs cargo inside a containerd toolchain container.
//
// The workspace is copied into a fresh container started from the toolchain
// image, cargo runs there, and the linked object is copied back into a
// scratch directory on the host. The container is destroyed afterwards. The
// host's cargo configuration and toolchain are never consulted.
type Container struct {
	rt       *runtime.Runtime // Containerd runtime.
	image    string           // Path to the toolchain image OCI archive.
	platform string           // OCI platform, empty for the host platform.
	scratch  string           // Host directory receiving compiled objects.
	output   *lockedWriter    // Receives cargo's output as it is produced.
}

var _ Backend = (*Container)(nil)

// Creates a new [Container] backend.
//
// Writes to output are serialized.
func NewContainer(rt *runtime.Runtime, image, platform, scratch string, output io.Writer) *Container {
	return &Container{
		rt:       rt,
		image:    image,
		platform: platform,
		scratch:  scratch,
		output:   newLockedWriter(output),
	}
}

// Compiles the invocation inside a new toolchain container.
func (c *Container) Compile(ctx context.Context, inv *Invocation) (string, error) {
	remote, err := inv.rebase(containerWorkspace, path.Join(containerTargets, inv.Triple()+".json"))
	if err != nil {
		return "", err
	}

	if err := c.rt.Reap(ctx, staleAfter); err != nil {
		slog.Warn("cannot reap stale toolchain containers", "error", err)
	}

	id := containerID(inv, rand.Text())
	ctr, err := c.rt.StartContainer(ctx, c.image, id, c.platform)
	if err != nil {
		return "", err
	}
	defer ctr.Destroy(context.WithoutCancel(ctx))

	if err := ctr.CopyDirTo(ctx, inv.WorkspaceRoot, containerWorkspace, skipBuildOutputs); err != nil {
		return "", err
	}
	if err := ctr.CopyFileTo(ctx, inv.TargetSpec, remote.TargetSpec); err != nil {
		return "", err
	}

	slog.Debug("running cargo in container", "id", id, "dir", remote.CrateRoot)

	var diag bytes.Buffer
	args := append([]string{"cargo"}, remote.Args()...)
	code, err := ctr.Run(ctx, args, remote.Env(), remote.CrateRoot, c.output, io.MultiWriter(&diag, c.output))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	if code != 0 {
		return "", &CompileError{
			Binary:      inv.Binary,
			Diagnostics: diag.String(),
			Err:         fmt.Errorf("exit code %d", code),
		}
	}

	obj := filepath.Join(c.scratch, id, inv.Binary)
	if err := ctr.CopyFileFrom(ctx, remote.ObjectPath(), obj); err != nil {
		return "", err
	}

	return obj, nil
}

// Returns the container ID of one build of the invocation's binary.
//
// The prefix identifies the binary and nonce tells concurrent builds of it
// apart. The ID also names the scratch directory receiving the object.
func containerID(inv *Invocation, nonce string) string {
	d := digest.FromString(inv.ManifestPath + "\x00" + inv.Binary + "\x00" + inv.Triple())
	return "pvm-build-" + d.Encoded()[:16] + "-" + strings.ToLower(nonce)
}

// Leaves build outputs and version control data out of the workspace copy.
func skipBuildOutputs(rel string, d fs.DirEntry) bool {
	if !d.IsDir() {
		return false
	}
	switch rel {
	case "target", ".git":
		return true
	}
	return false
}
