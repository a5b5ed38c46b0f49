package runtime

import (
	"context"
	"log/slog"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

const (

	// Label set on every toolchain container.
	toolchainLabel = "org.paritytech.cargo-pvm-contract.toolchain"

	// Environment every process in a toolchain container starts with.
	// Diagnostics are captured as plain text.
	toolchainEnv = "CARGO_TERM_COLOR=never"
)

// A running toolchain container backed by containerd.
type Container struct {
	client   *containerd.Client // Containerd client owning the container.
	id       string             // Containerd container ID.
	image    string             // Tag of the toolchain image.
	platform string             // OCI platform (e.g., "linux/amd64").
}

// Returns the container ID.
func (c *Container) ID() string {
	return c.id
}

// Removes the container and its resources.
//
// After destruction the handle is invalid. Failures are logged, since the
// next container with the same ID replaces any leftovers anyway.
func (c *Container) Destroy(ctx context.Context) {
	if err := c.teardown(ctx); err != nil {
		slog.Warn("failed to destroy toolchain container", "id", c.id, "error", err)
	}
}

// Kills the task and deletes the container along with its snapshot.
//
// A container that does not exist is not an error.
func (c *Container) teardown(ctx context.Context) error {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return err
	}

	if task, err := ctr.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
			return err
		}
	}

	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		return err
	}
	return nil
}

// Creates the containerd container for the toolchain image.
//
// The host network namespace is shared so cargo can fetch dependencies.
func (c *Container) create(ctx context.Context, image containerd.Image) (containerd.Container, error) {
	return c.client.NewContainer(ctx, c.id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(snapshotter),
		containerd.WithNewSnapshot(c.id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithContainerLabels(map[string]string{toolchainLabel: c.image}),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(c.platform),
			oci.WithImageConfig(image),
			oci.WithEnv([]string{toolchainEnv}),
			oci.WithHostNamespace(specs.NetworkNamespace),
			oci.WithHostResolvconf,
			oci.WithProcessArgs("sleep", "infinity"),
		),
	)
}

// Starts the container's idle task that processes are attached to.
func (c *Container) startTask(ctx context.Context, ctr containerd.Container) error {
	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err != nil {
		return err
	}
	if err := task.Start(ctx); err != nil {
		task.Delete(ctx)
		return err
	}
	return nil
}
