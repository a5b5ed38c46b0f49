package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	goruntime "runtime"
	"time"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (

	// Snapshotter used for container filesystems. fuse-overlayfs provides
	// overlay semantics without requiring root privileges (no mount(2)),
	// so builds can run as a regular user.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Manages the containerd client and provides image and container operations.
type Runtime struct {
	client *containerd.Client // Containerd client for managing containers and images.
}

// Creates a runtime connected to the containerd socket at the given address.
//
// The namespace scopes all containerd operations to a single tenant. The
// runtime must be closed when no longer needed.
func New(address, namespace string) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return &Runtime{client: client}, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Starts a toolchain container from the OCI archive at path.
//
// The archive is imported and tagged with a name derived from the path, then
// unpacked for the requested platform. The container idles on a long-running
// task so [Container.Run] has a process to attach to. The ID must not be in
// use; leftovers of interrupted builds are removed by [Runtime.Reap]. An
// empty platform selects the host platform.
func (rt *Runtime) StartContainer(ctx context.Context, path, id, platform string) (*Container, error) {
	p, err := parsePlatform(platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	tag := imageTag(path)

	source, err := rt.importArchive(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := rt.tagImage(ctx, source, tag); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	image := rt.platformImage(ctx, source, tag, p)
	if err := image.Unpack(ctx, snapshotter); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	c := &Container{
		client:   rt.client,
		id:       id,
		image:    tag,
		platform: platforms.Format(p),
	}

	ctr, err := c.create(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := c.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("container started", "id", id, "image", tag, "platform", c.platform)

	return c, nil
}

// Removes toolchain containers created more than age ago.
//
// Containers are found by label, so only those started by this tool are
// considered. Younger ones may belong to builds still running and are kept.
func (rt *Runtime) Reap(ctx context.Context, age time.Duration) error {
	ctrs, err := rt.client.Containers(ctx, toolchainFilter())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	now := time.Now()
	for _, ctr := range ctrs {
		info, err := ctr.Info(ctx)
		if err != nil {
			slog.Debug("cannot inspect toolchain container", "id", ctr.ID(), "error", err)
			continue
		}
		if !stale(info.CreatedAt, now, age) {
			continue
		}

		c := &Container{client: rt.client, id: ctr.ID()}
		if err := c.teardown(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrRuntime, err)
		}
		slog.Debug("reaped stale toolchain container", "id", ctr.ID(), "created", info.CreatedAt)
	}
	return nil
}

// Returns the containerd filter matching toolchain containers.
func toolchainFilter() string {
	return fmt.Sprintf("labels.%q", toolchainLabel)
}

// Reports whether a container created at created is older than age.
func stale(created, now time.Time, age time.Duration) bool {
	return now.Sub(created) > age
}

// Imports an OCI archive into the content store.
//
// The archive must contain exactly one image. Multi-platform archives
// are supported (single OCI index with per-platform manifests).
func (rt *Runtime) importArchive(ctx context.Context, path string) (images.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return images.Image{}, err
	}
	defer fh.Close()

	imported, err := rt.client.Import(ctx, fh)
	if err != nil {
		return images.Image{}, err
	}

	// A multi-platform archive has a single entry (an OCI index that
	// references per-platform manifests); platform selection happens in
	// platformImage.
	if len(imported) == 0 {
		return images.Image{}, ErrEmptyArchive
	} else if len(imported) > 1 {
		return images.Image{}, ErrMultipleImages
	}

	return imported[0], nil
}

// Tags an imported image under a deterministic name.
//
// Updates the tag if it already exists. Removes the source record when
// its name differs from the tag to avoid duplicates.
func (rt *Runtime) tagImage(ctx context.Context, source images.Image, tag string) error {
	is := rt.client.ImageService()

	img := images.Image{
		Name:   tag,
		Target: source.Target,
	}

	if _, err := is.Create(ctx, img); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return err
		}
		if _, err := is.Update(ctx, img, "target"); err != nil {
			return err
		}
	}

	if source.Name != tag {
		_ = is.Delete(ctx, source.Name)
	}

	return nil
}

// Returns the tagged image restricted to a single platform.
//
// Multi-platform images contain manifests for multiple architectures. This
// selects one, so that subsequent operations target the correct architecture.
func (rt *Runtime) platformImage(ctx context.Context, source images.Image, tag string, p ocispec.Platform) containerd.Image {
	img := images.Image{Name: tag, Target: source.Target}
	return containerd.NewImageWithPlatform(rt.client, img, platforms.Only(p))
}

// Produces a containerd image tag from an archive path.
//
// The path is hashed so the tag is a valid OCI reference whatever characters
// the path contains.
func imageTag(path string) string {
	return "pvm-toolchain/" + digest.FromString(path).Encoded() + ":latest"
}

// Returns the default OCI platform for the host architecture.
func defaultPlatform() string {
	return "linux/" + goruntime.GOARCH
}

// Parses an OCI platform string, defaulting to the host platform.
func parsePlatform(platform string) (ocispec.Platform, error) {
	if platform == "" {
		platform = defaultPlatform()
	}
	return platforms.Parse(platform)
}
