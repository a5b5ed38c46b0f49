package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Sequence of exec process identifiers within this process.
var execSeq atomic.Uint64

// Returns a unique exec process identifier.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", execSeq.Add(1))
}

// Runs a command and arguments directly inside the container.
//
// The command runs without shell wrapping. Environment variables and working
// directory override the container's OCI spec for this execution only. Output
// streams may be nil. A non-zero exit code is returned without an error; the
// caller decides how to treat it. When ctx is cancelled the process receives
// SIGINT and Run waits for it to exit.
func (c *Container) Run(ctx context.Context, args, env []string, workdir string, stdout, stderr io.Writer) (int, error) {
	pspec, err := c.buildProcessSpec(ctx, env, workdir, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return c.execProcess(ctx, pspec, nil, stdout, stderr)
}

// Builds an OCI process spec for running a command inside the container.
//
// The base values are copied from the container's own OCI spec, then env and
// workdir are overridden if provided.
func (c *Container) buildProcessSpec(ctx context.Context, env []string, workdir string, args ...string) (*specs.Process, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, err
	}

	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, err
	}

	pspec := *spec.Process
	pspec.Terminal = false
	pspec.Args = args

	if len(env) > 0 {
		pspec.Env = mergeEnv(pspec.Env, env)
	}
	if workdir != "" {
		pspec.Cwd = workdir
	}

	return &pspec, nil
}

// Merges override env vars on top of a base env slice.
//
// Overridden entries keep their position in base and new keys follow in
// override order. Entries without "=" are dropped.
func mergeEnv(base, overrides []string) []string {
	result := make([]string, 0, len(base)+len(overrides))
	index := make(map[string]int, len(base)+len(overrides))

	for _, entry := range slices.Concat(base, overrides) {
		k, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if i, seen := index[k]; seen {
			result[i] = entry
			continue
		}
		index[k] = len(result)
		result = append(result, entry)
	}
	return result
}

// Starts a process inside the container's running task, waits for it to exit,
// and returns the exit code.
//
// The process is attached to the task as an additional exec, not as the
// primary process. Nil output streams are replaced with io.Discard. When stdin
// is provided, the container's stdin is explicitly closed after the reader
// returns EOF so the exec process receives the EOF signal; the containerd
// shim holds both ends of the stdin FIFO open and will not propagate EOF on
// its own.
func (c *Container) execProcess(ctx context.Context, pspec *specs.Process, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	task, err := c.loadTask(ctx)
	if err != nil {
		return 0, err
	}

	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	var stdinDone <-chan struct{}
	if stdin != nil {
		er := watchEOF(stdin)
		stdin = er
		stdinDone = er.eof
	}

	process, err := task.Exec(ctx, nextExecID(), pspec, cio.NewCreator(
		cio.WithStreams(stdin, stdout, stderr),
	))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return awaitProcess(ctx, process, stdinDone)
}

// Loads the container's running task.
func (c *Container) loadTask(ctx context.Context) (containerd.Task, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return task, nil
}

// Waits for an exec process to exit and returns the exit code.
//
// The process is started, then the function blocks until it exits. If ctx is
// cancelled first, the process is sent SIGINT and the wait continues, so the
// caller never returns while the process is still running. If stdinDone is
// non-nil, the process stdin is closed when the channel fires. The process is
// always deleted before returning.
func awaitProcess(ctx context.Context, process containerd.Process, stdinDone <-chan struct{}) (int, error) {
	bg := context.WithoutCancel(ctx)

	statusC, err := process.Wait(bg)
	if err != nil {
		process.Delete(bg)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := process.Start(ctx); err != nil {
		process.Delete(bg)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if stdinDone != nil {
		go func() {
			<-stdinDone
			process.CloseIO(bg, containerd.WithStdinCloser)
		}()
	}

	var exitStatus containerd.ExitStatus
	select {
	case exitStatus = <-statusC:
	case <-ctx.Done():
		slog.Debug("forwarding interrupt", "process", process.ID())
		process.Kill(bg, syscall.SIGINT)
		exitStatus = <-statusC
	}
	process.Delete(bg)

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	code, _, err := exitStatus.Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return int(code), nil
}

// Reports when the wrapped reader is drained.
//
// The containerd shim holds both ends of the stdin FIFO open, so the exec
// process only sees EOF once stdin is closed explicitly.
type eofReader struct {
	io.Reader
	eof  chan struct{} // Closed on the first EOF.
	once sync.Once
}

// Wraps r in an [eofReader].
func watchEOF(r io.Reader) *eofReader {
	return &eofReader{Reader: r, eof: make(chan struct{})}
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.Reader.Read(p)
	if errors.Is(err, io.EOF) {
		e.once.Do(func() { close(e.eof) })
	}
	return n, err
}
