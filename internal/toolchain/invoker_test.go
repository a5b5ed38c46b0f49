package toolchain

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paritytech/cargo-pvm-contract/internal/target"
)

type fakeBackend struct {
	inv    *Invocation
	object []byte
	err    error
}

func (f *fakeBackend) Compile(ctx context.Context, inv *Invocation) (string, error) {
	f.inv = inv
	if f.err != nil {
		return "", f.err
	}
	path := inv.ObjectPath()
	if f.object != nil {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, f.object, 0644); err != nil {
			return "", err
		}
	}
	return path, nil
}

func resolved(root string) *target.Resolved {
	return &target.Resolved{
		CrateRoot:     root,
		Binary:        "flipper",
		ManifestPath:  filepath.Join(root, "Cargo.toml"),
		Package:       "flipper",
		WorkspaceRoot: root,
	}
}

func TestInvokerCompile(t *testing.T) {
	root := t.TempDir()
	specs := t.TempDir()
	backend := &fakeBackend{object: []byte("\x7fELF")}

	art, err := NewInvoker(backend, DefaultProfile(64), specs).Compile(context.Background(), resolved(root))
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(root, "target", "riscv64emac-unknown-none-polkavm", "release", "flipper")
	if art.ObjectPath != want {
		t.Fatalf("ObjectPath = %q, want %q", art.ObjectPath, want)
	}
	if art.Triple != "riscv64emac-unknown-none-polkavm" {
		t.Fatalf("Triple = %q", art.Triple)
	}

	spec := filepath.Join(specs, "riscv64emac-unknown-none-polkavm.json")
	if backend.inv.TargetSpec != spec {
		t.Fatalf("TargetSpec = %q, want %q", backend.inv.TargetSpec, spec)
	}
	if _, err := os.Stat(spec); err != nil {
		t.Fatalf("target spec not installed: %v", err)
	}
}

func TestInvokerCompileWorkspaceMember(t *testing.T) {
	root := t.TempDir()
	member := filepath.Join(root, "contracts", "flipper")
	r := resolved(member)
	r.WorkspaceRoot = root
	backend := &fakeBackend{object: []byte("\x7fELF")}

	if _, err := NewInvoker(backend, DefaultProfile(64), t.TempDir()).Compile(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "target"); backend.inv.TargetDir != want {
		t.Fatalf("TargetDir = %q, want %q", backend.inv.TargetDir, want)
	}
	if backend.inv.CrateRoot != member {
		t.Fatalf("CrateRoot = %q, want %q", backend.inv.CrateRoot, member)
	}
}

func TestInvokerCompileMissingObject(t *testing.T) {
	backend := &fakeBackend{}

	_, err := NewInvoker(backend, DefaultProfile(64), t.TempDir()).Compile(context.Background(), resolved(t.TempDir()))
	if !errors.Is(err, ErrCompileFailed) {
		t.Fatalf("err = %v, want ErrCompileFailed", err)
	}
}

func TestInvokerCompileWrapsBackendError(t *testing.T) {
	cause := errors.New("exec: cargo not found")
	backend := &fakeBackend{err: cause}

	_, err := NewInvoker(backend, DefaultProfile(64), t.TempDir()).Compile(context.Background(), resolved(t.TempDir()))
	if !errors.Is(err, ErrCompileFailed) {
		t.Fatalf("err = %v, want ErrCompileFailed", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want it to wrap the cause", err)
	}
}

func TestInvokerCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	backend := &fakeBackend{err: errors.New("signal: interrupt")}

	_, err := NewInvoker(backend, DefaultProfile(64), t.TempDir()).Compile(ctx, resolved(t.TempDir()))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestInstallTargetSpecIdempotent(t *testing.T) {
	dir := t.TempDir()
	triple := DefaultProfile(64).Triple()

	path, err := InstallTargetSpec(context.Background(), dir, triple)
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	if _, err := InstallTargetSpec(context.Background(), dir, triple); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Fatal("identical target spec was rewritten")
	}
}

// Writes an executable shell script standing in for cargo.
func fakeCargo(t *testing.T, script string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "cargo")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

const writeObject = `
while [ $# -gt 0 ]; do
	case "$1" in
		--bin) bin="$2"; shift ;;
		--target-dir) dir="$2"; shift ;;
	esac
	shift
done
[ "$RUSTC_BOOTSTRAP" = 1 ] || { echo "RUSTC_BOOTSTRAP not set" >&2; exit 2; }
mkdir -p "$dir/riscv64emac-unknown-none-polkavm/release"
printf 'ELF' > "$dir/riscv64emac-unknown-none-polkavm/release/$bin"
`

func TestCargoCompile(t *testing.T) {
	root := t.TempDir()
	inv := testInvocation(root)
	inv.CrateRoot = root

	obj, err := NewCargo(fakeCargo(t, writeObject), nil).Compile(context.Background(), inv)
	if err != nil {
		t.Fatal(err)
	}
	if obj != inv.ObjectPath() {
		t.Fatalf("object = %q, want %q", obj, inv.ObjectPath())
	}
	if data, err := os.ReadFile(obj); err != nil || string(data) != "ELF" {
		t.Fatalf("object contents = %q, %v", data, err)
	}
}

func TestCargoCompileFailureKeepsDiagnostics(t *testing.T) {
	root := t.TempDir()
	inv := testInvocation(root)
	inv.CrateRoot = root
	diag := "error[E0425]: cannot find value `x` in this scope\n"

	var out bytes.Buffer
	_, err := NewCargo(fakeCargo(t, "printf '"+diag+"' >&2\nexit 101\n"), &out).Compile(context.Background(), inv)

	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CompileError", err)
	}
	if ce.Diagnostics != diag {
		t.Fatalf("Diagnostics = %q, want %q", ce.Diagnostics, diag)
	}
	if out.String() != diag {
		t.Fatalf("streamed output = %q, want %q", out.String(), diag)
	}
	if ce.Binary != "flipper" {
		t.Fatalf("Binary = %q, want flipper", ce.Binary)
	}
}

func TestCargoCompileCancelled(t *testing.T) {
	root := t.TempDir()
	inv := testInvocation(root)
	inv.CrateRoot = root
	cargo := NewCargo(fakeCargo(t, "exec sleep 30\n"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := cargo.Compile(ctx, inv)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation took %s", elapsed)
	}
}

func TestSkipBuildOutputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"target", ".git", "src"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "target.rs"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"target": true, ".git": true, "src": false, "target.rs": false}
	for _, e := range entries {
		if got := skipBuildOutputs(e.Name(), e); got != want[e.Name()] {
			t.Fatalf("skipBuildOutputs(%q) = %v, want %v", e.Name(), got, want[e.Name()])
		}
	}
}

func TestContainerID(t *testing.T) {
	inv := testInvocation("/work")

	a, b := containerID(inv, "A1"), containerID(inv, "B2")
	if a == b {
		t.Fatalf("concurrent builds share container ID %q", a)
	}
	if !strings.HasSuffix(a, "-a1") {
		t.Fatalf("containerID = %q, want lower-cased nonce suffix", a)
	}

	prefix := strings.TrimSuffix(a, "a1")
	if !strings.HasPrefix(b, prefix) {
		t.Fatalf("containerID = %q, want prefix %q for the same binary", b, prefix)
	}

	inv.Binary = "other"
	if strings.HasPrefix(containerID(inv, "A1"), prefix) {
		t.Fatal("containerID ignores the binary name")
	}
}

func TestCargoCompileInterleavedOutput(t *testing.T) {
	root := t.TempDir()
	inv := testInvocation(root)
	inv.CrateRoot = root
	script := `i=0
while [ $i -lt 50 ]; do
	echo "warning: line $i"
	echo "error: line $i" >&2
	i=$((i + 1))
done
exit 101
`

	var out bytes.Buffer
	_, err := NewCargo(fakeCargo(t, script), &out).Compile(context.Background(), inv)

	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CompileError", err)
	}
	if n := strings.Count(ce.Diagnostics, "error: line "); n != 50 {
		t.Fatalf("diagnostics hold %d stderr lines, want 50", n)
	}
	if n := strings.Count(out.String(), "warning: line "); n != 50 {
		t.Fatalf("streamed output holds %d stdout lines, want 50", n)
	}
	if n := strings.Count(out.String(), "error: line "); n != 50 {
		t.Fatalf("streamed output holds %d stderr lines, want 50", n)
	}
}

func TestLockedWriterConcurrent(t *testing.T) {
	var buf bytes.Buffer
	w := newLockedWriter(&buf)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				w.Write([]byte("x"))
			}
		}()
	}
	wg.Wait()

	if buf.Len() != 800 {
		t.Fatalf("len = %d, want 800", buf.Len())
	}
}

func TestLockedWriterNil(t *testing.T) {
	if n, err := newLockedWriter(nil).Write([]byte("abc")); n != 3 || err != nil {
		t.Fatalf("Write = %d, %v, want 3, nil", n, err)
	}
}
