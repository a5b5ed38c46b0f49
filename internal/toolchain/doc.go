// Package toolchain compiles a contract binary into a native object.
//
// The [Invoker] builds the resolved binary with a fixed profile: release
// mode tuned for size, core and alloc rebuilt from source without unwinding,
// panics that abort immediately, and a custom rustc target describing the
// PolkaVM flavour of RISC-V. Every setting is injected for the duration of a
// single invocation, through cargo --config overrides and
// CARGO_ENCODED_RUSTFLAGS, so neither the crate's Cargo.toml nor its
// .cargo/config.toml is consulted or modified for codegen. The same crate
// therefore builds to the same object layout on every machine.
//
// The compiler process itself is run by a [Backend]. [Cargo] runs cargo on
// the host; [Container] runs it inside a containerd toolchain container and
// copies the object out. Both block until the process exits and forward
// cancellation to it as an interrupt.
//
// Example usage:
//
//	inv := toolchain.NewInvoker(toolchain.NewCargo("cargo", os.Stderr), toolchain.DefaultProfile(64), paths.Targets())
//	artifact, err := inv.Compile(ctx, resolved)
//	if err != nil {
//	    var cerr *toolchain.CompileError
//	    if errors.As(err, &cerr) {
//	        fmt.Fprint(os.Stderr, cerr.Diagnostics)
//	    }
//	    return err
//	}
package toolchain
