// Package build runs the contract build pipeline.
//
// A build moves through four stages in order: the binary target is
// resolved from crate metadata, compiled to a native RISC-V object,
// converted into a PolkaVM-framed program, and written to its destination.
// Each stage consumes only the previous stage's result. The first failure stops
// the pipeline and is returned as a [*StageError] naming the stage; nothing
// is retried.
//
// Collaborators are passed in through [Deps], so the pipeline itself never
// touches the compiler or the container runtime directly.
//
// Example usage:
//
//	res, err := build.Run(ctx, build.Deps{
//	    Metadata:  cargo.NewProvider(""),
//	    Compiler:  toolchain.NewInvoker(toolchain.NewCargo("cargo", os.Stderr), profile, paths.Targets()),
//	    Converter: pvm.NewConverter(pvm.HostFunctionsV1, pvm.Options{Strip: true}, nil),
//	}, build.Request{Root: cwd})
//	if err != nil {
//	    return err
//	}
package build
