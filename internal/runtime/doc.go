// Package runtime runs toolchain containers backed by containerd.
//
// A [Runtime] connects to a containerd daemon and starts containers from a
// toolchain image shipped as an OCI archive. The archive is imported, tagged
// with a deterministic content hash, unpacked for the target platform, and
// used to create a container with an overlayfs snapshot.
//
// Each [Container] wraps a running containerd task. Processes can be run
// inside it and files can be copied in and out as tar streams. The toolchain
// package uses this to compile a crate hermetically: the sources are copied
// in, cargo runs inside the container, and the linked object is copied out.
// When the container is no longer needed it should be destroyed to release
// its snapshot and task resources.
//
// Example usage:
//
//	rt, err := runtime.New("/run/containerd/containerd.sock", "pvm-contract")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	ctr, err := rt.StartContainer(ctx, "toolchain.tar", "pvm-build-1", "")
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	code, err := ctr.Run(ctx, []string{"cargo", "--version"}, nil, "", os.Stdout, os.Stderr)
package runtime
