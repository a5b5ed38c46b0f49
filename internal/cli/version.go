package cli

import (
	"context"
	"fmt"

	"github.com/paritytech/cargo-pvm-contract/internal"
	"github.com/paritytech/cargo-pvm-contract/internal/pvm"
)

// Represents the 'cargo pvm-contract version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	fmt.Printf("host functions: %s v%d\n", pvm.HostFunctionsV1.Module, pvm.HostFunctionsV1.Version)
	return nil
}
