package cli

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/paritytech/cargo-pvm-contract/internal"
	"github.com/paritytech/cargo-pvm-contract/internal/paths"
	"github.com/paritytech/cargo-pvm-contract/internal/settings"
	"github.com/paritytech/cargo-pvm-contract/internal/template"
)

// Represents the root command.
type rootCmd struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Show compiler output while building."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Config  string     `help:"Override the configuration file path." placeholder:"PATH"`
	Build   BuildCmd   `cmd:"" help:"Build a contract into a PolkaVM-framed program."`
	Init    InitCmd    `cmd:"" help:"Create a new contract crate."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parsed command line.
var RootCmd rootCmd

// Parses args, configures logging, and runs the selected subcommand.
//
// args excludes the program name.
func Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	parser, err := newParser(ctx)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(subcommandArgs(args))
	parser.FatalIfErrorf(err)

	configureLogger()

	return kongCtx.Run()
}

// Creates the parser for [RootCmd], binding ctx for the commands.
func newParser(ctx context.Context) (*kong.Kong, error) {
	return kong.New(&RootCmd,
		kong.Name("cargo "+internal.Subcommand),
		kong.Description("Builds Rust contracts into PolkaVM-framed programs."),
		kong.UsageOnError(),
		kong.Vars{
			"version":          internal.VersionString(),
			"default_template": template.Default,
			"templates":        strings.Join(template.Names(), ", "),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
}

// Drops the subcommand name cargo passes as the first argument.
func subcommandArgs(args []string) []string {
	if len(args) > 0 && args[0] == internal.Subcommand {
		return args[1:]
	}
	return args
}

// Loads the configuration file named by --config, or the default one.
func loadSettings() (settings.Settings, error) {
	if RootCmd.Config != "" {
		return settings.Load(RootCmd.Config, true)
	}
	return settings.Load(paths.ConfigFile(), false)
}
