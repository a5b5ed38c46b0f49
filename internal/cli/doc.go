// Parses arguments and runs the cargo-pvm-contract subcommands.
//
// Cargo runs external subcommands as `cargo-pvm-contract pvm-contract ...`,
// so a leading "pvm-contract" argument is dropped before parsing. The tool
// accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Show compiler output while building.
//	-d, --debug     Enable debug output.
//	    --config    Configuration file path.
//
// Flags override build-time defaults set via linker flags and values from
// the configuration file. After parsing, the global logger is reconfigured
// to reflect the final level before the selected command runs.
package cli
