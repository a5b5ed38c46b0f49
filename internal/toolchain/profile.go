package toolchain

import (
	"fmt"
	"strconv"
	"strings"
)

// Codegen settings applied to every contract build.
type Profile struct {
	Bits             int      // Register width, 32 or 64.
	OptLevel         string   // Release opt-level.
	LTO              string   // Release link-time optimization mode.
	CodegenUnits     int      // Release codegen units.
	BuildStd         []string // Standard crates rebuilt from source.
	BuildStdFeatures []string // Features enabled while rebuilding them.
	RustFlags        []string // Flags passed to every rustc invocation.
}

// Returns the profile contracts are built with.
//
// Code is optimized for size, panics abort without unwinding (the program
// blob has no unwind tables), and only core and alloc are available.
func DefaultProfile(bits int) Profile {
	return Profile{
		Bits:             bits,
		OptLevel:         "s",
		LTO:              "fat",
		CodegenUnits:     1,
		BuildStd:         []string{"core", "alloc"},
		BuildStdFeatures: []string{"panic_immediate_abort"},
		RustFlags: []string{
			"-Cpanic=abort",
			"-Crelocation-model=pie",
			"-Clink-arg=--emit-relocs",
			"-Clink-arg=--unique",
		},
	}
}

// Returns the name of the rustc target, which is also the stem of its
// specification file.
func (p Profile) Triple() string {
	return fmt.Sprintf("riscv%demac-unknown-none-polkavm", p.Bits)
}

// Returns the cargo --config overrides pinning the release profile.
//
// Overrides given on the command line take precedence over environment
// variables, every config file, and the manifest's [profile] tables.
func (p Profile) configOverrides() []string {
	return []string{
		"profile.release.opt-level=" + quote(p.OptLevel),
		"profile.release.lto=" + quote(p.LTO),
		"profile.release.codegen-units=" + strconv.Itoa(p.CodegenUnits),
		`profile.release.panic="abort"`,
		"profile.release.debug=false",
		"profile.release.strip=false",
		"profile.release.debug-assertions=false",
		"profile.release.overflow-checks=false",
		"profile.release.incremental=false",
	}
}

// Returns the -Z flags rebuilding the standard crates.
func (p Profile) buildStdArgs() []string {
	args := []string{"-Zbuild-std=" + strings.Join(p.BuildStd, ",")}
	if len(p.BuildStdFeatures) > 0 {
		args = append(args, "-Zbuild-std-features="+strings.Join(p.BuildStdFeatures, ","))
	}
	return args
}

// Quotes a value as a TOML string.
func quote(s string) string {
	return strconv.Quote(s)
}
