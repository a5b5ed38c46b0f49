// Package cargo reads Cargo manifests to report binary targets.
//
// Only the parts of Cargo.toml that decide which binaries exist are parsed:
// the package name, explicit [[bin]] tables, the autobins switch, and the
// workspace member list. Binaries Cargo infers from the source layout
// (src/main.rs, src/bin/*.rs, src/bin/*/main.rs) are discovered the same way
// Cargo does it. Dependencies and versions are ignored.
package cargo
