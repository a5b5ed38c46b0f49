// Provides platform-appropriate paths for the tool.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. The executable name "cargo-pvm-contract" is used as
// the subdirectory under each base path. Nothing in this package creates
// directories; callers do that when they first write.
package paths
