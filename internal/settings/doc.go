// Package settings loads the optional user configuration file.
//
// The file is TOML and lives at [paths.ConfigFile] unless another path is
// given on the command line. Every key is optional; missing keys keep the
// values from [Default]. Unknown keys are rejected so that typos do not
// silently change how contracts are built.
//
//	[toolchain]
//	backend = "container"
//	bits = 64
//
//	[container]
//	image = "/opt/images/polkavm-toolchain.tar"
//
//	[convert]
//	cache = false
package settings
