package cargo

import "errors"

var (
	ErrManifestNotFound = errors.New("could not find Cargo.toml in the directory or any parent")
	ErrInvalidManifest  = errors.New("invalid Cargo.toml")
)
