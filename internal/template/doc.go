// Package template creates new contract crates from embedded templates.
//
// Each template is a directory under templates/. Files are copied verbatim
// except _Cargo.toml, which becomes Cargo.toml with package.name set to the
// new crate's name. The leading underscore keeps the template from being
// picked up as a crate of its own.
package template
