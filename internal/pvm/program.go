package pvm

// File extension of program blobs, without the dot.
const Extension = "polkavm"

// Entry point names, in the order they appear in a program's export table.
const (
	EntryDeploy = "deploy" // Runs once when the contract is instantiated.
	EntryCall   = "call"   // Runs on every call to the contract.
)

var entryPoints = []string{EntryDeploy, EntryCall}

// A host function imported by a program.
type Import struct {
	Module string // Host module namespace.
	Name   string // Function name.
}

// A converted program.
type Program struct {
	Bytes       []byte   // Encoded program blob.
	EntryPoints []string // Exported entry points, deploy before call.
	Imports     []Import // Imported host functions in first-use order.
}

// Conversion settings.
type Options struct {
	Strip bool // Omit the debug strings section.
}
