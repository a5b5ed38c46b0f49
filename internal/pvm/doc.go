// Package pvm converts linked RISC-V ELF objects into program blobs framed
// like PolkaVM programs.
//
// The converter reads the object's section headers, symbol table and
// relocation sections. Exported functions named deploy and call become the
// program's entry points; every undefined symbol must name a host function
// from the supplied [HostTable] and becomes an import. Imports are listed in
// the order of their first use, so the same object always yields the same
// blob.
//
// The blob reuses PolkaVM's framing: magic, version byte, total length and
// the section identifiers. It is not a PolkaVM program and PolkaVM loaders
// reject it. The code section carries the object's RV64EMAC (or RV32EMAC)
// machine code untranslated, the import and export payloads use the layout
// below, and lengths are LEB128 rather than PolkaVM's varint. The encoding is
// versioned by [FormatRevision].
//
//	magic "PVM\0" | version u8 | blob length u64 (little-endian)
//	section: id u8 | length varint | payload
//
//	MEMORY_CONFIG  ro size | rw size | bss size
//	IMPORTS        module string | count | (host index | name string)...
//	EXPORTS        count | (code offset | name string)...
//	CODE           .text bytes as linked
//	DEBUG_STRINGS  count | name string...   (only when not stripped)
//
// Sections appear in ascending id order and the blob ends with [SectionEnd].
// Integers inside payloads are unsigned LEB128 varints and strings are
// length-prefixed.
package pvm
