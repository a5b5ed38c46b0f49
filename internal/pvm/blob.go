package pvm

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// Blob magic bytes.
const magic = "PVM\x00"

// Revision of the encoding produced by this package. It is bumped whenever
// the bytes produced for the same object change, which invalidates cached
// programs.
const FormatRevision = 1

// Blob versions, one per register width.
const (
	BlobVersion32 byte = 0
	BlobVersion64 byte = 1
)

// Size of the fixed blob header.
const headerSize = len(magic) + 1 + 8

// Section identifiers.
const (
	SectionEnd          byte = 0
	SectionMemoryConfig byte = 1
	SectionROData       byte = 2
	SectionRWData       byte = 3
	SectionImports      byte = 4
	SectionExports      byte = 5
	SectionCode         byte = 6
	SectionDebugStrings byte = 128
)

// Builds a program blob section by section.
type blobBuilder struct {
	buf []byte
}

// Creates a builder with the header in place and the length unset.
func newBlobBuilder(version byte) *blobBuilder {
	buf := make([]byte, 0, 4096)
	buf = append(buf, magic...)
	buf = append(buf, version)
	buf = binary.LittleEndian.AppendUint64(buf, 0)
	return &blobBuilder{buf: buf}
}

// Appends a section.
func (b *blobBuilder) section(id byte, payload []byte) {
	b.buf = append(b.buf, id)
	b.buf = binary.AppendUvarint(b.buf, uint64(len(payload)))
	b.buf = append(b.buf, payload...)
}

// Appends the end marker and returns the finished blob.
func (b *blobBuilder) finish() []byte {
	b.section(SectionEnd, nil)
	binary.LittleEndian.PutUint64(b.buf[len(magic)+1:headerSize], uint64(len(b.buf)))
	return b.buf
}

// Encodes a program blob.
//
// Empty data and import sections are omitted. Every other section is always
// present, even when empty.
func encode(o *object, module string, exports []export, imports []hostImport, opts Options) []byte {
	version := BlobVersion64
	if o.file.Class == elf.ELFCLASS32 {
		version = BlobVersion32
	}
	b := newBlobBuilder(version)

	var mem []byte
	mem = binary.AppendUvarint(mem, uint64(len(o.roData)))
	mem = binary.AppendUvarint(mem, uint64(len(o.rwData)))
	mem = binary.AppendUvarint(mem, o.bssSize)
	b.section(SectionMemoryConfig, mem)

	if len(o.roData) > 0 {
		b.section(SectionROData, o.roData)
	}
	if len(o.rwData) > 0 {
		b.section(SectionRWData, o.rwData)
	}

	if len(imports) > 0 {
		var p []byte
		p = appendString(p, module)
		p = binary.AppendUvarint(p, uint64(len(imports)))
		for _, imp := range imports {
			p = binary.AppendUvarint(p, uint64(imp.index))
			p = appendString(p, imp.name)
		}
		b.section(SectionImports, p)
	}

	var exp []byte
	exp = binary.AppendUvarint(exp, uint64(len(exports)))
	for _, e := range exports {
		exp = binary.AppendUvarint(exp, e.offset)
		exp = appendString(exp, e.name)
	}
	b.section(SectionExports, exp)

	b.section(SectionCode, o.code)

	if !opts.Strip {
		names := o.functionNames()
		var p []byte
		p = binary.AppendUvarint(p, uint64(len(names)))
		for _, name := range names {
			p = appendString(p, name)
		}
		b.section(SectionDebugStrings, p)
	}

	return b.finish()
}

// Appends a length-prefixed string.
func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

// A section read back from a blob.
type Section struct {
	ID      byte
	Payload []byte
}

// Splits a blob into its sections, excluding the end marker.
//
// Only the framing is checked; payloads are returned as stored.
func Sections(blob []byte) (version byte, sections []Section, err error) {
	if len(blob) < headerSize || string(blob[:len(magic)]) != magic {
		return 0, nil, fmt.Errorf("%w: bad header", ErrInvalidBlob)
	}
	version = blob[len(magic)]
	if n := binary.LittleEndian.Uint64(blob[len(magic)+1 : headerSize]); n != uint64(len(blob)) {
		return 0, nil, fmt.Errorf("%w: length is %d, header says %d", ErrInvalidBlob, len(blob), n)
	}

	rest := blob[headerSize:]
	for len(rest) > 0 {
		id := rest[0]
		size, n := binary.Uvarint(rest[1:])
		if n <= 0 || uint64(len(rest)-1-n) < size {
			return 0, nil, fmt.Errorf("%w: section %d is truncated", ErrInvalidBlob, id)
		}
		payload := rest[1+n : 1+n+int(size)]
		rest = rest[1+n+int(size):]
		if id == SectionEnd {
			return version, sections, nil
		}
		sections = append(sections, Section{ID: id, Payload: payload})
	}
	return 0, nil, fmt.Errorf("%w: missing end marker", ErrInvalidBlob)
}
