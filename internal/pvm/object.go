package pvm

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
)

// A parsed ELF object.
type object struct {
	file     *elf.File
	symbols  []elf.Symbol                // Symbol table without the null entry.
	symtab   int                         // Section index of the symbol table.
	code     []byte                      // Executable sections, concatenated.
	codeBase map[elf.SectionIndex]uint64 // Offset of each executable section in code.
	roData   []byte                      // Read-only data sections, concatenated.
	rwData   []byte                      // Writable data sections, concatenated.
	bssSize  uint64                      // Total size of zero-initialized sections.
}

// Parses a linked RISC-V ELF object.
func parseObject(data []byte) (*object, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidObject, err)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%w: machine is %s, want %s", ErrInvalidObject, f.Machine, elf.EM_RISCV)
	}

	symbols, err := f.Symbols()
	if err != nil {
		if errors.Is(err, elf.ErrNoSymbols) {
			return nil, fmt.Errorf("%w: no symbol table, was the object stripped?", ErrInvalidObject)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidObject, err)
	}

	o := &object{
		file:     f,
		symbols:  symbols,
		symtab:   -1,
		codeBase: make(map[elf.SectionIndex]uint64),
	}

	for i, s := range f.Sections {
		if s.Type == elf.SHT_SYMTAB {
			o.symtab = i
		}
		if err := o.addSection(elf.SectionIndex(i), s); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// Adds an allocated section to the matching memory region.
//
// Dynamic linking metadata is dropped; the VM resolves imports from the
// import section instead.
func (o *object) addSection(idx elf.SectionIndex, s *elf.Section) error {
	if s.Flags&elf.SHF_ALLOC == 0 || s.Size == 0 {
		return nil
	}

	switch s.Type {
	case elf.SHT_NOBITS:
		o.bssSize += s.Size
		return nil
	case elf.SHT_PROGBITS, elf.SHT_INIT_ARRAY, elf.SHT_FINI_ARRAY:
	default:
		return nil
	}

	data, err := s.Data()
	if err != nil {
		return fmt.Errorf("%w: section %s: %w", ErrInvalidObject, s.Name, err)
	}

	switch {
	case s.Flags&elf.SHF_EXECINSTR != 0:
		o.codeBase[idx] = uint64(len(o.code))
		o.code = append(o.code, data...)
	case s.Flags&elf.SHF_WRITE != 0:
		o.rwData = append(o.rwData, data...)
	default:
		o.roData = append(o.roData, data...)
	}
	return nil
}

// Returns the offset of a symbol within the code region.
func (o *object) codeOffset(sym elf.Symbol) (uint64, bool) {
	base, ok := o.codeBase[sym.Section]
	if !ok {
		return 0, false
	}
	sec := o.file.Sections[sym.Section]
	if sym.Value < sec.Addr || sym.Value >= sec.Addr+sec.Size {
		return 0, false
	}
	return base + sym.Value - sec.Addr, true
}

// Returns the symbol table indices referenced by relocations, in order of
// appearance.
//
// Relocation sections are scanned in section index order. Only sections
// that apply to the symbol table are considered, which excludes dynamic
// relocations against the dynamic symbol table.
func (o *object) relocatedSymbols() ([]uint32, error) {
	if o.symtab < 0 {
		return nil, nil
	}

	var out []uint32
	for _, s := range o.file.Sections {
		if s.Type != elf.SHT_RELA && s.Type != elf.SHT_REL {
			continue
		}
		if int(s.Link) != o.symtab {
			continue
		}

		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("%w: section %s: %w", ErrInvalidObject, s.Name, err)
		}

		size := relocSize(o.file.Class, s.Type)
		if len(data)%size != 0 {
			return nil, fmt.Errorf("%w: section %s has a truncated entry", ErrInvalidObject, s.Name)
		}

		for off := 0; off < len(data); off += size {
			out = append(out, relocSymbol(o.file.Class, o.file.ByteOrder, data[off:off+size]))
		}
	}
	return out, nil
}

// Returns the size of one relocation entry.
func relocSize(class elf.Class, typ elf.SectionType) int {
	switch {
	case class == elf.ELFCLASS64 && typ == elf.SHT_RELA:
		return 24
	case class == elf.ELFCLASS64:
		return 16
	case typ == elf.SHT_RELA:
		return 12
	default:
		return 8
	}
}

// Returns the symbol index of a relocation entry.
func relocSymbol(class elf.Class, order binary.ByteOrder, entry []byte) uint32 {
	if class == elf.ELFCLASS64 {
		return elf.R_SYM64(order.Uint64(entry[8:16]))
	}
	return elf.R_SYM32(order.Uint32(entry[4:8]))
}
