// Package pvmtest builds synthetic RISC-V ELF objects for converter tests.
package pvmtest

import (
	"debug/elf"
	"encoding/binary"
	"slices"
)

// Section indices of objects written by Object.
const (
	SectionText = iota + 1
	SectionROData
	SectionData
	SectionBSS
	SectionSymtab
	SectionStrtab
	SectionRelaText
	SectionShstrtab
	sectionCount
)

// Load addresses of the allocated sections.
var Addrs = map[int]uint64{
	SectionText:   0x1000,
	SectionROData: 0x2000,
	SectionData:   0x3000,
	SectionBSS:    0x4000,
}

// A symbol table entry.
type Sym struct {
	Name    string
	Bind    elf.SymBind
	Type    elf.SymType
	Section int    // Section index, 0 for undefined symbols.
	Offset  uint64 // Offset within the section.
}

// A relocation in .text.
type Reloc struct {
	Offset uint64 // Offset within .text.
	Sym    string // Referenced symbol.
}

// Describes a minimal linked RISC-V object.
//
// The zero Class and Machine mean ELFCLASS64 and EM_RISCV.
type Object struct {
	Class   elf.Class
	Machine elf.Machine
	Text    []byte
	ROData  []byte
	Data    []byte
	BSS     uint64
	Syms    []Sym
	Relocs  []Reloc
}

// Returns an object exporting deploy and call that imports the given host
// functions, each referenced once in argument order.
func Contract(imports ...string) Object {
	o := Object{
		Text:   []byte{0x13, 0x00, 0x00, 0x00, 0x67, 0x80, 0x00, 0x00, 0x13, 0x00, 0x00, 0x00, 0x67, 0x80, 0x00, 0x00},
		ROData: []byte("hello"),
		Data:   []byte{1, 2, 3, 4},
		BSS:    64,
		Syms: []Sym{
			{Name: "contract.rs", Bind: elf.STB_LOCAL, Type: elf.STT_FILE},
			{Name: "helper", Bind: elf.STB_LOCAL, Type: elf.STT_FUNC, Section: SectionText, Offset: 12},
			{Name: "deploy", Bind: elf.STB_GLOBAL, Type: elf.STT_FUNC, Section: SectionText, Offset: 0},
			{Name: "call", Bind: elf.STB_GLOBAL, Type: elf.STT_FUNC, Section: SectionText, Offset: 8},
		},
	}
	for i, name := range imports {
		o.Syms = append(o.Syms, Sym{Name: name, Bind: elf.STB_GLOBAL, Type: elf.STT_NOTYPE})
		o.Relocs = append(o.Relocs, Reloc{Offset: uint64(4 * i), Sym: name})
	}
	return o
}

// Returns the object without the named symbols.
func (o Object) Without(names ...string) Object {
	o.Syms = slices.DeleteFunc(slices.Clone(o.Syms), func(s Sym) bool {
		return slices.Contains(names, s.Name)
	})
	return o
}

// Encodes the object as a little-endian ELF file with section headers only.
func (o Object) Bytes() []byte {
	is64 := o.Class != elf.ELFCLASS32
	machine := o.Machine
	if machine == 0 {
		machine = elf.EM_RISCV
	}

	le := binary.LittleEndian
	strtab := []byte{0}
	symIndex := make(map[string]uint32)

	var symtab []byte
	if is64 {
		symtab = make([]byte, 24)
	} else {
		symtab = make([]byte, 16)
	}
	for i, s := range o.Syms {
		nameOff := uint32(len(strtab))
		strtab = append(strtab, s.Name...)
		strtab = append(strtab, 0)
		symIndex[s.Name] = uint32(i + 1)

		var value uint64
		if s.Section != 0 {
			value = Addrs[s.Section] + s.Offset
		}
		shndx := uint16(s.Section)
		if s.Type == elf.STT_FILE {
			shndx = uint16(elf.SHN_ABS)
		}
		info := elf.ST_INFO(s.Bind, s.Type)
		if is64 {
			symtab = le.AppendUint32(symtab, nameOff)
			symtab = append(symtab, info, 0)
			symtab = le.AppendUint16(symtab, shndx)
			symtab = le.AppendUint64(symtab, value)
			symtab = le.AppendUint64(symtab, 0)
		} else {
			symtab = le.AppendUint32(symtab, nameOff)
			symtab = le.AppendUint32(symtab, uint32(value))
			symtab = le.AppendUint32(symtab, 0)
			symtab = append(symtab, info, 0)
			symtab = le.AppendUint16(symtab, shndx)
		}
	}

	var rela []byte
	for _, r := range o.Relocs {
		sym := symIndex[r.Sym]
		if is64 {
			rela = le.AppendUint64(rela, Addrs[SectionText]+r.Offset)
			rela = le.AppendUint64(rela, elf.R_INFO(sym, uint32(elf.R_RISCV_CALL_PLT)))
			rela = le.AppendUint64(rela, 0)
		} else {
			rela = le.AppendUint32(rela, uint32(Addrs[SectionText]+r.Offset))
			rela = le.AppendUint32(rela, elf.R_INFO32(sym, uint32(elf.R_RISCV_CALL_PLT)))
			rela = le.AppendUint32(rela, 0)
		}
	}

	names := []string{"", ".text", ".rodata", ".data", ".bss", ".symtab", ".strtab", ".rela.text", ".shstrtab"}
	shstrtab := []byte{0}
	nameOffs := make([]uint32, len(names))
	for i, n := range names[1:] {
		nameOffs[i+1] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, n...)
		shstrtab = append(shstrtab, 0)
	}

	type header struct {
		typ     elf.SectionType
		flags   elf.SectionFlag
		data    []byte
		size    uint64
		link    uint32
		info    uint32
		entsize uint64
	}
	symSize, relaSize := uint64(24), uint64(24)
	if !is64 {
		symSize, relaSize = 16, 12
	}
	headers := [sectionCount]header{
		SectionText:     {typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, data: o.Text},
		SectionROData:   {typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC, data: o.ROData},
		SectionData:     {typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC | elf.SHF_WRITE, data: o.Data},
		SectionBSS:      {typ: elf.SHT_NOBITS, flags: elf.SHF_ALLOC | elf.SHF_WRITE, size: o.BSS},
		SectionSymtab:   {typ: elf.SHT_SYMTAB, data: symtab, link: SectionStrtab, info: 1, entsize: symSize},
		SectionStrtab:   {typ: elf.SHT_STRTAB, data: strtab},
		SectionRelaText: {typ: elf.SHT_RELA, flags: elf.SHF_INFO_LINK, data: rela, link: SectionSymtab, info: SectionText, entsize: relaSize},
		SectionShstrtab: {typ: elf.SHT_STRTAB, data: shstrtab},
	}

	ehsize, shentsize := 64, 64
	if !is64 {
		ehsize, shentsize = 52, 40
	}

	body := make([]byte, ehsize)
	offsets := make([]uint64, sectionCount)
	for i := 1; i < sectionCount; i++ {
		for len(body)%8 != 0 {
			body = append(body, 0)
		}
		offsets[i] = uint64(len(body))
		body = append(body, headers[i].data...)
	}
	for len(body)%8 != 0 {
		body = append(body, 0)
	}
	shoff := uint64(len(body))

	for i := 0; i < sectionCount; i++ {
		h := headers[i]
		size := uint64(len(h.data))
		if h.typ == elf.SHT_NOBITS {
			size = h.size
		}
		var addr uint64
		if h.flags&elf.SHF_ALLOC != 0 {
			addr = Addrs[i]
		}
		if i == 0 {
			body = append(body, make([]byte, shentsize)...)
			continue
		}
		if is64 {
			body = le.AppendUint32(body, nameOffs[i])
			body = le.AppendUint32(body, uint32(h.typ))
			body = le.AppendUint64(body, uint64(h.flags))
			body = le.AppendUint64(body, addr)
			body = le.AppendUint64(body, offsets[i])
			body = le.AppendUint64(body, size)
			body = le.AppendUint32(body, h.link)
			body = le.AppendUint32(body, h.info)
			body = le.AppendUint64(body, 8)
			body = le.AppendUint64(body, h.entsize)
		} else {
			body = le.AppendUint32(body, nameOffs[i])
			body = le.AppendUint32(body, uint32(h.typ))
			body = le.AppendUint32(body, uint32(h.flags))
			body = le.AppendUint32(body, uint32(addr))
			body = le.AppendUint32(body, uint32(offsets[i]))
			body = le.AppendUint32(body, uint32(size))
			body = le.AppendUint32(body, h.link)
			body = le.AppendUint32(body, h.info)
			body = le.AppendUint32(body, 4)
			body = le.AppendUint32(body, uint32(h.entsize))
		}
	}

	hdr := []byte{0x7f, 'E', 'L', 'F'}
	if is64 {
		hdr = append(hdr, byte(elf.ELFCLASS64))
	} else {
		hdr = append(hdr, byte(elf.ELFCLASS32))
	}
	hdr = append(hdr, byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT))
	hdr = append(hdr, make([]byte, 9)...)
	hdr = le.AppendUint16(hdr, uint16(elf.ET_DYN))
	hdr = le.AppendUint16(hdr, uint16(machine))
	hdr = le.AppendUint32(hdr, uint32(elf.EV_CURRENT))
	if is64 {
		hdr = le.AppendUint64(hdr, 0)
		hdr = le.AppendUint64(hdr, 0)
		hdr = le.AppendUint64(hdr, shoff)
	} else {
		hdr = le.AppendUint32(hdr, 0)
		hdr = le.AppendUint32(hdr, 0)
		hdr = le.AppendUint32(hdr, uint32(shoff))
	}
	hdr = le.AppendUint32(hdr, 0x5)
	hdr = le.AppendUint16(hdr, uint16(ehsize))
	hdr = le.AppendUint16(hdr, 0)
	hdr = le.AppendUint16(hdr, 0)
	hdr = le.AppendUint16(hdr, uint16(shentsize))
	hdr = le.AppendUint16(hdr, sectionCount)
	hdr = le.AppendUint16(hdr, SectionShstrtab)
	copy(body, hdr)

	return body
}
