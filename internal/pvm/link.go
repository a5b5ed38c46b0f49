package pvm

import (
	"debug/elf"
	"fmt"
	"slices"
)

// Converts a linked ELF object into a program blob.
//
// The result depends only on data, table and opts.
func Link(data []byte, table HostTable, opts Options) (*Program, error) {
	obj, err := parseObject(data)
	if err != nil {
		return nil, err
	}

	exports, err := obj.exports()
	if err != nil {
		return nil, err
	}

	imports, err := obj.imports(table)
	if err != nil {
		return nil, err
	}

	prog := &Program{
		EntryPoints: make([]string, len(exports)),
		Imports:     make([]Import, len(imports)),
	}
	for i, e := range exports {
		prog.EntryPoints[i] = e.name
	}
	for i, imp := range imports {
		prog.Imports[i] = Import{Module: table.Module, Name: imp.name}
	}

	prog.Bytes = encode(obj, table.Module, exports, imports, opts)
	return prog, nil
}

// An entry point and its offset in the code region.
type export struct {
	name   string
	offset uint64
}

// A resolved host function import.
type hostImport struct {
	name  string
	index uint32 // Index in the host table.
}

// Returns the exported entry points in canonical order.
func (o *object) exports() ([]export, error) {
	var out []export
	for _, name := range entryPoints {
		for _, sym := range o.symbols {
			if sym.Name != name || !isExportedFunc(sym) {
				continue
			}
			offset, ok := o.codeOffset(sym)
			if !ok {
				return nil, fmt.Errorf("%w: %s at %#x is outside the code", ErrInvalidObject, name, sym.Value)
			}
			out = append(out, export{name: name, offset: offset})
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: object exports neither %s nor %s", ErrMissingEntryPoint, EntryDeploy, EntryCall)
	}
	return out, nil
}

// Returns the host function imports in first-use order.
//
// An import's position is that of the first relocation referencing it.
// Imports no relocation references follow in symbol table order.
func (o *object) imports(table HostTable) ([]hostImport, error) {
	// Symbol table indices count the null entry, o.symbols does not.
	undefined := make(map[uint32]string)
	var declared []string
	for i, sym := range o.symbols {
		if !isImport(sym) {
			continue
		}
		undefined[uint32(i+1)] = sym.Name
		declared = append(declared, sym.Name)
	}
	if len(declared) == 0 {
		return nil, nil
	}

	refs, err := o.relocatedSymbols()
	if err != nil {
		return nil, err
	}

	var order []string
	for _, idx := range refs {
		if name, ok := undefined[idx]; ok && !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	for _, name := range declared {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}

	out := make([]hostImport, len(order))
	for i, name := range order {
		index, ok := table.Lookup(name)
		if !ok {
			return nil, &ImportError{Symbol: name, Module: table.Module}
		}
		out[i] = hostImport{name: name, index: index}
	}
	return out, nil
}

// Returns the names of all defined functions, sorted and deduplicated.
func (o *object) functionNames() []string {
	var names []string
	for _, sym := range o.symbols {
		if elf.ST_TYPE(sym.Info) == elf.STT_FUNC && sym.Section != elf.SHN_UNDEF && sym.Name != "" {
			names = append(names, sym.Name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// Reports whether sym is a global function defined in the object.
func isExportedFunc(sym elf.Symbol) bool {
	return elf.ST_BIND(sym.Info) == elf.STB_GLOBAL &&
		elf.ST_TYPE(sym.Info) == elf.STT_FUNC &&
		sym.Section != elf.SHN_UNDEF &&
		sym.Section < elf.SHN_LORESERVE
}

// Reports whether sym must be satisfied by a host function.
//
// Only global symbols are imported. Weak undefined symbols are provided by
// the linker when present and resolve to zero otherwise.
func isImport(sym elf.Symbol) bool {
	return sym.Section == elf.SHN_UNDEF &&
		sym.Name != "" &&
		elf.ST_BIND(sym.Info) == elf.STB_GLOBAL
}
