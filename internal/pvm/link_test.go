package pvm

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"github.com/paritytech/cargo-pvm-contract/internal/pvm/pvmtest"
)

func importNames(imports []Import) []string {
	names := make([]string, len(imports))
	for i, imp := range imports {
		names[i] = imp.Name
	}
	return names
}

func TestLink(t *testing.T) {
	obj := pvmtest.Contract("get_storage", "set_storage", "deposit_event")

	prog, err := Link(obj.Bytes(), HostFunctionsV1, Options{Strip: true})
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"deploy", "call"}; !slices.Equal(prog.EntryPoints, want) {
		t.Fatalf("EntryPoints = %v, want %v", prog.EntryPoints, want)
	}
	if want := []string{"get_storage", "set_storage", "deposit_event"}; !slices.Equal(importNames(prog.Imports), want) {
		t.Fatalf("Imports = %v, want %v", importNames(prog.Imports), want)
	}
	for _, imp := range prog.Imports {
		if imp.Module != "seal0" {
			t.Fatalf("import %s has module %q, want seal0", imp.Name, imp.Module)
		}
	}
}

func TestLinkFirstUseOrder(t *testing.T) {
	obj := pvmtest.Contract("caller", "address", "now", "balance")
	obj.Relocs = []pvmtest.Reloc{
		{Offset: 0, Sym: "now"},
		{Offset: 4, Sym: "caller"},
		{Offset: 8, Sym: "now"},
	}

	prog, err := Link(obj.Bytes(), HostFunctionsV1, Options{Strip: true})
	if err != nil {
		t.Fatal(err)
	}

	// Referenced imports first, then the rest in symbol table order.
	want := []string{"now", "caller", "address", "balance"}
	if got := importNames(prog.Imports); !slices.Equal(got, want) {
		t.Fatalf("Imports = %v, want %v", got, want)
	}
}

func TestLinkDeterministic(t *testing.T) {
	data := pvmtest.Contract("set_storage", "call_data_copy", "return_value").Bytes()

	for _, strip := range []bool{true, false} {
		a, err := Link(data, HostFunctionsV1, Options{Strip: strip})
		if err != nil {
			t.Fatal(err)
		}
		b, err := Link(bytes.Clone(data), HostFunctionsV1, Options{Strip: strip})
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a.Bytes, b.Bytes) {
			t.Fatalf("strip=%t: converting the same object twice produced different blobs", strip)
		}
	}
}

func TestLinkUnresolvedImport(t *testing.T) {
	obj := pvmtest.Contract("set_storage", "launch_missiles", "caller")

	_, err := Link(obj.Bytes(), HostFunctionsV1, Options{Strip: true})
	if !errors.Is(err, ErrUnresolvedImport) {
		t.Fatalf("err = %v, want ErrUnresolvedImport", err)
	}

	var ie *ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %T, want *ImportError", err)
	}
	if ie.Symbol != "launch_missiles" {
		t.Fatalf("Symbol = %q, want launch_missiles", ie.Symbol)
	}
	if ie.Module != "seal0" {
		t.Fatalf("Module = %q, want seal0", ie.Module)
	}
}

func TestLinkWeakUndefinedIgnored(t *testing.T) {
	obj := pvmtest.Contract("caller")
	obj.Syms = append(obj.Syms, pvmtest.Sym{Name: "__global_pointer$", Bind: elf.STB_WEAK, Type: elf.STT_NOTYPE})

	prog, err := Link(obj.Bytes(), HostFunctionsV1, Options{Strip: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := importNames(prog.Imports); !slices.Equal(got, []string{"caller"}) {
		t.Fatalf("Imports = %v, want [caller]", got)
	}
}

func TestLinkEntryPoints(t *testing.T) {
	tests := []struct {
		name    string
		obj     pvmtest.Object
		want    []string
		wantErr error
	}{
		{
			name: "call only",
			obj:  pvmtest.Contract().Without("deploy"),
			want: []string{"call"},
		},
		{
			name: "deploy only",
			obj:  pvmtest.Contract().Without("call"),
			want: []string{"deploy"},
		},
		{
			name:    "neither",
			obj:     pvmtest.Contract("caller").Without("deploy", "call"),
			wantErr: ErrMissingEntryPoint,
		},
		{
			name: "local symbols do not count",
			obj: func() pvmtest.Object {
				o := pvmtest.Contract().Without("deploy", "call")
				o.Syms = append(o.Syms, pvmtest.Sym{Name: "deploy", Bind: elf.STB_LOCAL, Type: elf.STT_FUNC, Section: pvmtest.SectionText})
				return o
			}(),
			wantErr: ErrMissingEntryPoint,
		},
		{
			name: "undefined entry point is an import",
			obj: func() pvmtest.Object {
				o := pvmtest.Contract().Without("deploy", "call")
				o.Syms = append(o.Syms, pvmtest.Sym{Name: "call", Bind: elf.STB_GLOBAL, Type: elf.STT_FUNC})
				return o
			}(),
			wantErr: ErrMissingEntryPoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Link(tt.obj.Bytes(), HostFunctionsV1, Options{Strip: true})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(prog.EntryPoints, tt.want) {
				t.Fatalf("EntryPoints = %v, want %v", prog.EntryPoints, tt.want)
			}
		})
	}
}

func TestLinkInvalidObject(t *testing.T) {
	x86 := pvmtest.Contract()
	x86.Machine = elf.EM_X86_64

	tests := map[string][]byte{
		"garbage": []byte("not an elf file"),
		"x86":     x86.Bytes(),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Link(data, HostFunctionsV1, Options{}); !errors.Is(err, ErrInvalidObject) {
				t.Fatalf("err = %v, want ErrInvalidObject", err)
			}
		})
	}
}

func sectionIDs(sections []Section) []byte {
	ids := make([]byte, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}
	return ids
}

func uvarints(t *testing.T, p []byte, n int) []uint64 {
	t.Helper()
	out := make([]uint64, 0, n)
	for range n {
		v, size := binary.Uvarint(p)
		if size <= 0 {
			t.Fatalf("bad varint in %x", p)
		}
		out = append(out, v)
		p = p[size:]
	}
	return out
}

func TestLinkBlobLayout(t *testing.T) {
	obj := pvmtest.Contract("caller")

	prog, err := Link(obj.Bytes(), HostFunctionsV1, Options{Strip: true})
	if err != nil {
		t.Fatal(err)
	}

	version, sections, err := Sections(prog.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if version != BlobVersion64 {
		t.Fatalf("version = %d, want %d", version, BlobVersion64)
	}

	want := []byte{SectionMemoryConfig, SectionROData, SectionRWData, SectionImports, SectionExports, SectionCode}
	if got := sectionIDs(sections); !bytes.Equal(got, want) {
		t.Fatalf("sections = %v, want %v", got, want)
	}

	mem := uvarints(t, sections[0].Payload, 3)
	if !slices.Equal(mem, []uint64{5, 4, 64}) {
		t.Fatalf("memory config = %v, want [5 4 64]", mem)
	}
	if string(sections[1].Payload) != "hello" {
		t.Fatalf("ro data = %q, want hello", sections[1].Payload)
	}
	// The code section is the linked .text as is.
	if !bytes.Equal(sections[5].Payload, obj.Text) {
		t.Fatalf("code = %x, want %x", sections[5].Payload, obj.Text)
	}

	// count, offset, "deploy", offset, "call"
	exp := sections[4].Payload
	wantExp := []byte{2, 0, 6, 'd', 'e', 'p', 'l', 'o', 'y', 8, 4, 'c', 'a', 'l', 'l'}
	if !bytes.Equal(exp, wantExp) {
		t.Fatalf("exports = %x, want %x", exp, wantExp)
	}

	idx, _ := HostFunctionsV1.Lookup("caller")
	wantImp := []byte{5, 's', 'e', 'a', 'l', '0', 1, byte(idx), 6, 'c', 'a', 'l', 'l', 'e', 'r'}
	if !bytes.Equal(sections[3].Payload, wantImp) {
		t.Fatalf("imports = %x, want %x", sections[3].Payload, wantImp)
	}
}

func TestLinkDebugStrings(t *testing.T) {
	obj := pvmtest.Contract()

	prog, err := Link(obj.Bytes(), HostFunctionsV1, Options{Strip: false})
	if err != nil {
		t.Fatal(err)
	}
	_, sections, err := Sections(prog.Bytes)
	if err != nil {
		t.Fatal(err)
	}

	last := sections[len(sections)-1]
	if last.ID != SectionDebugStrings {
		t.Fatalf("last section = %d, want %d", last.ID, SectionDebugStrings)
	}
	want := []byte{3, 4, 'c', 'a', 'l', 'l', 6, 'd', 'e', 'p', 'l', 'o', 'y', 6, 'h', 'e', 'l', 'p', 'e', 'r'}
	if !bytes.Equal(last.Payload, want) {
		t.Fatalf("debug strings = %x, want %x", last.Payload, want)
	}

	stripped, err := Link(obj.Bytes(), HostFunctionsV1, Options{Strip: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(stripped.Bytes) >= len(prog.Bytes) {
		t.Fatal("stripped blob is not smaller")
	}
}

func TestLink32Bit(t *testing.T) {
	obj := pvmtest.Contract("caller", "set_storage")
	obj.Class = elf.ELFCLASS32
	obj.Relocs = []pvmtest.Reloc{{Offset: 0, Sym: "set_storage"}}

	prog, err := Link(obj.Bytes(), HostFunctionsV1, Options{Strip: true})
	if err != nil {
		t.Fatal(err)
	}
	version, _, err := Sections(prog.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if version != BlobVersion32 {
		t.Fatalf("version = %d, want %d", version, BlobVersion32)
	}
	if got := importNames(prog.Imports); !slices.Equal(got, []string{"set_storage", "caller"}) {
		t.Fatalf("Imports = %v, want [set_storage caller]", got)
	}
}

func TestSectionsRejectsCorruptBlob(t *testing.T) {
	prog, err := Link(pvmtest.Contract().Bytes(), HostFunctionsV1, Options{Strip: true})
	if err != nil {
		t.Fatal(err)
	}

	tests := map[string][]byte{
		"empty":     nil,
		"magic":     append([]byte("ELF\x00"), prog.Bytes[4:]...),
		"truncated": prog.Bytes[:len(prog.Bytes)-3],
	}
	for name, blob := range tests {
		t.Run(name, func(t *testing.T) {
			if _, _, err := Sections(blob); !errors.Is(err, ErrInvalidBlob) {
				t.Fatalf("err = %v, want ErrInvalidBlob", err)
			}
		})
	}
}

func TestHostTableLookup(t *testing.T) {
	if _, ok := HostFunctionsV1.Lookup("set_storage"); !ok {
		t.Fatal("set_storage missing from host table")
	}
	if _, ok := HostFunctionsV1.Lookup("memcpy"); ok {
		t.Fatal("memcpy found in host table")
	}

	seen := make(map[string]bool)
	for _, name := range HostFunctionsV1.Functions {
		if seen[name] {
			t.Fatalf("duplicate host function %q", name)
		}
		seen[name] = true
	}
}
