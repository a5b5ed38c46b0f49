package cache

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/opencontainers/go-digest"
)

type entry struct {
	Bytes []byte
	Names []string
}

func TestSaveLoad(t *testing.T) {
	s := New(t.TempDir())
	key := digest.FromString("object")
	want := entry{Bytes: []byte{1, 2, 3}, Names: []string{"deploy", "call"}}

	if err := s.Save(key, want); err != nil {
		t.Fatal(err)
	}

	var got entry
	hit, err := s.Load(key, &got)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("hit = false, want true")
	}
	if !slices.Equal(got.Bytes, want.Bytes) || !slices.Equal(got.Names, want.Names) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLoadMiss(t *testing.T) {
	s := New(t.TempDir())

	var got entry
	hit, err := s.Load(digest.FromString("absent"), &got)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Fatal("hit = true, want false")
	}
}

func TestSaveDeterministic(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	key := digest.FromString("object")
	v := map[string]int{"b": 2, "a": 1, "c": 3}

	if err := s.Save(key, v); err != nil {
		t.Fatal(err)
	}
	path, _ := s.path(key)
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Save(key, v); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatal("saving the same value twice produced different files")
	}
}

func TestLoadCorruptEvicts(t *testing.T) {
	s := New(t.TempDir())
	key := digest.FromString("object")
	path, err := s.path(key)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not cbor"), 0644); err != nil {
		t.Fatal(err)
	}

	var got entry
	hit, err := s.Load(key, &got)
	if hit {
		t.Fatal("hit = true for a corrupt record")
	}
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("err = %v, want ErrCorruptRecord", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("corrupt record was not removed")
	}
}

func TestLoadMovedRecord(t *testing.T) {
	s := New(t.TempDir())
	a, b := digest.FromString("a"), digest.FromString("b")
	if err := s.Save(a, entry{Names: []string{"a"}}); err != nil {
		t.Fatal(err)
	}

	pa, _ := s.path(a)
	pb, _ := s.path(b)
	if err := os.MkdirAll(filepath.Dir(pb), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(pa, pb); err != nil {
		t.Fatal(err)
	}

	var got entry
	if hit, _ := s.Load(b, &got); hit {
		t.Fatal("record stored under another key was returned")
	}
}

func TestInvalidKey(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Save(digest.Digest("nope"), entry{}); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}
}
