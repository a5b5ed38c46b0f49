package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/opencontainers/go-digest"
	"github.com/paritytech/cargo-pvm-contract/internal/output"
	"github.com/paritytech/cargo-pvm-contract/internal/paths"
)

// Canonical encoding, so equal values always produce equal files.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// On-disk layout of a cache entry.
type record struct {
	Key   string          `cbor:"1,keyasint"`
	Value cbor.RawMessage `cbor:"2,keyasint"`
}

// A directory of cached values.
type Store struct {
	dir string
}

// Creates a [Store] rooted at dir.
//
// The directory is created on the first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Decodes the value stored under key into v.
//
// Returns false without error when there is no entry. A corrupt entry is
// removed and reported as a miss along with the error.
func (s *Store) Load(key digest.Digest, v any) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var r record
	if err := cbor.Unmarshal(data, &r); err != nil || r.Key != key.String() {
		s.evict(path)
		return false, fmt.Errorf("%w: %s", ErrCorruptRecord, path)
	}
	if err := cbor.Unmarshal(r.Value, v); err != nil {
		s.evict(path)
		return false, fmt.Errorf("%w: %s: %w", ErrCorruptRecord, path, err)
	}

	return true, nil
}

// Stores v under key, replacing any existing entry.
func (s *Store) Save(key digest.Digest, v any) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	value, err := encMode.Marshal(v)
	if err != nil {
		return err
	}
	data, err := encMode.Marshal(record{Key: key.String(), Value: value})
	if err != nil {
		return err
	}

	return output.WriteFile(context.Background(), path, data, paths.DefaultFileMode)
}

// Returns the file holding key, sharded by the first two hex digits.
func (s *Store) path(key digest.Digest) (string, error) {
	if err := key.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	enc := key.Encoded()
	return filepath.Join(s.dir, key.Algorithm().String(), enc[:2], enc+".cbor"), nil
}

// Removes an unusable entry.
func (s *Store) evict(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Debug("cache eviction failed", "path", path, "error", err)
	}
}
