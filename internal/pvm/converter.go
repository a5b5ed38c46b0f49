package pvm

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/opencontainers/go-digest"
)

// Stores converted programs by content key.
//
// A miss is reported as (false, nil). Implementations must tolerate
// concurrent use by several processes.
type Cache interface {
	Load(key digest.Digest, v any) (bool, error)
	Save(key digest.Digest, v any) error
}

// Converts compiled objects into programs.
type Converter struct {
	table HostTable // Host functions programs may import.
	opts  Options   // Conversion settings.
	cache Cache     // Previously converted programs, may be nil.
}

// Creates a new [Converter].
//
// A nil cache disables caching.
func NewConverter(table HostTable, opts Options, cache Cache) *Converter {
	return &Converter{table: table, opts: opts, cache: cache}
}

// Converts the object at path into a program.
//
// Conversion is deterministic, so a program cached under the object's
// digest, the host table version, the options and [FormatRevision] is
// returned as is. Cache
// failures are logged and otherwise ignored.
func (c *Converter) Convert(ctx context.Context, path string) (*Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidObject, err)
	}

	key := c.key(data)
	if c.cache != nil {
		var prog Program
		hit, err := c.cache.Load(key, &prog)
		if err != nil {
			slog.Warn("conversion cache unreadable", "key", key, "error", err)
		}
		if hit {
			slog.Debug("conversion cache hit", "key", key)
			return &prog, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prog, err := Link(data, c.table, c.opts)
	if err != nil {
		return nil, err
	}

	slog.Debug("converted", "object", path, "size", len(prog.Bytes), "imports", len(prog.Imports))

	if c.cache != nil {
		if err := c.cache.Save(key, prog); err != nil {
			slog.Warn("conversion cache not updated", "key", key, "error", err)
		}
	}

	return prog, nil
}

// Returns the cache key for an object.
func (c *Converter) key(data []byte) digest.Digest {
	return cacheKey(data, c.table, c.opts, FormatRevision)
}

// Derives a cache key from everything the blob bytes depend on.
func cacheKey(data []byte, table HostTable, opts Options, revision int) digest.Digest {
	return digest.FromString(fmt.Sprintf("%s\x00%s/%d\x00strip=%t\x00format=%d",
		digest.FromBytes(data), table.Module, table.Version, opts.Strip, revision))
}
