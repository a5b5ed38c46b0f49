package toolchain

import (
	"io"
	"sync"
)

// Serializes writes to a writer shared by stdout and stderr.
//
// The process streams are copied by separate goroutines, and callers may
// pass writers that are not safe for concurrent use.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// Wraps w in a [lockedWriter].
func newLockedWriter(w io.Writer) *lockedWriter {
	if w == nil {
		w = io.Discard
	}
	return &lockedWriter{w: w}
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
