package runtime

import (
	"bytes"
	"io"
	"slices"
	"testing"
)

func TestMergeEnv(t *testing.T) {
	tests := []struct {
		name      string
		base      []string
		overrides []string
		want      []string
	}{
		{
			name:      "override existing key",
			base:      []string{"A=1", "B=2"},
			overrides: []string{"A=override"},
			want:      []string{"A=override", "B=2"},
		},
		{
			name:      "override keeps position",
			base:      []string{"PATH=/usr/bin", "HOME=/root", "TERM=xterm"},
			overrides: []string{"TERM=dumb", "HOME=/build"},
			want:      []string{"PATH=/usr/bin", "HOME=/build", "TERM=dumb"},
		},
		{
			name:      "add new key",
			base:      []string{"A=1"},
			overrides: []string{"B=2"},
			want:      []string{"A=1", "B=2"},
		},
		{
			name:      "empty base",
			base:      nil,
			overrides: []string{"A=1"},
			want:      []string{"A=1"},
		},
		{
			name:      "empty overrides",
			base:      []string{"A=1"},
			overrides: nil,
			want:      []string{"A=1"},
		},
		{
			name:      "both empty",
			base:      nil,
			overrides: nil,
			want:      []string{},
		},
		{
			name:      "value with equals sign",
			base:      []string{"CMD=foo=bar"},
			overrides: nil,
			want:      []string{"CMD=foo=bar"},
		},
		{
			name:      "malformed entries skipped",
			base:      []string{"NOEQUALS", "A=1"},
			overrides: []string{"ALSO_BAD", "B=2"},
			want:      []string{"A=1", "B=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeEnv(tt.base, tt.overrides)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("mergeEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNextExecID(t *testing.T) {
	a := nextExecID()
	b := nextExecID()
	if a == b {
		t.Fatalf("nextExecID returned duplicate: %q", a)
	}
	if a == "" || b == "" {
		t.Fatal("nextExecID returned empty string")
	}
}

func TestWatchEOF(t *testing.T) {
	er := watchEOF(bytes.NewReader([]byte("abc")))

	select {
	case <-er.eof:
		t.Fatal("eof closed before the reader was drained")
	default:
	}

	if _, err := io.ReadAll(er); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-er.eof:
	default:
		t.Fatal("eof not closed after EOF")
	}

	// Reading past EOF again must not close the channel twice.
	if _, err := er.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}
