package internal

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
)

func TestVersionStringDev(t *testing.T) {
	sv, sc := version, gitCommit
	defer func() { version, gitCommit = sv, sc }()

	tests := []struct {
		name    string
		version string
		commit  string
	}{
		{"no version", "", "abc123"},
		{"no commit", "v1.2.3", ""},
		{"blank", " ", " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, gitCommit = tt.version, tt.commit
			if !IsDev() {
				t.Fatal("IsDev() = false, want true")
			}
			if got := VersionString(); !strings.HasPrefix(got, "dev ") {
				t.Fatalf("VersionString() = %q, want prefix %q", got, "dev ")
			}
		})
	}
}

func TestVersionStringRelease(t *testing.T) {
	sv, sch, sc := version, channel, gitCommit
	defer func() { version, channel, gitCommit = sv, sch, sc }()

	tests := []struct {
		channel string
		want    string
	}{
		{"", "1.2.3 (abc123) "},
		{"Stable", "1.2.3 (abc123) "},
		{"nightly", "1.2.3-nightly (abc123) "},
	}

	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			version, channel, gitCommit = "V1.2.3", tt.channel, "abc123"
			if got := VersionString(); !strings.HasPrefix(got, tt.want) {
				t.Fatalf("VersionString() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestSeed(t *testing.T) {
	var mode atomic.Bool

	seed(&mode, "true")
	if !mode.Load() {
		t.Fatal("seed(\"true\") left mode off")
	}
	seed(&mode, "not a bool")
	if !mode.Load() {
		t.Fatal("unparsable value changed the mode")
	}
	seed(&mode, "0")
	if mode.Load() {
		t.Fatal("seed(\"0\") left mode on")
	}
}

func TestLogLevel(t *testing.T) {
	defer SetDebug(IsDebug())
	defer SetQuiet(IsQuiet())

	SetDebug(false)
	SetQuiet(false)
	if got := LogLevel(); got != slog.LevelInfo {
		t.Fatalf("LogLevel() = %v, want %v", got, slog.LevelInfo)
	}

	SetQuiet(true)
	if got := LogLevel(); got != slog.LevelWarn {
		t.Fatalf("LogLevel() = %v, want %v", got, slog.LevelWarn)
	}

	SetDebug(true)
	if got := LogLevel(); got != slog.LevelDebug {
		t.Fatalf("LogLevel() = %v, want %v", got, slog.LevelDebug)
	}
}
