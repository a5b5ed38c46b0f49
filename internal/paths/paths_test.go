package paths

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheSubdirectories(t *testing.T) {
	root := Cache()
	if filepath.Base(root) != toolName {
		t.Fatalf("Cache() = %q, want base %q", root, toolName)
	}

	for name, dir := range map[string]string{
		"targets":  Targets(),
		"programs": Programs(),
		"scratch":  Scratch(),
	} {
		if filepath.Dir(dir) != root {
			t.Errorf("%s dir %q is not under %q", name, dir, root)
		}
		if filepath.Base(dir) != name {
			t.Errorf("%s dir = %q, want base %q", name, dir, name)
		}
	}
}

func TestConfigFile(t *testing.T) {
	p := ConfigFile()
	if !strings.HasSuffix(p, filepath.Join(toolName, "config.toml")) {
		t.Fatalf("ConfigFile() = %q, want suffix %q", p, filepath.Join(toolName, "config.toml"))
	}
}
