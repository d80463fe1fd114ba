package traceconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, Filename)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if cfg.IsEnabled() {
		t.Fatalf("expected disabled config for missing file")
	}
}

func TestLoadEnabled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "enabled: true\npath: /tmp/trace.bin\n")

	cfg := Load(path)
	if !cfg.IsEnabled() {
		t.Fatalf("expected enabled config")
	}
	if cfg.Path != "/tmp/trace.bin" {
		t.Fatalf("unexpected path: %q", cfg.Path)
	}
}

func TestLoadUnsetDefaultsDisabled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "path: /tmp/trace.bin\n")

	cfg := Load(path)
	if cfg.IsEnabled() {
		t.Fatalf("expected disabled config when enabled is unset")
	}
}

func TestLoadWorldWritableRefused(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "enabled: true\n")
	if err := os.Chmod(path, 0666); err != nil {
		t.Fatalf("Chmod: %v", err)
	}

	cfg := Load(path)
	if cfg.IsEnabled() {
		t.Fatalf("expected world-writable config to be refused")
	}
}
