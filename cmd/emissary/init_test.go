package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
)

// clearUmask sets the process umask to 0 so file permission assertions
// are deterministic. It restores the original umask when the test ends.
func clearUmask(t *testing.T) {
	t.Helper()
	old := syscall.Umask(0)
	t.Cleanup(func() { syscall.Umask(old) })
}

func TestRunInitFreshDirectory(t *testing.T) {
	clearUmask(t)
	dir := t.TempDir()
	var buf bytes.Buffer

	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	cfgInfo, err := os.Stat(filepath.Join(dir, "emissary.yaml"))
	if err != nil {
		t.Fatalf("emissary.yaml not created: %v", err)
	}
	if got := cfgInfo.Mode().Perm(); got != 0o600 {
		t.Errorf("emissary.yaml permissions = %o, want 0600", got)
	}

	for _, name := range []string{"summary.txt", "profile.md"} {
		if _, err := os.Stat(filepath.Join(dir, "me", name)); err != nil {
			t.Errorf("me/%s not created: %v", name, err)
		}
	}

	if !strings.Contains(buf.String(), "emissary.yaml") {
		t.Errorf("output missing created files: %s", buf.String())
	}
}

func TestRunInitNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "emissary.yaml")
	if err := os.WriteFile(cfgPath, []byte("customized: true\n"), 0o600); err != nil {
		t.Fatalf("writing existing config: %v", err)
	}

	var buf bytes.Buffer
	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	content, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if string(content) != "customized: true\n" {
		t.Errorf("existing config was overwritten: %s", content)
	}
}
