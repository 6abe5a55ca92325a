package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/micdig/emissary/examples"
)

// runInit initializes an emissary working directory with default files:
// the config, and a persona directory with summary and profile to edit.
// Existing files are never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing emissary workspace in %s\n", dir)

	personaDir := filepath.Join(dir, "me")
	if err := os.MkdirAll(personaDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", personaDir, err)
	}

	// The config holds API keys, keep it owner-readable only.
	configPath := filepath.Join(dir, "emissary.yaml")
	if err := writeIfMissing(configPath, examples.ConfigYAML, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", configPath)

	summaryPath := filepath.Join(personaDir, "summary.txt")
	if err := writeIfMissing(summaryPath, examples.SummaryTXT, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", summaryPath)

	profilePath := filepath.Join(personaDir, "profile.md")
	if err := writeIfMissing(profilePath, examples.ProfileMD, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", profilePath)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit emissary.yaml and the files under me/ to customize your installation.")
	return nil
}

// writeIfMissing writes content to path only if the file does not
// already exist, so init never overwrites user customizations.
func writeIfMissing(path string, content []byte, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, content, perm)
}
