// Package persona loads the background documents that ground every
// prompt in a consistent identity.
package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File names expected inside the persona directory.
const (
	SummaryFile = "summary.txt"
	ProfileFile = "profile.md"
)

// Context holds the immutable persona documents. It is loaded once at
// startup and shared read-only by all prompt builders, so concurrent
// chat turns need no locking around it.
type Context struct {
	Name    string // The person the agent represents
	Summary string // Free-text career summary
	Profile string // Structured profile document
}

// Load reads the persona documents from dir. Both files are required;
// an agent with no background context would answer as nobody.
func Load(name, dir string) (*Context, error) {
	if name == "" {
		return nil, fmt.Errorf("persona name is required")
	}

	summary, err := readDoc(filepath.Join(dir, SummaryFile))
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}

	profile, err := readDoc(filepath.Join(dir, ProfileFile))
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	return &Context{
		Name:    name,
		Summary: summary,
		Profile: profile,
	}, nil
}

func readDoc(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%s is empty", path)
	}
	return text, nil
}
