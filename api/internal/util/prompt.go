package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadPrompt reads <dir>/<name>.txt, falling back to the embedded text when
// dir is empty or the file is absent. An unreadable or empty file is an error
// so a broken override is not silently ignored.
func LoadPrompt(dir, name, fallback string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return fallback, nil
	}
	p := filepath.Join(dir, name+".txt")
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt %q: %w", p, err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", fmt.Errorf("prompt %q is empty", p)
	}
	return s, nil
}
