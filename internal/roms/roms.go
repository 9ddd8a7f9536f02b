// Package roms lists the ROM archives a run will process.
package roms

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extension is the only archive suffix a run accepts. Matching is
// case-sensitive.
const Extension = ".zip"

// Candidate is one ROM archive selected for generation.
type Candidate struct {
	// Name is the bare file name, e.g. "sonic.zip".
	Name string
	// Path joins the input directory with Name.
	Path string
}

// List returns the regular files in dir whose names end in Extension, in
// directory listing order (lexical by name).
func List(dir string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	candidates := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		candidates = append(candidates, Candidate{
			Name: entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
		})
	}
	return candidates, nil
}

// Label builds the prompt text that identifies a ROM to the model.
func Label(name string) string {
	return fmt.Sprintf("rom file %q", name)
}
