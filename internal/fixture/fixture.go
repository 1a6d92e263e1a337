// Package fixture writes input files for a command into a scoped temporary
// directory and removes them when the scope ends.
package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Set is a temporary directory holding fixture files. Close removes it.
type Set struct {
	dir   string
	names []string
}

// Create writes files (name to content) into a new temporary directory.
// On error nothing is left behind.
func Create(files map[string]string) (*Set, error) {
	dir, err := os.MkdirTemp("", "clicheck-fixtures-*")
	if err != nil {
		return nil, fmt.Errorf("creating fixture directory: %w", err)
	}
	if err := WriteAll(dir, files); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)
	return &Set{dir: dir, names: names}, nil
}

// Dir returns the fixture directory.
func (s *Set) Dir() string { return s.dir }

// Names returns the fixture file names, sorted.
func (s *Set) Names() []string { return slices.Clone(s.names) }

// Path returns the absolute path of a fixture file.
func (s *Set) Path(name string) string {
	return filepath.Join(s.dir, filepath.FromSlash(name))
}

// Close removes the directory and everything in it. It is safe to call
// more than once.
func (s *Set) Close() error {
	if s == nil || s.dir == "" {
		return nil
	}
	err := os.RemoveAll(s.dir)
	s.dir = ""
	if err != nil {
		return fmt.Errorf("removing fixtures: %w", err)
	}
	return nil
}

// WriteAll writes files into dir, creating parent directories for nested
// names. Names must be relative and must not escape dir.
func WriteAll(dir string, files map[string]string) error {
	for name, content := range files {
		path, err := resolve(dir, name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating directory for fixture %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing fixture %s: %w", name, err)
		}
	}
	return nil
}

func resolve(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty fixture name")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("fixture %q must be a relative path", name)
	}
	path := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", fmt.Errorf("resolving fixture %q: %w", name, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("fixture %q is outside the fixture directory", name)
	}
	return path, nil
}
