// Package library loads course definitions from YAML files and seeds them
// into the course collection.
package library

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader holds the course entries found under a directory.
type Loader struct {
	rootDir string
	entries []Entry
}

// NewLoader walks rootDir and loads every .yaml/.yml course file. Files that
// do not parse, or that lack a name or color, are logged and skipped.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{rootDir: rootDir}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading course library: %w", err)
	}

	slog.Info("course library loaded", "dir", rootDir, "courses", len(l.entries))
	return l, nil
}

// Entries returns the loaded entries ordered by file path.
func (l *Loader) Entries() []Entry {
	return slices.Clone(l.entries)
}

func (l *Loader) loadAll() error {
	err := filepath.WalkDir(l.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadEntry(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slices.SortFunc(l.entries, func(a, b Entry) int { return strings.Compare(a.path, b.path) })
	return nil
}

func (l *Loader) loadEntry(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var e Entry
	if err := yaml.Unmarshal(data, &e); err != nil {
		slog.Warn("skipping invalid course YAML", "path", path, "error", err)
		return nil
	}
	if e.Name == "" || e.Color == "" {
		slog.Warn("skipping course YAML without name or color", "path", path)
		return nil
	}

	e.path = path
	l.entries = append(l.entries, e)
	return nil
}
