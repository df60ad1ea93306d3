// Package examples lists the structures offered as one-click examples: a
// built-in set of well-known PDB entries plus local files matched by
// configured glob patterns.
package examples

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Source says where an example's coordinates come from.
type Source string

const (
	SourceRCSB Source = "rcsb"
	SourceFile Source = "file"
)

// filePrefix marks the IDs of local file examples.
const filePrefix = "file:"

// Example is one catalog entry.
type Example struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Source      Source `json:"source"`
	Path        string `json:"path,omitempty"`
}

// Builtin are the entries always offered.
var Builtin = []Example{
	{ID: "4HHB", Name: "Hemoglobin", Description: "Human deoxyhemoglobin, four chains", Source: SourceRCSB},
	{ID: "1CRN", Name: "Crambin", Description: "Small plant seed protein, one chain", Source: SourceRCSB},
	{ID: "1UBQ", Name: "Ubiquitin", Description: "Regulatory protein, one chain", Source: SourceRCSB},
	{ID: "6LU7", Name: "SARS-CoV-2 Mpro", Description: "Main protease bound to an inhibitor", Source: SourceRCSB},
}

// ErrUnknown is returned when an example id matches nothing in the catalog.
var ErrUnknown = errors.New("unknown example")

// Loader is what an example is loaded into.
type Loader interface {
	LoadByID(ctx context.Context, id string) error
	LoadFromText(ctx context.Context, text string) error
}

// Catalog resolves examples.
type Catalog struct {
	root     string
	patterns []string
}

// New creates a catalog. Relative patterns are resolved against root.
func New(root string, patterns []string) *Catalog {
	return &Catalog{root: root, patterns: patterns}
}

// List returns the built-in examples followed by discovered files, sorted
// by path. Patterns that match nothing are not an error.
func (c *Catalog) List() ([]Example, error) {
	out := append([]Example(nil), Builtin...)
	files, err := c.discover()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		name := filepath.Base(f)
		out = append(out, Example{
			ID:     filePrefix + f,
			Name:   strings.TrimSuffix(name, filepath.Ext(name)),
			Source: SourceFile,
			Path:   f,
		})
	}
	return out, nil
}

func (c *Catalog) discover() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range c.patterns {
		base, pat := doublestar.SplitPattern(filepath.ToSlash(pattern))
		dir := filepath.FromSlash(base)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(c.root, dir)
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(dir), pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("matching %q: %w", pattern, err)
		}
		for _, m := range matches {
			full := filepath.Join(dir, filepath.FromSlash(m))
			if !seen[full] {
				seen[full] = true
				files = append(files, full)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// Find looks up an example by ID. Built-in IDs match case-insensitively.
func (c *Catalog) Find(id string) (Example, bool) {
	all, err := c.List()
	if err != nil {
		return Example{}, false
	}
	for _, ex := range all {
		if ex.ID == id || (ex.Source == SourceRCSB && strings.EqualFold(ex.ID, id)) {
			return ex, true
		}
	}
	return Example{}, false
}

// Load loads the example into l: RCSB entries by ID, local files by text.
func (c *Catalog) Load(ctx context.Context, l Loader, id string) error {
	ex, ok := c.Find(id)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknown, id)
	}
	if ex.Source == SourceRCSB {
		return l.LoadByID(ctx, ex.ID)
	}
	data, err := os.ReadFile(ex.Path)
	if err != nil {
		return fmt.Errorf("reading example %s: %w", path.Base(filepath.ToSlash(ex.Path)), err)
	}
	return l.LoadFromText(ctx, string(data))
}
