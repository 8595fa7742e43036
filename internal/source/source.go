// Package source discovers IaC input files on the local filesystem and
// reads them into memory before a scan starts.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// MaxFileSize bounds how much of a single file is read. Larger files are
// skipped rather than truncated.
const MaxFileSize = 8 << 20

var iacExtensions = map[string]bool{
	".tf":     true,
	".tfvars": true,
	".json":   true,
	".yaml":   true,
	".yml":    true,
	".bicep":  true,
	".hcl":    true,
}

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".terraform":   true,
	"node_modules": true,
}

// Options controls Discover.
type Options struct {
	// Recursive descends into subdirectories of root.
	Recursive bool

	// Exclude holds doublestar patterns matched against paths relative to
	// root, e.g. "examples/**" or "**/*.tfvars".
	Exclude []string
}

// IsIaCFile reports whether name is a file type the scanner reads.
func IsIaCFile(name string) bool {
	base := filepath.Base(name)
	if base == "Dockerfile" || strings.HasPrefix(base, "Dockerfile.") {
		return true
	}
	return iacExtensions[strings.ToLower(filepath.Ext(base))]
}

// Discover returns the IaC files under root in lexical order. A root that
// is a regular file is returned as-is regardless of its extension.
func Discover(root string, opts Options) ([]string, error) {
	for _, p := range opts.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == root {
				return nil
			}
			if !opts.Recursive || skipDirs[d.Name()] || excluded(rel, opts.Exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsIaCFile(path) || excluded(rel, opts.Exclude) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// ErrTooLarge is returned by Load for files above MaxFileSize.
var ErrTooLarge = errors.New("file exceeds maximum size")

// Load reads every path fully into memory. Cancellation is checked between
// files. Files above MaxFileSize are reported through skipped rather than
// failing the load.
func Load(ctx context.Context, paths []string) (files []models.SourceFile, skipped map[string]error, err error) {
	files = make([]models.SourceFile, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.Size() > MaxFileSize {
			if skipped == nil {
				skipped = make(map[string]error)
			}
			skipped[p] = ErrTooLarge
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, models.SourceFile{Path: p, Data: data})
	}
	return files, skipped, nil
}
