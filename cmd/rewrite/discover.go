package main

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jward/rewrite"
	"github.com/jward/rewrite/cst"
)

// skipDirs are never descended into by the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"build":        true,
}

// filter selects discovered paths by slash-separated globs relative to the
// target directory. A path is kept when it matches some include (or there
// are none) and no exclude.
type filter struct {
	include []string
	exclude []string
}

func newFilter(include, exclude []string) (filter, error) {
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return filter{}, fmt.Errorf("invalid glob %q", p)
		}
	}
	return filter{include: include, exclude: exclude}, nil
}

func (f filter) keep(rel string) bool {
	for _, p := range f.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, p := range f.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// discover lists the files under root that a grammar exists for, as
// slash-separated paths relative to root. Inside a git repository it uses
// git ls-files to respect .gitignore, falling back to a filesystem walk.
func discover(root string, f filter) ([]string, error) {
	paths, err := gitListFiles(root)
	if err != nil {
		paths, err = walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	var out []string
	for _, p := range paths {
		if _, ok := cst.LanguageForFile(p); ok && f.keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem. Hidden
// directories and skipDirs are skipped.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// workerLimit is the number of parse workers for the --parallel flag.
func workerLimit(parallel int) int {
	if parallel > 0 {
		return parallel
	}
	return goruntime.NumCPU()
}

// parseFiles parses paths relative to root on up to parallel workers, one
// per CPU when parallel is not positive. Files
// that cannot be read or parsed are logged and left out; the result keeps
// the order of paths.
func parseFiles(ctx context.Context, root string, paths []string, parallel int, log *logrus.Logger) ([]rewrite.SourceFile, error) {
	parser := cst.NewParser()
	parsed := make([]rewrite.SourceFile, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(parallel))
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
			if err != nil {
				log.WithError(err).WithField("path", p).Warn("skipping unreadable file")
				return nil
			}
			f, err := parser.Parse(gctx, p, src)
			if err != nil {
				log.WithError(err).WithField("path", p).Warn("skipping file that failed to parse")
				return nil
			}
			if f.HasErrors() {
				log.WithField("path", p).Debug("parsed with syntax errors")
			}
			parsed[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := parsed[:0]
	for _, f := range parsed {
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}
