package rewrite

import (
	"fmt"
	"sync"
)

// CollidingSourceFile is a row of the CollidingSourceFiles table.
type CollidingSourceFile struct {
	SourcePath     string `json:"sourcePath"`
	SourceFileType string `json:"sourceFileType"`
}

// CollidingSourceFiles lists source files that share a path with another
// source file.
var CollidingSourceFiles = NewDataTable[CollidingSourceFile](
	"rewrite.table.CollidingSourceFiles",
	"Colliding source files",
	"Source files that share a source path with another source file.",
)

// FindCollidingSourceFiles marks every source file whose path is shared by
// another file of the batch. There should only ever be one file per path, so
// any hit points at a parser or build integration problem.
type FindCollidingSourceFiles struct{}

func init() {
	Register("rewrite.FindCollidingSourceFiles", func() Recipe {
		return Scanning[*CollisionAccumulator](&FindCollidingSourceFiles{})
	})
}

// CollisionAccumulator is written by concurrent scanners. Seen is only
// needed while scanning and is emptied when generation starts.
type CollisionAccumulator struct {
	mu         sync.Mutex
	seen       map[string]struct{}
	duplicates map[string]struct{}
}

// record notes a sighting of path.
func (a *CollisionAccumulator) record(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[path]; ok {
		a.duplicates[path] = struct{}{}
		return
	}
	a.seen[path] = struct{}{}
}

// IsDuplicate reports whether path was seen more than once.
func (a *CollisionAccumulator) IsDuplicate(path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.duplicates[path]
	return ok
}

// Seen returns how many distinct paths are still held from the scan.
func (a *CollisionAccumulator) Seen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}

func (r *FindCollidingSourceFiles) Name() string {
	return "rewrite.FindCollidingSourceFiles"
}

func (r *FindCollidingSourceFiles) DisplayName() string {
	return "Find colliding source files"
}

func (r *FindCollidingSourceFiles) Description() string {
	return "Finds source files which share a path with another source file. " +
		"There should always be exactly one source file per path within a repository."
}

func (r *FindCollidingSourceFiles) InitialValue(*ExecutionContext) *CollisionAccumulator {
	return &CollisionAccumulator{
		seen:       make(map[string]struct{}),
		duplicates: make(map[string]struct{}),
	}
}

func (r *FindCollidingSourceFiles) Scanner(acc *CollisionAccumulator) Visitor {
	return VisitorFunc(func(_ *Cursor, t Tree) (Tree, error) {
		if sf, ok := t.(SourceFile); ok {
			acc.record(sf.SourcePath())
		}
		return t, nil
	})
}

func (r *FindCollidingSourceFiles) Generate(acc *CollisionAccumulator, _ *ExecutionContext) ([]SourceFile, error) {
	acc.mu.Lock()
	acc.seen = make(map[string]struct{})
	acc.mu.Unlock()
	return nil, nil
}

func (r *FindCollidingSourceFiles) EditVisitor(acc *CollisionAccumulator) Visitor {
	return VisitorFunc(func(c *Cursor, t Tree) (Tree, error) {
		sf, ok := t.(SourceFile)
		if !ok || !acc.IsDuplicate(sf.SourcePath()) {
			return t, nil
		}
		p := sf.SourcePath()
		out := Found(t, "Duplicate source file "+p)
		if out == t {
			return t, nil
		}
		row := CollidingSourceFile{SourcePath: p, SourceFileType: fmt.Sprintf("%T", t)}
		if err := CollidingSourceFiles.InsertRow(c.ExecutionContext(), row); err != nil {
			return t, err
		}
		return out, nil
	})
}
