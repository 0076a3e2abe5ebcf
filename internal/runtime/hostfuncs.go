package runtime

import (
	"context"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/risor-io/risor/object"
	"github.com/sirupsen/logrus"

	"github.com/jward/rewrite"
	"github.com/jward/rewrite/cst"
)

// fileScope is the source file a script is evaluated against. Printing and
// kind counting are done at most once per evaluation.
type fileScope struct {
	file rewrite.Tree

	textOnce sync.Once
	text     string

	kindsOnce sync.Once
	kinds     map[string]int
}

func (s *fileScope) source() string {
	s.textOnce.Do(func() {
		s.text = cst.Print(s.file)
	})
	return s.text
}

func (s *fileScope) kindCounts() map[string]int {
	s.kindsOnce.Do(func() {
		s.kinds = make(map[string]int)
		var walk func(t rewrite.Tree)
		walk = func(t rewrite.Tree) {
			if e, ok := t.(cst.Element); ok {
				s.kinds[e.Kind()]++
			}
			for _, c := range t.Children() {
				walk(c)
			}
		}
		walk(s.file)
	})
	return s.kinds
}

// fileGlobals returns the globals describing file:
//
//	path            source path of the file
//	language        grammar name, empty for non-cst files
//	source()        → string, the printed file
//	count(kind)     → int, number of nodes of a grammar kind
//	matches(glob)   → bool, doublestar match against path
func fileGlobals(file rewrite.Tree) map[string]any {
	scope := &fileScope{file: file}
	globals := map[string]any{
		"path":     "",
		"language": "",
		"source":   makeSourceFn(scope),
		"count":    makeCountFn(scope),
		"matches":  makeMatchesFn(""),
	}
	if sf, ok := file.(rewrite.SourceFile); ok {
		globals["path"] = sf.SourcePath()
		globals["matches"] = makeMatchesFn(sf.SourcePath())
	}
	if f, ok := file.(*cst.File); ok {
		globals["language"] = f.Language()
	}
	return globals
}

// makeSourceFn creates the "source" host function.
//
// source() → string
func makeSourceFn(s *fileScope) *object.Builtin {
	return object.NewBuiltin("source", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("source", 0, len(args))
		}
		return object.NewString(s.source())
	})
}

// makeCountFn creates the "count" host function.
//
// count(kind) → int
func makeCountFn(s *fileScope) *object.Builtin {
	return object.NewBuiltin("count", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("count", 1, len(args))
		}
		kind, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("count: kind must be a string, got %s", args[0].Type())
		}
		return object.NewInt(int64(s.kindCounts()[kind.Value()]))
	})
}

// makeMatchesFn creates the "matches" host function.
//
// matches(glob) → bool
func makeMatchesFn(path string) *object.Builtin {
	return object.NewBuiltin("matches", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("matches", 1, len(args))
		}
		pattern, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("matches: pattern must be a string, got %s", args[0].Type())
		}
		matched, err := doublestar.Match(pattern.Value(), path)
		if err != nil {
			return object.Errorf("matches: %v", err)
		}
		return object.NewBool(matched)
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	entry *logrus.Entry
}

func (l *logObject) Info(msg string) {
	l.entry.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.entry.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.entry.Error(msg)
}
