package rewrite

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// A precondition is any Visitor. It holds for a source file when visiting the
// file's root returns something other than the root it was given, usually the
// root marked with a SearchResult. Its result is never kept.

// Applicable evaluates pre against file on a throwaway cursor.
func Applicable(pre Visitor, file Tree, ec *ExecutionContext) (bool, error) {
	out, err := pre.Visit(NewRootCursor(ec, file), file)
	if err != nil {
		return false, fmt.Errorf("rewrite: evaluate precondition: %w", err)
	}
	return out != file, nil
}

// Check gates v behind pre. At the root of a traversal pre is evaluated and,
// when it does not hold, the root is returned untouched without invoking v.
// Below the root, Check delegates to v directly.
func Check(pre, v Visitor) Visitor {
	return &check{pre: pre, v: v}
}

type check struct {
	pre Visitor
	v   Visitor
}

func (ch *check) Visit(c *Cursor, t Tree) (Tree, error) {
	if c.IsRoot() {
		ok, err := Applicable(ch.pre, t, c.ExecutionContext())
		if err != nil {
			return t, err
		}
		if !ok {
			return t, nil
		}
	}
	return ch.v.Visit(c, t)
}

// And holds when every precondition holds. With no arguments it always holds.
func And(pres ...Visitor) Visitor {
	return combinator("and", func(c *Cursor, t Tree) (bool, error) {
		for _, p := range pres {
			ok, err := Applicable(p, t, c.ExecutionContext())
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	})
}

// Or holds when any precondition holds. With no arguments it never holds.
func Or(pres ...Visitor) Visitor {
	return combinator("or", func(c *Cursor, t Tree) (bool, error) {
		for _, p := range pres {
			ok, err := Applicable(p, t, c.ExecutionContext())
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	})
}

// Not inverts a precondition.
func Not(pre Visitor) Visitor {
	return combinator("not", func(c *Cursor, t Tree) (bool, error) {
		ok, err := Applicable(pre, t, c.ExecutionContext())
		return !ok, err
	})
}

// Predicate turns a plain function of the root into a precondition.
func Predicate(name string, fn func(t Tree) bool) Visitor {
	return combinator(name, func(_ *Cursor, t Tree) (bool, error) {
		return fn(t), nil
	})
}

// HasSourcePath holds for source files whose path matches the doublestar
// glob pattern.
func HasSourcePath(pattern string) Visitor {
	return combinator("path "+pattern, func(_ *Cursor, t Tree) (bool, error) {
		sf, ok := t.(SourceFile)
		if !ok {
			return false, nil
		}
		matched, err := doublestar.Match(pattern, sf.SourcePath())
		if err != nil {
			return false, fmt.Errorf("rewrite: source path pattern %q: %w", pattern, err)
		}
		return matched, nil
	})
}

func combinator(name string, holds func(c *Cursor, t Tree) (bool, error)) Visitor {
	return VisitorFunc(func(c *Cursor, t Tree) (Tree, error) {
		ok, err := holds(c, t)
		if err != nil {
			return t, err
		}
		if !ok {
			return t, nil
		}
		return AddMarker(t, NewSearchResult(name)), nil
	})
}
