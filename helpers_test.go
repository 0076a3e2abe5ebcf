package rewrite

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// testNode is a minimal named tree. Children of a removable node may be
// deleted.
type testNode struct {
	id        TreeID
	markers   Markers
	name      string
	children  []Tree
	removable bool
}

func node(name string, children ...Tree) *testNode {
	return &testNode{id: NewTreeID(), name: name, children: children}
}

func removable(name string, children ...Tree) *testNode {
	n := node(name, children...)
	n.removable = true
	return n
}

func (n *testNode) ID() TreeID       { return n.id }
func (n *testNode) Markers() Markers { return n.markers }
func (n *testNode) Children() []Tree { return n.children }

func (n *testNode) WithMarkers(m Markers) Tree {
	if n.markers.Equal(m) {
		return n
	}
	cp := *n
	cp.markers = m
	return &cp
}

func (n *testNode) WithChildren(children []Tree) Tree {
	if SameChildren(n.children, children) {
		return n
	}
	cp := *n
	cp.children = children
	return &cp
}

func (n *testNode) CanRemoveChild(int) bool { return n.removable }

func (n *testNode) withName(name string) *testNode {
	cp := *n
	cp.name = name
	return &cp
}

// testFile is a SourceFile with a single root node.
type testFile struct {
	id      TreeID
	markers Markers
	path    string
	root    Tree
}

func file(path string, root Tree) *testFile {
	return &testFile{id: NewTreeID(), path: path, root: root}
}

func (f *testFile) ID() TreeID         { return f.id }
func (f *testFile) Markers() Markers   { return f.markers }
func (f *testFile) Children() []Tree   { return []Tree{f.root} }
func (f *testFile) SourcePath() string { return f.path }
func (f *testFile) Root() Tree         { return f.root }

func (f *testFile) WithMarkers(m Markers) Tree {
	if f.markers.Equal(m) {
		return f
	}
	cp := *f
	cp.markers = m
	return &cp
}

func (f *testFile) WithChildren(children []Tree) Tree {
	if len(children) == 1 && children[0] == f.root {
		return f
	}
	cp := *f
	cp.root = children[0]
	return &cp
}

func (f *testFile) WithSourcePath(path string) SourceFile {
	cp := *f
	cp.path = path
	return &cp
}

// names renders a tree as name(child,...) for assertions.
func names(t Tree) string {
	switch v := t.(type) {
	case *testFile:
		return names(v.root)
	case *testNode:
		if len(v.children) == 0 {
			return v.name
		}
		parts := make([]string, len(v.children))
		for i, c := range v.children {
			parts[i] = names(c)
		}
		return v.name + "(" + strings.Join(parts, ",") + ")"
	}
	return fmt.Sprintf("%T", t)
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	return New(append([]Option{WithLogger(l)}, opts...)...)
}

// renameRecipe renames every node called From to To.
type renameRecipe struct {
	From string `option:"From" description:"Node name to look for." validate:"required"`
	To   string `option:"To" description:"Replacement name." example:"b" validate:"required"`
}

func (r *renameRecipe) Name() string         { return "test.Rename" }
func (r *renameRecipe) DisplayName() string  { return "Rename nodes" }
func (r *renameRecipe) Description() string  { return "Renames nodes." }
func (r *renameRecipe) InstanceName() string { return "`" + r.From + "` to `" + r.To + "`" }

func (r *renameRecipe) Visitor() Visitor {
	return &TreeVisitor{Post: func(_ *Cursor, t Tree) (Tree, error) {
		if n, ok := t.(*testNode); ok && n.name == r.From {
			return n.withName(r.To), nil
		}
		return t, nil
	}}
}

// funcRecipe wraps a visitor function.
type funcRecipe struct {
	name string
	fn   func(c *Cursor, t Tree) (Tree, error)
}

func (r *funcRecipe) Name() string        { return r.name }
func (r *funcRecipe) DisplayName() string { return r.name }
func (r *funcRecipe) Description() string { return "" }
func (r *funcRecipe) Visitor() Visitor    { return VisitorFunc(r.fn) }

// failOn returns a recipe that fails on the file at path.
func failOn(path string) Recipe {
	return &funcRecipe{name: "test.Fail", fn: func(_ *Cursor, t Tree) (Tree, error) {
		if t.(SourceFile).SourcePath() == path {
			return t, NewRecipeError("refusing %s", path)
		}
		return t, nil
	}}
}

// increment renames n<k> to n<k+1> up to limit, one step per run.
func increment(limit int) Recipe {
	return &funcRecipe{name: "test.Increment", fn: func(_ *Cursor, t Tree) (Tree, error) {
		f := t.(*testFile)
		n := f.root.(*testNode)
		k, err := strconv.Atoi(strings.TrimPrefix(n.name, "n"))
		if err != nil || k >= limit {
			return t, nil
		}
		return f.WithChildren([]Tree{n.withName("n" + strconv.Itoa(k+1))}), nil
	}}
}
