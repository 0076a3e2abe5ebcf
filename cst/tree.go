// Package cst holds lossless concrete syntax trees built from tree-sitter
// parses.
//
// Every byte of the source lives in exactly one place: in the text of a
// Leaf, in the prefix of the Leaf that follows it (whitespace, and anything
// else between two tokens), or in the trailing text of the File. Printing a
// parsed File therefore reproduces the source exactly, and an edit only
// changes the bytes of the leaves it replaces.
package cst

import (
	"github.com/jward/rewrite"
)

// Element is implemented by Leaf and Node.
type Element interface {
	rewrite.Tree
	// Kind is the tree-sitter node type, e.g. "method_invocation" or "(".
	Kind() string
	// Field is the name the parent's grammar gives this child, or "".
	Field() string
	// Named reports whether the grammar names this kind. Anonymous
	// elements are punctuation and keywords.
	Named() bool
}

// Leaf is a token. Prefix holds the source between the previous token and
// this one.
type Leaf struct {
	id      rewrite.TreeID
	markers rewrite.Markers
	kind    string
	field   string
	named   bool
	prefix  string
	text    string
}

var _ Element = (*Leaf)(nil)

// NewLeaf returns a named leaf with a fresh ID.
func NewLeaf(kind, prefix, text string) *Leaf {
	return &Leaf{id: rewrite.NewTreeID(), kind: kind, named: true, prefix: prefix, text: text}
}

func (l *Leaf) ID() rewrite.TreeID       { return l.id }
func (l *Leaf) Markers() rewrite.Markers { return l.markers }
func (l *Leaf) Children() []rewrite.Tree { return nil }
func (l *Leaf) Kind() string             { return l.kind }
func (l *Leaf) Field() string            { return l.field }
func (l *Leaf) Named() bool              { return l.named }
func (l *Leaf) Prefix() string           { return l.prefix }
func (l *Leaf) Text() string             { return l.text }

func (l *Leaf) WithMarkers(m rewrite.Markers) rewrite.Tree {
	if l.markers.Equal(m) {
		return l
	}
	out := *l
	out.markers = m
	return &out
}

func (l *Leaf) WithChildren(children []rewrite.Tree) rewrite.Tree {
	return l
}

// WithText returns l with its token text replaced.
func (l *Leaf) WithText(text string) *Leaf {
	if l.text == text {
		return l
	}
	out := *l
	out.text = text
	return &out
}

// WithPrefix returns l with the source before it replaced.
func (l *Leaf) WithPrefix(prefix string) *Leaf {
	if l.prefix == prefix {
		return l
	}
	out := *l
	out.prefix = prefix
	return &out
}

// WithField returns l as the named field of its parent.
func (l *Leaf) WithField(field string) *Leaf {
	if l.field == field {
		return l
	}
	out := *l
	out.field = field
	return &out
}

// Node is an interior syntax node.
type Node struct {
	id       rewrite.TreeID
	markers  rewrite.Markers
	kind     string
	field    string
	named    bool
	children []rewrite.Tree
}

var (
	_ Element              = (*Node)(nil)
	_ rewrite.ChildRemover = (*Node)(nil)
)

// NewNode returns a named node with a fresh ID.
func NewNode(kind string, children ...rewrite.Tree) *Node {
	return &Node{id: rewrite.NewTreeID(), kind: kind, named: true, children: children}
}

func (n *Node) ID() rewrite.TreeID       { return n.id }
func (n *Node) Markers() rewrite.Markers { return n.markers }
func (n *Node) Children() []rewrite.Tree { return n.children }
func (n *Node) Kind() string             { return n.kind }
func (n *Node) Field() string            { return n.field }
func (n *Node) Named() bool              { return n.named }

func (n *Node) WithMarkers(m rewrite.Markers) rewrite.Tree {
	if n.markers.Equal(m) {
		return n
	}
	out := *n
	out.markers = m
	return &out
}

func (n *Node) WithChildren(children []rewrite.Tree) rewrite.Tree {
	if rewrite.SameChildren(n.children, children) {
		return n
	}
	out := *n
	out.children = children
	return &out
}

// WithField returns n as the named field of its parent.
func (n *Node) WithField(field string) *Node {
	if n.field == field {
		return n
	}
	out := *n
	out.field = field
	return &out
}

// CanRemoveChild allows deleting named children that fill no grammar field,
// such as statements in a block or arguments in a list. Tokens and fields
// are structural.
func (n *Node) CanRemoveChild(i int) bool {
	e, ok := n.children[i].(Element)
	return ok && e.Named() && e.Field() == ""
}

// File is a parsed source file.
type File struct {
	id        rewrite.TreeID
	markers   rewrite.Markers
	path      string
	language  string
	root      Element
	eof       string
	hasErrors bool
}

var _ rewrite.SourceFile = (*File)(nil)

// NewFile returns a File with a fresh ID. eof is the source after the last
// token of root.
func NewFile(path, language string, root Element, eof string) *File {
	return &File{id: rewrite.NewTreeID(), path: path, language: language, root: root, eof: eof}
}

func (f *File) ID() rewrite.TreeID       { return f.id }
func (f *File) Markers() rewrite.Markers { return f.markers }
func (f *File) Children() []rewrite.Tree { return []rewrite.Tree{f.root} }
func (f *File) SourcePath() string       { return f.path }
func (f *File) Root() rewrite.Tree       { return f.root }

// Language is the canonical name of the grammar the file was parsed with.
func (f *File) Language() string { return f.language }

// HasErrors reports whether tree-sitter had to recover from syntax errors.
// Such files still print back verbatim.
func (f *File) HasErrors() bool { return f.hasErrors }

// EOF returns the source after the last token.
func (f *File) EOF() string { return f.eof }

func (f *File) WithMarkers(m rewrite.Markers) rewrite.Tree {
	if f.markers.Equal(m) {
		return f
	}
	out := *f
	out.markers = m
	return &out
}

// WithChildren replaces the root. A File has exactly one child and it must
// be an Element.
func (f *File) WithChildren(children []rewrite.Tree) rewrite.Tree {
	if len(children) != 1 {
		panic("cst: a File has exactly one root")
	}
	root, ok := children[0].(Element)
	if !ok {
		panic("cst: File root must be a Leaf or Node")
	}
	if root == f.root {
		return f
	}
	out := *f
	out.root = root
	return &out
}

func (f *File) WithSourcePath(path string) rewrite.SourceFile {
	if f.path == path {
		return f
	}
	out := *f
	out.path = path
	return &out
}
