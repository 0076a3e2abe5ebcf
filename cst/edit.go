package cst

import "github.com/jward/rewrite"

// ReplaceLeaf returns t with the element whose ID is id replaced by repl.
// Only the ancestors of the replaced element are copied.
func ReplaceLeaf(t rewrite.Tree, id rewrite.TreeID, repl rewrite.Tree) rewrite.Tree {
	if t.ID() == id {
		return repl
	}
	children := t.Children()
	for i, c := range children {
		next := ReplaceLeaf(c, id, repl)
		if next == c {
			continue
		}
		out := make([]rewrite.Tree, len(children))
		copy(out, children)
		out[i] = next
		return t.WithChildren(out)
	}
	return t
}

// InsertAfter returns t with extra placed right after the leaf whose ID is
// id. The leaf and the inserted elements are grouped under a new node that
// takes the leaf's place, so the parent keeps its shape.
func InsertAfter(t rewrite.Tree, id rewrite.TreeID, extra ...Element) rewrite.Tree {
	var target *Leaf
	for _, l := range Leaves(t) {
		if l.ID() == id {
			target = l
			break
		}
	}
	if target == nil || len(extra) == 0 {
		return t
	}
	children := make([]rewrite.Tree, 0, len(extra)+1)
	children = append(children, target.WithField(""))
	for _, e := range extra {
		children = append(children, e)
	}
	group := &Node{
		id:       rewrite.NewTreeID(),
		kind:     target.kind,
		field:    target.field,
		named:    target.named,
		children: children,
	}
	return ReplaceLeaf(t, id, group)
}

// NewToken returns an anonymous leaf, such as punctuation.
func NewToken(prefix, text string) *Leaf {
	return &Leaf{id: rewrite.NewTreeID(), kind: text, prefix: prefix, text: text}
}
