package rewrite

import "fmt"

// Visitor rewrites a tree. Visit receives the cursor positioned on t
// (c.Value() == t) and returns the replacement: t itself when nothing
// changed, a new tree to replace it, or nil to delete it from its parent.
//
// Traversal is caller driven: a visitor that wants to descend calls
// VisitChildren explicitly.
type Visitor interface {
	Visit(c *Cursor, t Tree) (Tree, error)
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(c *Cursor, t Tree) (Tree, error)

func (f VisitorFunc) Visit(c *Cursor, t Tree) (Tree, error) { return f(c, t) }

// Visit runs v over t with a fresh root cursor.
func Visit(v Visitor, t Tree, ec *ExecutionContext) (Tree, error) {
	return v.Visit(NewRootCursor(ec, t), t)
}

// DeletionError reports a visitor returning nil for a child its parent
// requires.
type DeletionError struct {
	Parent Tree
	Index  int
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("rewrite: child %d of %T %s cannot be deleted", e.Index, e.Parent, e.Parent.ID())
}

// VisitChildren visits every child of t with v and reassembles t from the
// results. When no child changes, t itself is returned and nothing is
// allocated beyond the child cursors.
func VisitChildren(v Visitor, c *Cursor, t Tree) (Tree, error) {
	children := t.Children()
	var out []Tree
	for i, child := range children {
		next, err := v.Visit(c.Child(child), child)
		if err != nil {
			return t, err
		}
		if next == child && out == nil {
			continue
		}
		if out == nil {
			out = make([]Tree, 0, len(children))
			out = append(out, children[:i]...)
		}
		if next == nil {
			remover, ok := t.(ChildRemover)
			if !ok || !remover.CanRemoveChild(i) {
				return t, &DeletionError{Parent: t, Index: i}
			}
			continue
		}
		out = append(out, next)
	}
	if out == nil {
		return t, nil
	}
	return t.WithChildren(out), nil
}

// TreeVisitor is a Visitor that descends into every node. Pre runs before
// the children are visited and Post after; either may be nil. Returning nil
// from Pre deletes the node without visiting its children.
type TreeVisitor struct {
	Pre  func(c *Cursor, t Tree) (Tree, error)
	Post func(c *Cursor, t Tree) (Tree, error)
}

func (v *TreeVisitor) Visit(c *Cursor, t Tree) (Tree, error) {
	if v.Pre != nil {
		next, err := v.Pre(c, t)
		if err != nil || next == nil {
			return next, err
		}
		if next != t {
			c = c.replace(next)
			t = next
		}
	}
	t, err := VisitChildren(v, c, t)
	if err != nil {
		return t, err
	}
	if v.Post != nil {
		if t != c.value {
			c = c.replace(t)
		}
		return v.Post(c, t)
	}
	return t, nil
}

// replace returns a cursor at the same position and scope holding t.
func (c *Cursor) replace(t Tree) *Cursor {
	return &Cursor{parent: c.parent, value: t, ec: c.ec, depth: c.depth, messages: c.messages}
}
