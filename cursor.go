package rewrite

// Cursor is the path from a traversal's root to the tree currently being
// visited. Each level owns a message bag; messages put on a level are visible
// to descendants through NearestMessage and vanish when the traversal leaves
// that level. A Cursor must not be retained after the visit that received it.
type Cursor struct {
	parent   *Cursor
	value    Tree
	ec       *ExecutionContext
	depth    int
	messages map[string]any
}

// NewRootCursor returns a cursor positioned on root.
func NewRootCursor(ec *ExecutionContext, root Tree) *Cursor {
	if ec == nil {
		ec = NewExecutionContext(nil)
	}
	return &Cursor{value: root, ec: ec}
}

// Child returns a cursor positioned on t beneath c.
func (c *Cursor) Child(t Tree) *Cursor {
	return &Cursor{parent: c, value: t, ec: c.ec, depth: c.depth + 1}
}

// Parent returns the enclosing cursor, or nil at the root.
func (c *Cursor) Parent() *Cursor { return c.parent }

// Value returns the tree at this position.
func (c *Cursor) Value() Tree { return c.value }

// Depth is 0 at the root.
func (c *Cursor) Depth() int { return c.depth }

// IsRoot reports whether c has no parent.
func (c *Cursor) IsRoot() bool { return c.parent == nil }

// ExecutionContext returns the context of the run this traversal belongs to.
func (c *Cursor) ExecutionContext() *ExecutionContext { return c.ec }

// Root returns the root cursor.
func (c *Cursor) Root() *Cursor {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// Path returns the trees from the root to c, root first.
func (c *Cursor) Path() []Tree {
	out := make([]Tree, c.depth+1)
	for cur := c; cur != nil; cur = cur.parent {
		out[cur.depth] = cur.value
	}
	return out
}

// FirstEnclosing walks from c's parent toward the root and returns the first
// tree matching pred.
func (c *Cursor) FirstEnclosing(pred func(Tree) bool) (Tree, bool) {
	for cur := c.parent; cur != nil; cur = cur.parent {
		if pred(cur.value) {
			return cur.value, true
		}
	}
	return nil, false
}

// FirstEnclosingSourceFile returns the nearest SourceFile at or above c.
func (c *Cursor) FirstEnclosingSourceFile() (SourceFile, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if sf, ok := cur.value.(SourceFile); ok {
			return sf, true
		}
	}
	return nil, false
}

// PutMessage stores a message on this level.
func (c *Cursor) PutMessage(key string, value any) {
	if c.messages == nil {
		c.messages = make(map[string]any)
	}
	c.messages[key] = value
}

// Message returns a message stored on this level only.
func (c *Cursor) Message(key string) (any, bool) {
	v, ok := c.messages[key]
	return v, ok
}

// NearestMessage returns the message stored on the closest level at or above c.
func (c *Cursor) NearestMessage(key string) (any, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if v, ok := cur.messages[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// PutMessageOnFirstEnclosing stores a message on the nearest enclosing level
// whose tree matches pred. It reports whether such a level was found.
func (c *Cursor) PutMessageOnFirstEnclosing(pred func(Tree) bool, key string, value any) bool {
	for cur := c.parent; cur != nil; cur = cur.parent {
		if pred(cur.value) {
			cur.PutMessage(key, value)
			return true
		}
	}
	return false
}
