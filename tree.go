package rewrite

import (
	"github.com/google/uuid"
)

// TreeID is the stable identity of a tree node or marker. It survives edits:
// a node produced by WithChildren or WithMarkers keeps its receiver's ID.
type TreeID = uuid.UUID

// NewTreeID returns a random TreeID.
func NewTreeID() TreeID {
	return uuid.New()
}

// Tree is an immutable node in a parsed program representation. Concrete
// languages supply their own node types; the engine only relies on this
// capability set.
//
// Implementations must be pointer types so that identity comparison is
// meaningful, and WithChildren/WithMarkers must return the receiver when the
// argument is identical to the current value.
type Tree interface {
	ID() TreeID
	Markers() Markers
	WithMarkers(m Markers) Tree
	Children() []Tree
	WithChildren(children []Tree) Tree
}

// SourceFile is the root of one parsed unit.
type SourceFile interface {
	Tree
	// SourcePath is the logical path of the file, used as its identity for
	// cross-file bookkeeping. Two distinct files may report the same path.
	SourcePath() string
	// WithSourcePath returns a copy with a different logical path.
	WithSourcePath(path string) SourceFile
	// Root returns the language-specific root node of the file.
	Root() Tree
}

// ChildRemover is implemented by trees that allow some of their children to
// be deleted by a visitor returning nil. Trees that do not implement it
// reject every deletion.
type ChildRemover interface {
	CanRemoveChild(i int) bool
}

// SameChildren reports whether two child lists hold the same trees by
// identity. Trees use it to return themselves from WithChildren.
func SameChildren(a, b []Tree) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
