package cst

import (
	"strings"

	"github.com/jward/rewrite"
)

// Print returns the source text of t. For a File parsed by Parser and not
// edited since, it is exactly the parsed source.
func Print(t rewrite.Tree) string {
	var sb strings.Builder
	write(&sb, t)
	return sb.String()
}

func write(sb *strings.Builder, t rewrite.Tree) {
	switch v := t.(type) {
	case *Leaf:
		sb.WriteString(v.prefix)
		sb.WriteString(v.text)
	case *File:
		write(sb, v.root)
		sb.WriteString(v.eof)
	default:
		for _, c := range t.Children() {
			write(sb, c)
		}
	}
}

// Print returns the file's source text.
func (f *File) Print() string { return Print(f) }

// Text returns the source of t without the whitespace in front of its first
// token.
func Text(t rewrite.Tree) string {
	s := Print(t)
	if l := FirstLeaf(t); l != nil {
		return s[len(l.prefix):]
	}
	return s
}

// FirstLeaf returns the first token of t, or nil when t has none.
func FirstLeaf(t rewrite.Tree) *Leaf {
	if l, ok := t.(*Leaf); ok {
		return l
	}
	for _, c := range t.Children() {
		if l := FirstLeaf(c); l != nil {
			return l
		}
	}
	return nil
}

// Leaves returns the tokens of t in source order.
func Leaves(t rewrite.Tree) []*Leaf {
	var out []*Leaf
	var walk func(rewrite.Tree)
	walk = func(t rewrite.Tree) {
		if l, ok := t.(*Leaf); ok {
			out = append(out, l)
			return
		}
		for _, c := range t.Children() {
			walk(c)
		}
	}
	walk(t)
	return out
}
