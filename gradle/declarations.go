package gradle

import (
	"strings"
	"unicode"

	"github.com/jward/rewrite"
	"github.com/jward/rewrite/cst"
)

// declaration is one dependency declaration inside a dependencies block,
// such as `implementation 'g:a:v'` or `api(group: 'g', name: 'a')`. It is
// read off the token stream, which keeps it independent of how the grammar
// nests calls and arguments.
type declaration struct {
	configuration *cst.Leaf
	// args are the tokens of the argument list without enclosing parens.
	args []*cst.Leaf
}

// declarations returns the dependency declarations of a build script in
// source order. Comments and tokens with no text, left behind by earlier
// edits, are ignored but stay in the tree.
func declarations(t rewrite.Tree) []declaration {
	var (
		leaves []*cst.Leaf
		// breaks[i] is set when a line break precedes leaves[i], including
		// one hidden behind a skipped comment.
		breaks  []bool
		pending bool
	)
	for _, l := range cst.Leaves(t) {
		if l.Text() == "" {
			pending = pending || strings.Contains(l.Prefix(), "\n")
			continue
		}
		if isComment(l) {
			pending = pending || strings.Contains(l.Prefix(), "\n") ||
				strings.HasPrefix(l.Text(), "//") || strings.Contains(l.Text(), "\n")
			continue
		}
		leaves = append(leaves, l)
		breaks = append(breaks, pending || strings.Contains(l.Prefix(), "\n"))
		pending = false
	}

	var (
		out   []declaration
		stack []bool // one entry per open brace: does it open a dependencies block
	)
	inDependencies := func() bool {
		for _, deps := range stack {
			if deps {
				return true
			}
		}
		return false
	}

	for i := 0; i < len(leaves); i++ {
		l := leaves[i]
		switch l.Text() {
		case "{":
			stack = append(stack, i > 0 && leaves[i-1].Text() == "dependencies")
			continue
		case "}":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if !inDependencies() || !isIdentifier(l.Text()) || !startsStatement(leaves, breaks, i) {
			continue
		}
		args, next := statementArgs(leaves, breaks, i+1)
		if len(args) > 0 {
			out = append(out, declaration{configuration: l, args: args})
		}
		i = next - 1
	}
	return out
}

func isComment(l *cst.Leaf) bool {
	text := l.Text()
	return strings.Contains(l.Kind(), "comment") || strings.HasPrefix(text, "//") || strings.HasPrefix(text, "/*")
}

func startsStatement(leaves []*cst.Leaf, breaks []bool, i int) bool {
	if i == 0 {
		return true
	}
	switch leaves[i-1].Text() {
	case "{", "}", ";":
		return true
	}
	return breaks[i]
}

// statementArgs collects the argument tokens starting at start. The
// statement ends at a brace or semicolon outside parentheses, or at a line
// break that does not follow a comma or an open paren.
func statementArgs(leaves []*cst.Leaf, breaks []bool, start int) ([]*cst.Leaf, int) {
	depth := 0
	j := start
loop:
	for ; j < len(leaves); j++ {
		text := leaves[j].Text()
		if depth == 0 && j > start && breaks[j] {
			if prev := leaves[j-1].Text(); prev != "," && prev != "(" {
				break
			}
		}
		switch text {
		case "(", "[":
			depth++
		case ")", "]":
			if depth == 0 {
				break loop
			}
			depth--
		case "{", "}", ";":
			if depth == 0 {
				break loop
			}
		}
	}
	args := leaves[start:j]
	if len(args) >= 2 && args[0].Text() == "(" && args[len(args)-1].Text() == ")" {
		args = args[1 : len(args)-1]
	}
	return args, j
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == '$' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// literal is a string token without interpolation.
type literal struct {
	leaf  *cst.Leaf
	value string
	quote string
}

func asLiteral(l *cst.Leaf) (literal, bool) {
	text := l.Text()
	for _, q := range []string{`'''`, `"""`, `'`, `"`} {
		if len(text) >= 2*len(q) && strings.HasPrefix(text, q) && strings.HasSuffix(text, q) {
			value := text[len(q) : len(text)-len(q)]
			if q[0] == '"' && strings.Contains(value, "$") {
				return literal{}, false
			}
			return literal{leaf: l, value: value, quote: q}, true
		}
	}
	return literal{}, false
}

// mapEntry is `key: 'value'` in map notation. value is unset when the value
// is not a plain string.
type mapEntry struct {
	key      *cst.Leaf
	colon    *cst.Leaf
	value    literal
	hasValue bool
	// comma is the separator before the entry, nil for the first entry.
	comma *cst.Leaf
	// last is the final token of the entry.
	last *cst.Leaf
}

func (e mapEntry) name() string {
	if lit, ok := asLiteral(e.key); ok {
		return lit.value
	}
	return e.key.Text()
}

// mapEntries parses map notation. It reports false when args do not start
// with a `key:` pair.
func mapEntries(args []*cst.Leaf) ([]mapEntry, bool) {
	if len(args) < 3 || args[1].Text() != ":" {
		return nil, false
	}
	var (
		out   []mapEntry
		comma *cst.Leaf
	)
	for i := 0; i < len(args); {
		if i+2 >= len(args) || args[i+1].Text() != ":" {
			break
		}
		e := mapEntry{key: args[i], colon: args[i+1], comma: comma}
		// The value runs to the next top-level comma.
		j, depth := i+2, 0
	scan:
		for ; j < len(args); j++ {
			switch args[j].Text() {
			case "(", "[":
				depth++
			case ")", "]":
				depth--
			case ",":
				if depth == 0 {
					break scan
				}
			}
		}
		if j == i+2 {
			break
		}
		value := args[i+2 : j]
		e.last = value[len(value)-1]
		if len(value) == 1 {
			e.value, e.hasValue = asLiteral(value[0])
		}
		out = append(out, e)
		if j >= len(args) {
			break
		}
		comma = args[j]
		i = j + 1
	}
	return out, len(out) > 0
}
