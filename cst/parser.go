package cst

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jward/rewrite"
	"github.com/jward/rewrite/typecache"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrUnsupportedLanguage is returned for files no grammar is registered for.
var ErrUnsupportedLanguage = errors.New("cst: unsupported language")

// Parser builds Files. It is safe for concurrent use; each parse gets its own
// tree-sitter parser.
//
// Node kinds, field names and identifiers are interned in a type cache so
// the trees of a large batch share their strings. Kinds and field names are
// properties of the grammar and go to the class generation; identifiers go
// to the source generation and are dropped by Reset.
type Parser struct {
	types *typecache.Cache[string]
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithTypeCache shares an existing cache, for example one already warmed by
// another batch.
func WithTypeCache(c *typecache.Cache[string]) ParserOption {
	return func(p *Parser) {
		p.types = c
	}
}

// NewParser creates a Parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	if p.types == nil {
		p.types = typecache.New[string]()
	}
	return p
}

// TypeCache returns the parser's intern cache.
func (p *Parser) TypeCache() *typecache.Cache[string] { return p.types }

// Fork returns a parser with an independent copy of the intern cache.
func (p *Parser) Fork() *Parser {
	return &Parser{types: p.types.Clone()}
}

// Reset drops the identifiers interned from parsed sources.
func (p *Parser) Reset() {
	p.types.Clear()
}

// Parse parses src with the grammar chosen by path's extension.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*File, error) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
	}
	return p.ParseLanguage(ctx, lang, path, src)
}

// ParseLanguage parses src with the named grammar.
func (p *Parser) ParseLanguage(ctx context.Context, lang, path string, src []byte) (*File, error) {
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("cst: parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	b := &builder{src: src, lang: lang, types: p.types}
	elem := b.element(root, "")
	f := NewFile(path, lang, elem, string(src[b.prevEnd:]))
	f.hasErrors = root.HasError()
	return f, nil
}

type builder struct {
	src     []byte
	prevEnd uint32
	lang    string
	types   *typecache.Cache[string]
}

func (b *builder) element(n *sitter.Node, field string) Element {
	kind := b.grammarString("kind", n.Type())
	count := int(n.ChildCount())
	if count == 0 || isAtomic(kind) {
		return b.leaf(n, kind, field)
	}
	children := make([]rewrite.Tree, 0, count)
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		var childField string
		if name := n.FieldNameForChild(i); name != "" {
			childField = b.grammarString("field", name)
		}
		children = append(children, b.element(child, childField))
	}
	return &Node{
		id:       rewrite.NewTreeID(),
		kind:     kind,
		field:    field,
		named:    n.IsNamed(),
		children: children,
	}
}

func (b *builder) leaf(n *sitter.Node, kind, field string) *Leaf {
	start, end := n.StartByte(), n.EndByte()
	start = max(start, b.prevEnd)
	end = max(end, start)
	text := string(b.src[start:end])
	if strings.Contains(kind, "identifier") {
		text = b.identifier(text)
	}
	l := &Leaf{
		id:     rewrite.NewTreeID(),
		kind:   kind,
		field:  field,
		named:  n.IsNamed(),
		prefix: string(b.src[b.prevEnd:start]),
		text:   text,
	}
	b.prevEnd = end
	return l
}

func (b *builder) grammarString(space, s string) string {
	sig := b.lang + "\x00" + space + "\x00" + s
	if v, ok := b.types.Get(sig); ok {
		return v
	}
	b.types.PutOrigin(typecache.OriginClass, sig, s)
	return s
}

func (b *builder) identifier(s string) string {
	if v, ok := b.types.Get(s); ok {
		return v
	}
	b.types.Put(s, s)
	return s
}

// isAtomic reports whether nodes of kind are kept as a single leaf even when
// the grammar gives them children. String literals are edited as a whole.
func isAtomic(kind string) bool {
	switch kind {
	case "character_literal", "char_literal", "rune_literal":
		return true
	}
	return strings.HasSuffix(kind, "string") || strings.HasSuffix(kind, "string_literal")
}
