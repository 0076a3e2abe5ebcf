package cst

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jward/rewrite"
)

// IsLanguage holds for Files parsed with any of the named grammars.
func IsLanguage(langs ...string) rewrite.Visitor {
	return rewrite.Predicate("language "+strings.Join(langs, "|"), func(t rewrite.Tree) bool {
		f, ok := t.(*File)
		if !ok {
			return false
		}
		for _, l := range langs {
			if f.language == l {
				return true
			}
		}
		return false
	})
}

func init() {
	rewrite.Register("cst.FindNodes", func() rewrite.Recipe { return &FindNodes{} })
}

// FindNodes marks every node of a kind, optionally only those whose source
// text matches a pattern.
type FindNodes struct {
	Kind     string `yaml:"kind" option:"Node kind" description:"The tree-sitter node type to find." example:"method_invocation" validate:"required"`
	Language string `yaml:"language" option:"Language" description:"Only search files of this language." example:"java"`
	Text     string `yaml:"text" option:"Text pattern" description:"A glob the node's source text must match." example:"*.println(*)"`
}

func (r *FindNodes) Name() string        { return "cst.FindNodes" }
func (r *FindNodes) DisplayName() string { return "Find syntax nodes" }
func (r *FindNodes) Description() string {
	return "Marks syntax nodes of a given kind as search results."
}

func (r *FindNodes) InstanceName() string {
	if r.Text != "" {
		return fmt.Sprintf("`%s` matching `%s`", r.Kind, r.Text)
	}
	return fmt.Sprintf("`%s`", r.Kind)
}

func (r *FindNodes) Validate() error {
	if r.Text == "" {
		return nil
	}
	if !doublestar.ValidatePattern(r.Text) {
		return fmt.Errorf("text pattern %q is not a valid glob", r.Text)
	}
	return nil
}

func (r *FindNodes) Visitor() rewrite.Visitor {
	v := &rewrite.TreeVisitor{
		Post: func(_ *rewrite.Cursor, t rewrite.Tree) (rewrite.Tree, error) {
			e, ok := t.(Element)
			if !ok || e.Kind() != r.Kind {
				return t, nil
			}
			if r.Text != "" {
				matched, err := doublestar.Match(r.Text, Text(t))
				if err != nil || !matched {
					return t, err
				}
			}
			return rewrite.Found(t, "found "+r.Kind), nil
		},
	}
	if r.Language == "" {
		return v
	}
	return rewrite.Check(IsLanguage(r.Language), v)
}
