// Package config loads declarative recipes from rewrite.yml files.
//
// A file holds one or more YAML documents of this shape:
//
//	type: specs.rewrite/v1/recipe
//	name: com.example.SourcesClassifier
//	displayName: Use sources jars
//	description: Switches dependencies to their sources classifier.
//	preconditions:
//	  - path: "**/build.gradle"
//	  - script: language == "groovy"
//	  - builtin: gradle_build
//	recipeList:
//	  - gradle.ChangeDependencyClassifier:
//	      groupId: org.openrewrite
//	      artifactId: "*"
//	      newClassifier: sources
//	  - rewrite.FindCollidingSourceFiles
//
// Entries of recipeList name registered recipes or other declarative
// recipes, in any document of the same catalog. All preconditions must hold.
// A builtin precondition names one of the scripts embedded in package
// scripts; scriptFile paths are relative to the runtime's scripts directory.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/jward/rewrite"
	"github.com/jward/rewrite/internal/runtime"
	"github.com/jward/rewrite/scripts"
)

// RecipeType is the type every recipe document must declare.
const RecipeType = "specs.rewrite/v1/recipe"

type document struct {
	Type          string         `yaml:"type"`
	Name          string         `yaml:"name"`
	DisplayName   string         `yaml:"displayName"`
	Description   string         `yaml:"description"`
	Preconditions []precondition `yaml:"preconditions"`
	RecipeList    []yaml.Node    `yaml:"recipeList"`
}

type precondition struct {
	Path       string `yaml:"path"`
	Script     string `yaml:"script"`
	ScriptFile string `yaml:"scriptFile"`
	Builtin    string `yaml:"builtin"`
}

// Catalog holds the declarative recipes of one or more files.
type Catalog struct {
	recipes map[string]rewrite.Recipe
}

// Lookup returns the declarative recipe called name, falling back to the
// global registry.
func (c *Catalog) Lookup(name string) (rewrite.Recipe, bool) {
	if r, ok := c.recipes[name]; ok {
		return r, true
	}
	return rewrite.Lookup(name)
}

// Names returns the sorted names of the declarative recipes.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.recipes))
	for name := range c.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Recipes returns the declarative recipes sorted by name.
func (c *Catalog) Recipes() []rewrite.Recipe {
	out := make([]rewrite.Recipe, 0, len(c.recipes))
	for _, name := range c.Names() {
		out = append(out, c.recipes[name])
	}
	return out
}

// Loader builds declarative recipes. Script preconditions are evaluated by
// its Risor runtime.
type Loader struct {
	runtime  *runtime.Runtime
	builtins *runtime.Runtime
}

// NewLoader creates a Loader. A nil runtime rejects script preconditions.
func NewLoader(rt *runtime.Runtime) *Loader {
	l := &Loader{runtime: rt}
	if rt != nil {
		l.builtins = rt.WithFS(scripts.FS)
	}
	return l
}

// LoadFile reads and loads a rewrite.yml file.
func (l *Loader) LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c, err := l.Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Load decodes every document of r and builds the recipes they declare.
// All problems found are reported together.
func (l *Loader) Load(r io.Reader) (*Catalog, error) {
	docs := make(map[string]*document)
	var order []string
	var result *multierror.Error

	dec := yaml.NewDecoder(r)
	for i := 1; ; i++ {
		doc := &document{}
		err := dec.Decode(doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document %d: %w", i, err)
		}
		switch {
		case doc.Type != RecipeType:
			result = multierror.Append(result, fmt.Errorf("document %d: unsupported type %q", i, doc.Type))
			continue
		case doc.Name == "":
			result = multierror.Append(result, fmt.Errorf("document %d: recipe has no name", i))
			continue
		case docs[doc.Name] != nil:
			result = multierror.Append(result, fmt.Errorf("document %d: recipe %s declared twice", i, doc.Name))
			continue
		}
		docs[doc.Name] = doc
		order = append(order, doc.Name)
	}

	b := &builder{loader: l, docs: docs, built: make(map[string]rewrite.Recipe), building: make(map[string]bool)}
	for _, name := range order {
		if _, err := b.build(name); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &Catalog{recipes: b.built}, nil
}

type builder struct {
	loader   *Loader
	docs     map[string]*document
	built    map[string]rewrite.Recipe
	building map[string]bool
}

func (b *builder) build(name string) (rewrite.Recipe, error) {
	if r, ok := b.built[name]; ok {
		return r, nil
	}
	if b.building[name] {
		return nil, fmt.Errorf("recipe %s includes itself", name)
	}
	b.building[name] = true
	defer delete(b.building, name)

	doc := b.docs[name]
	composite := &rewrite.Composite{ID: doc.Name, Display: doc.DisplayName, Desc: doc.Description}
	if composite.Display == "" {
		composite.Display = doc.Name
	}
	for i := range doc.RecipeList {
		sub, err := b.entry(name, &doc.RecipeList[i])
		if err != nil {
			return nil, err
		}
		composite.Recipes = append(composite.Recipes, sub)
	}

	var recipe rewrite.Recipe = composite
	if len(doc.Preconditions) > 0 {
		pres := make([]rewrite.Visitor, 0, len(doc.Preconditions))
		for i, p := range doc.Preconditions {
			pre, err := b.loader.precondition(name, i, p)
			if err != nil {
				return nil, err
			}
			pres = append(pres, pre)
		}
		recipe = rewrite.WithPrecondition(composite, rewrite.And(pres...))
	}
	if err := rewrite.Validate(recipe); err != nil {
		return nil, err
	}
	b.built[name] = recipe
	return recipe, nil
}

// entry resolves one recipeList item: a bare name, or a single-key map from
// name to options.
func (b *builder) entry(parent string, n *yaml.Node) (rewrite.Recipe, error) {
	var (
		name    string
		options *yaml.Node
	)
	switch {
	case n.Kind == yaml.ScalarNode:
		name = n.Value
	case n.Kind == yaml.MappingNode && len(n.Content) == 2:
		name, options = n.Content[0].Value, n.Content[1]
	default:
		return nil, fmt.Errorf("recipe %s: line %d: recipeList entries are a name or a map of one name to options", parent, n.Line)
	}

	if _, ok := b.docs[name]; ok {
		if options != nil && options.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("recipe %s: line %d: declarative recipe %s takes no options", parent, n.Line, name)
		}
		return b.build(name)
	}

	r, ok := rewrite.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("recipe %s: line %d: unknown recipe %s", parent, n.Line, name)
	}
	if options == nil || (options.Kind == yaml.ScalarNode && options.Tag == "!!null") {
		return r, nil
	}
	if len(rewrite.Options(r)) == 0 {
		return nil, fmt.Errorf("recipe %s: line %d: recipe %s takes no options", parent, n.Line, name)
	}
	if err := options.Decode(r); err != nil {
		return nil, fmt.Errorf("recipe %s: line %d: options of %s: %w", parent, n.Line, name, err)
	}
	return r, nil
}

func (l *Loader) precondition(recipe string, i int, p precondition) (rewrite.Visitor, error) {
	set := 0
	for _, s := range []string{p.Path, p.Script, p.ScriptFile, p.Builtin} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("recipe %s: precondition %d needs exactly one of path, script, scriptFile or builtin", recipe, i+1)
	}

	switch {
	case p.Path != "":
		if !doublestar.ValidatePattern(p.Path) {
			return nil, fmt.Errorf("recipe %s: precondition %d: %q is not a valid glob", recipe, i+1, p.Path)
		}
		return rewrite.HasSourcePath(p.Path), nil
	case l.runtime == nil:
		return nil, fmt.Errorf("recipe %s: precondition %d: scripts are not enabled", recipe, i+1)
	case p.Script != "":
		return l.runtime.Precondition(fmt.Sprintf("%s#%d", recipe, i+1), p.Script), nil
	case p.Builtin != "":
		pre, err := l.builtins.PreconditionScript(scripts.Precondition(p.Builtin))
		if err != nil {
			return nil, fmt.Errorf("recipe %s: precondition %d: no builtin %q", recipe, i+1, p.Builtin)
		}
		return pre, nil
	default:
		pre, err := l.runtime.PreconditionScript(p.ScriptFile)
		if err != nil {
			return nil, fmt.Errorf("recipe %s: precondition %d: %w", recipe, i+1, err)
		}
		return pre, nil
	}
}
