package rewrite

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

// Recipe is a unit of transformation. A stateless recipe's Visitor is run
// against every source file independently, in any order and on any number of
// workers, so it must not share mutable state between files.
//
// Options are exported struct fields of the recipe tagged with
// `option:"Display name"`, plus optional `description`, `example` and
// go-playground `validate` tags.
type Recipe interface {
	Name() string
	DisplayName() string
	Description() string
	Visitor() Visitor
}

// Validator is an optional hook for checks the struct tags cannot express.
type Validator interface {
	Validate() error
}

// InstanceNamer is implemented by recipes whose display name depends on
// their options.
type InstanceNamer interface {
	InstanceName() string
}

// RecipeList is implemented by recipes made of other recipes, which run in
// order as a pipeline.
type RecipeList interface {
	RecipeList() []Recipe
}

// InstanceName returns the display name of r with its option suffix.
func InstanceName(r Recipe) string {
	if n, ok := r.(InstanceNamer); ok {
		if suffix := n.InstanceName(); suffix != "" {
			return r.DisplayName() + " " + suffix
		}
	}
	return r.DisplayName()
}

// OptionDescriptor describes one declared recipe option.
type OptionDescriptor struct {
	Field       string
	DisplayName string
	Description string
	Example     string
	Required    bool
	Value       any
}

// optionHolder is implemented by wrappers whose options live on another value.
type optionHolder interface {
	optionSource() any
}

func optionSource(r Recipe) any {
	if h, ok := r.(optionHolder); ok {
		return h.optionSource()
	}
	return r
}

// Options reflects the options declared on r.
func Options(r Recipe) []OptionDescriptor {
	v := reflect.Indirect(reflect.ValueOf(optionSource(r)))
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	var out []OptionDescriptor
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		display, ok := f.Tag.Lookup("option")
		if !ok || !f.IsExported() {
			continue
		}
		out = append(out, OptionDescriptor{
			Field:       f.Name,
			DisplayName: display,
			Description: f.Tag.Get("description"),
			Example:     f.Tag.Get("example"),
			Required:    hasRule(f.Tag.Get("validate"), "required"),
			Value:       v.Field(i).Interface(),
		})
	}
	return out
}

func hasRule(tag, rule string) bool {
	for _, r := range strings.Split(tag, ",") {
		if r == rule {
			return true
		}
	}
	return false
}

var optionValidator = validator.New()

// ValidationError collects everything wrong with a recipe's options.
type ValidationError struct {
	Recipe string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rewrite: recipe %s is invalid: %v", e.Recipe, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks r's options and runs its Validator hook. Composite recipes
// validate every member. It returns nil or a *ValidationError.
func Validate(r Recipe) error {
	var result *multierror.Error
	collectValidation(r, &result)
	if err := result.ErrorOrNil(); err != nil {
		return &ValidationError{Recipe: r.Name(), Err: err}
	}
	return nil
}

func collectValidation(r Recipe, result **multierror.Error) {
	if u, ok := r.(interface{ Unwrap() Recipe }); ok {
		collectValidation(u.Unwrap(), result)
		return
	}
	src := optionSource(r)
	if reflect.Indirect(reflect.ValueOf(src)).Kind() == reflect.Struct {
		if err := optionValidator.Struct(src); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) {
				for _, fe := range fieldErrs {
					*result = multierror.Append(*result,
						fmt.Errorf("%s: option %s failed %q", r.Name(), fe.Field(), fe.Tag()))
				}
			} else {
				*result = multierror.Append(*result, fmt.Errorf("%s: %w", r.Name(), err))
			}
		}
	}
	if v, ok := src.(Validator); ok {
		if err := v.Validate(); err != nil {
			*result = multierror.Append(*result, fmt.Errorf("%s: %w", r.Name(), err))
		}
	}
	if l, ok := r.(RecipeList); ok {
		for _, sub := range l.RecipeList() {
			collectValidation(sub, result)
		}
	}
}

// Noop is a visitor that returns every tree unchanged.
var Noop Visitor = VisitorFunc(func(_ *Cursor, t Tree) (Tree, error) { return t, nil })

// Composite runs Recipes in order; each sees the files the previous produced.
type Composite struct {
	ID      string
	Display string
	Desc    string
	Recipes []Recipe
}

var _ RecipeList = (*Composite)(nil)

func (c *Composite) Name() string         { return c.ID }
func (c *Composite) DisplayName() string  { return c.Display }
func (c *Composite) Description() string  { return c.Desc }
func (c *Composite) Visitor() Visitor     { return Noop }
func (c *Composite) RecipeList() []Recipe { return c.Recipes }

// WithPrecondition gates r's edit visitor behind pre. When r is a composite
// the precondition applies to each member. Scanners are not gated.
func WithPrecondition(r Recipe, pre Visitor) Recipe {
	return &gated{inner: r, pre: pre}
}

type gated struct {
	inner Recipe
	pre   Visitor
}

func (g *gated) Name() string        { return g.inner.Name() }
func (g *gated) DisplayName() string { return g.inner.DisplayName() }
func (g *gated) Description() string { return g.inner.Description() }
func (g *gated) Visitor() Visitor    { return Check(g.pre, g.inner.Visitor()) }
func (g *gated) Unwrap() Recipe      { return g.inner }
func (g *gated) optionSource() any   { return optionSource(g.inner) }

var registry = struct {
	sync.RWMutex
	factories map[string]func() Recipe
}{factories: make(map[string]func() Recipe)}

// Register makes a recipe constructible by name, for declarative
// configuration and the CLI. Registering a name twice replaces it.
func Register(name string, factory func() Recipe) {
	registry.Lock()
	defer registry.Unlock()
	registry.factories[name] = factory
}

// Lookup returns a new instance of the named recipe.
func Lookup(name string) (Recipe, bool) {
	registry.RLock()
	factory, ok := registry.factories[name]
	registry.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Registered returns the sorted names of every registered recipe.
func Registered() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
