package rewrite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hookedRecipe struct {
	renameRecipe
	Limit int `option:"Limit" validate:"gte=0,lte=10"`
}

func (r *hookedRecipe) Validate() error {
	if r.From == r.To {
		return errors.New("From and To must differ")
	}
	return nil
}

func TestOptions(t *testing.T) {
	t.Parallel()
	opts := Options(&renameRecipe{From: "a", To: "b"})
	require.Len(t, opts, 2)
	assert.Equal(t, OptionDescriptor{
		Field:       "To",
		DisplayName: "To",
		Description: "Replacement name.",
		Example:     "b",
		Required:    true,
		Value:       "b",
	}, opts[1])

	gated := WithPrecondition(&renameRecipe{From: "a", To: "b"}, Noop)
	assert.Equal(t, opts, Options(gated), "options are read through precondition wrappers")
	assert.Nil(t, Options(&funcRecipe{}))
}

func TestInstanceName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Rename nodes `a` to `b`", InstanceName(&renameRecipe{From: "a", To: "b"}))
	assert.Equal(t, "plain", InstanceName(&funcRecipe{name: "plain"}))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		recipe Recipe
		want   []string
	}{
		{"valid", &renameRecipe{From: "a", To: "b"}, nil},
		{"missing option", &renameRecipe{From: "a"}, []string{`test.Rename: option To failed "required"`}},
		{"hook", &hookedRecipe{renameRecipe: renameRecipe{From: "a", To: "a"}}, []string{"From and To must differ"}},
		{"range", &hookedRecipe{renameRecipe: renameRecipe{From: "a", To: "b"}, Limit: 11}, []string{`option Limit failed "lte"`}},
		{"composite collects every member", &Composite{ID: "test.Pipeline", Recipes: []Recipe{
			&renameRecipe{To: "b"},
			WithPrecondition(&renameRecipe{From: "a"}, Noop),
			&Composite{ID: "nested", Recipes: []Recipe{&hookedRecipe{renameRecipe: renameRecipe{From: "x", To: "x"}}}},
		}}, []string{"option From failed", "option To failed", "must differ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.recipe)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.recipe.Name(), ve.Recipe)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestValidate_PreconditionWrapperReportsOnce(t *testing.T) {
	t.Parallel()
	err := Validate(WithPrecondition(&renameRecipe{From: "a"}, Noop))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 error occurred")
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	Register("test.RegistryRename", func() Recipe { return &renameRecipe{} })

	r1, ok := Lookup("test.RegistryRename")
	require.True(t, ok)
	r2, _ := Lookup("test.RegistryRename")
	assert.NotSame(t, r1, r2, "every lookup builds a new instance")

	_, ok = Lookup("test.Missing")
	assert.False(t, ok)

	names := Registered()
	assert.Contains(t, names, "test.RegistryRename")
	assert.Contains(t, names, "rewrite.FindCollidingSourceFiles")
	assert.IsNonDecreasing(t, names)
}

func TestFlatten(t *testing.T) {
	t.Parallel()
	a := &renameRecipe{From: "a", To: "b"}
	b := &renameRecipe{From: "b", To: "c"}
	c := &renameRecipe{From: "c", To: "d"}

	leaves := flatten(&Composite{Recipes: []Recipe{a, &Composite{Recipes: []Recipe{b, c}}}})
	assert.Equal(t, []Recipe{a, b, c}, leaves)

	gatedLeaf := WithPrecondition(a, Noop)
	assert.Equal(t, []Recipe{gatedLeaf}, flatten(gatedLeaf))

	pushed := flatten(WithPrecondition(&Composite{Recipes: []Recipe{a, b}}, Noop))
	require.Len(t, pushed, 2)
	for i, want := range []Recipe{a, b} {
		g, ok := pushed[i].(*gated)
		require.True(t, ok)
		assert.Same(t, want, g.inner)
	}
}
