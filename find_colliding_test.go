package rewrite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCollidingSourceFiles(t *testing.T) {
	t.Parallel()
	recipe, ok := Lookup("rewrite.FindCollidingSourceFiles")
	require.True(t, ok)

	files := []SourceFile{
		file("src/Foo.java", node("a")),
		file("src/Foo.java", node("b")),
		file("src/Bar.java", node("c")),
	}
	res, err := newTestEngine(t, WithParallelism(3)).Run(context.Background(), recipe, files)
	require.NoError(t, err)

	for _, r := range res.Results[:2] {
		assert.Equal(t, []string{"Duplicate source file src/Foo.java"}, SearchResults(r.After))
	}
	assert.False(t, res.Results[2].Changed())

	rows := res.Rows.Rows(CollidingSourceFiles.Name)
	want := CollidingSourceFile{SourcePath: "src/Foo.java", SourceFileType: "*rewrite.testFile"}
	assert.Equal(t, []any{want, want}, rows)

	// Marked files are not reported twice.
	again, err := newTestEngine(t).Run(context.Background(), recipe, res.Files())
	require.NoError(t, err)
	assert.Empty(t, again.Changed())
	assert.Empty(t, again.Rows.Rows(CollidingSourceFiles.Name))
}

func TestCollisionAccumulator(t *testing.T) {
	t.Parallel()
	r := &FindCollidingSourceFiles{}
	acc := r.InitialValue(nil)
	scan := r.Scanner(acc)
	for _, p := range []string{"a", "b", "a", "a"} {
		_, err := Visit(scan, file(p, node("x")), nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, acc.Seen())
	assert.True(t, acc.IsDuplicate("a"))
	assert.False(t, acc.IsDuplicate("b"))

	generated, err := r.Generate(acc, nil)
	require.NoError(t, err)
	assert.Empty(t, generated)
	assert.Zero(t, acc.Seen(), "seen paths are released before editing")
	assert.True(t, acc.IsDuplicate("a"), "duplicates survive generation")
}
