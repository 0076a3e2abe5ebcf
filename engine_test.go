package rewrite

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batch(paths ...string) []SourceFile {
	out := make([]SourceFile, len(paths))
	for i, p := range paths {
		out[i] = file(p, node("a", node("b")))
	}
	return out
}

func resultFor(t *testing.T, res *RunResult, path string) Result {
	t.Helper()
	for _, r := range res.Results {
		if r.Path() == path {
			return r
		}
	}
	t.Fatalf("no result for %s", path)
	return Result{}
}

func TestRun_Empty(t *testing.T) {
	t.Parallel()
	res, err := newTestEngine(t).Run(context.Background(), &renameRecipe{From: "a", To: "b"}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 1, res.Cycles)
}

func TestRun_ChangesEveryFile(t *testing.T) {
	t.Parallel()
	files := batch("a.txt", "b.txt", "c.txt")
	res, err := newTestEngine(t, WithParallelism(2)).Run(context.Background(), &renameRecipe{From: "b", To: "x"}, files)
	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	for i, r := range res.Results {
		assert.Same(t, files[i], r.Before, "results keep input order")
		assert.True(t, r.Changed())
		assert.Equal(t, "a(x)", names(r.After))
		assert.Equal(t, []string{"test.Rename"}, r.Recipes)
		assert.Nil(t, r.Err)
	}
	assert.Len(t, res.Changed(), 3)
	assert.Empty(t, res.Failed())
	assert.Len(t, res.Files(), 3)
}

func TestRun_UnchangedFilesAreIdentical(t *testing.T) {
	t.Parallel()
	files := batch("a.txt")
	res, err := newTestEngine(t).Run(context.Background(), &renameRecipe{From: "zzz", To: "x"}, files)
	require.NoError(t, err)
	assert.Same(t, files[0], res.Results[0].After)
	assert.False(t, res.Results[0].Changed())
	assert.Empty(t, res.Results[0].Recipes)
}

func TestRun_ValidatesFirst(t *testing.T) {
	t.Parallel()
	visited := false
	probe := &funcRecipe{name: "test.Probe", fn: func(_ *Cursor, t Tree) (Tree, error) {
		visited = true
		return t, nil
	}}
	recipe := &Composite{ID: "test.Pipeline", Recipes: []Recipe{probe, &renameRecipe{From: "a"}}}

	res, err := newTestEngine(t).Run(context.Background(), recipe, batch("a.txt"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Nil(t, res)
	assert.False(t, visited)
	assert.Equal(t, "test.Pipeline", ve.Recipe)
	assert.Contains(t, err.Error(), "test.Rename: option To failed \"required\"")
}

func TestRun_FailureIsolation(t *testing.T) {
	t.Parallel()
	recipe := &Composite{ID: "test.Pipeline", Recipes: []Recipe{
		&renameRecipe{From: "a", To: "x"},
		failOn("bad.txt"),
		&renameRecipe{From: "b", To: "y"},
	}}
	res, err := newTestEngine(t).Run(context.Background(), recipe, batch("good.txt", "bad.txt", "other.txt"))
	require.NoError(t, err)

	bad := resultFor(t, res, "bad.txt")
	require.NotNil(t, bad.Err)
	assert.Equal(t, "test.Fail", bad.Err.Recipe)
	assert.Equal(t, PhaseEdit, bad.Err.Phase)
	assert.Equal(t, "bad.txt", bad.Err.Path)
	assert.Equal(t, "refusing bad.txt", bad.Err.Message)
	assert.Equal(t, "recipe test.Fail failed during edit of bad.txt: refusing bad.txt", bad.Err.Error())
	assert.Equal(t, "x(b)", names(bad.After), "a failed file keeps the state from before the failing recipe")
	assert.Equal(t, []string{"test.Rename"}, bad.Recipes)

	for _, p := range []string{"good.txt", "other.txt"} {
		r := resultFor(t, res, p)
		assert.Nil(t, r.Err)
		assert.Equal(t, "x(y)", names(r.After))
		assert.Equal(t, []string{"test.Rename", "test.Rename"}, r.Recipes)
	}
	assert.Len(t, res.Failed(), 1)
}

func TestRun_RecoversPanics(t *testing.T) {
	t.Parallel()
	boom := &funcRecipe{name: "test.Panic", fn: func(_ *Cursor, t Tree) (Tree, error) {
		if t.(SourceFile).SourcePath() == "boom.txt" {
			panic("boom")
		}
		return Found(t, "ok"), nil
	}}
	res, err := newTestEngine(t).Run(context.Background(), boom, batch("boom.txt", "fine.txt"))
	require.NoError(t, err)

	r := resultFor(t, res, "boom.txt")
	require.NotNil(t, r.Err)
	assert.Contains(t, r.Err.Error(), "panic: boom")
	assert.Equal(t, "test.Panic", r.Err.Recipe)
	assert.True(t, resultFor(t, res, "fine.txt").Changed())
}

func TestRun_NoFileSucceeded(t *testing.T) {
	t.Parallel()
	res, err := newTestEngine(t).Run(context.Background(), failOn("only.txt"), batch("only.txt"))
	require.ErrorIs(t, err, ErrNoFileSucceeded)
	require.NotNil(t, res)
	require.Len(t, res.Failed(), 1)
}

func TestRun_DeleteAndReplaceRoot(t *testing.T) {
	t.Parallel()
	del := &funcRecipe{name: "test.Delete", fn: func(_ *Cursor, t Tree) (Tree, error) {
		if t.(SourceFile).SourcePath() == "gone.txt" {
			return nil, nil
		}
		return t, nil
	}}
	res, err := newTestEngine(t).Run(context.Background(), del, batch("gone.txt", "kept.txt"))
	require.NoError(t, err)
	gone := res.Results[0]
	assert.Nil(t, gone.After)
	assert.True(t, gone.Changed())
	assert.Equal(t, "gone.txt", gone.Path())
	assert.Len(t, res.Files(), 1)

	wrong := &funcRecipe{name: "test.Wrong", fn: func(_ *Cursor, t Tree) (Tree, error) {
		return node("not a file"), nil
	}}
	_, err = newTestEngine(t).Run(context.Background(), wrong, batch("a.txt"))
	assert.ErrorIs(t, err, ErrNoFileSucceeded)
}

func TestRun_Cycles(t *testing.T) {
	t.Parallel()
	files := []SourceFile{file("a.txt", node("n0"))}

	res, err := newTestEngine(t).Run(context.Background(), increment(3), files)
	require.NoError(t, err)
	assert.Equal(t, "n1", names(res.Results[0].After))
	assert.Equal(t, 1, res.Cycles)

	res, err = newTestEngine(t, WithCycles(10)).Run(context.Background(), increment(3), files)
	require.NoError(t, err)
	assert.Equal(t, "n3", names(res.Results[0].After))
	assert.Equal(t, 4, res.Cycles, "the last cycle changes nothing")
	assert.Equal(t, []string{"test.Increment", "test.Increment", "test.Increment"}, res.Results[0].Recipes)

	res, err = newTestEngine(t, WithCycles(2)).Run(context.Background(), increment(3), files)
	require.NoError(t, err)
	assert.Equal(t, "n2", names(res.Results[0].After))
	assert.Equal(t, 2, res.Cycles)
}

func TestRun_PreconditionAppliesToCompositeMembers(t *testing.T) {
	t.Parallel()
	recipe := WithPrecondition(&Composite{ID: "test.Pipeline", Recipes: []Recipe{
		&renameRecipe{From: "a", To: "x"},
		&renameRecipe{From: "b", To: "y"},
	}}, HasSourcePath("**/*.java"))

	res, err := newTestEngine(t).Run(context.Background(), recipe, batch("src/A.java", "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "x(y)", names(resultFor(t, res, "src/A.java").After))
	assert.False(t, resultFor(t, res, "README.md").Changed())
	assert.Empty(t, SearchResults(resultFor(t, res, "src/A.java").After))
}

func TestRun_Parallelism(t *testing.T) {
	t.Parallel()
	var running, peak atomic.Int32
	slow := &funcRecipe{name: "test.Slow", fn: func(_ *Cursor, t Tree) (Tree, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return t, nil
	}}
	paths := make([]string, 12)
	for i := range paths {
		paths[i] = fmt.Sprintf("f%d.txt", i)
	}
	_, err := newTestEngine(t, WithParallelism(3)).Run(context.Background(), slow, batch(paths...))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestEngine(t).Run(ctx, &renameRecipe{From: "a", To: "b"}, batch("a.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_Rows(t *testing.T) {
	t.Parallel()
	table := NewDataTable[string]("test.table.Paths", "Paths", "Visited paths.")
	record := &funcRecipe{name: "test.Record", fn: func(c *Cursor, t Tree) (Tree, error) {
		return t, table.InsertRow(c.ExecutionContext(), t.(SourceFile).SourcePath())
	}}

	res, err := newTestEngine(t).Run(context.Background(), record, batch("a.txt", "b.txt"))
	require.NoError(t, err)
	require.NotNil(t, res.Rows)
	assert.ElementsMatch(t, []any{"a.txt", "b.txt"}, res.Rows.Rows("test.table.Paths"))
	require.Len(t, res.Rows.Tables(), 1)
	assert.Equal(t, "Paths", res.Rows.Tables()[0].DisplayName)

	sink := NewMemorySink()
	res, err = newTestEngine(t, WithSink(sink)).Run(context.Background(), record, batch("c.txt"))
	require.NoError(t, err)
	assert.Nil(t, res.Rows)
	assert.Equal(t, []any{"c.txt"}, sink.Rows("test.table.Paths"))
}

func TestRecipeError_Format(t *testing.T) {
	t.Parallel()
	cause := errors.New("disk full")
	tests := []struct {
		err  *RecipeError
		want string
	}{
		{NewRecipeError("bad %d", 1), "bad 1"},
		{WrapRecipeError(cause, ""), "disk full"},
		{WrapRecipeError(cause, "write %s", "a"), "write a: disk full"},
		{&RecipeError{Recipe: "r", Phase: PhaseGenerate, Message: "m"}, "recipe r failed during generate: m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
	assert.ErrorIs(t, WrapRecipeError(cause, ""), cause)
}
