package store

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/rewrite"
	"github.com/jward/rewrite/cst"
)

func parseFile(t *testing.T, path, src string) rewrite.SourceFile {
	t.Helper()
	f, err := cst.NewParser().Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	return f
}

func TestBatchedStore_FakeIDs(t *testing.T) {
	t.Parallel()
	batch := NewBatchedStore(newTestStore(t))

	id1, err := batch.InsertSourceResult(&SourceResult{Path: "a", Status: StatusChanged})
	require.NoError(t, err)
	assert.Negative(t, id1, "batched IDs should be negative")

	id2, err := batch.InsertDataTableRow(&DataTableRow{TableName: "t", RowJSON: "{}"})
	require.NoError(t, err)
	assert.Negative(t, id2)
	assert.NotEqual(t, id1, id2)
}

func TestBatchedStore_InsertRowEncodesJSON(t *testing.T) {
	t.Parallel()
	batch := NewBatchedStore(newTestStore(t))

	row := rewrite.CollidingSourceFile{SourcePath: "src/A.java", SourceFileType: "*cst.File"}
	require.NoError(t, batch.InsertRow(rewrite.CollidingSourceFiles.DataTableDescriptor, row))
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, rewrite.CollidingSourceFiles.Name, batch.Rows[0].TableName)
	assert.JSONEq(t, `{"sourcePath":"src/A.java","sourceFileType":"*cst.File"}`, batch.Rows[0].RowJSON)

	err := batch.InsertRow(rewrite.DataTableDescriptor{Name: "bad"}, make(chan int))
	assert.Error(t, err)
}

func TestBatchedStore_CommitRequiresRun(t *testing.T) {
	t.Parallel()
	batch := NewBatchedStore(newTestStore(t))
	assert.Error(t, batch.Commit())
}

// TestBatchedStore_RecordsEngineRun runs a real recipe with the batch as the
// run's sink and commits it.
func TestBatchedStore_RecordsEngineRun(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := NewBatchedStore(s)

	l := logrus.New()
	l.SetOutput(io.Discard)
	engine := rewrite.New(rewrite.WithLogger(l), rewrite.WithSink(batch))

	recipe, ok := rewrite.Lookup("rewrite.FindCollidingSourceFiles")
	require.True(t, ok)
	files := []rewrite.SourceFile{
		parseFile(t, "src/A.java", "class A {}\n"),
		parseFile(t, "src/A.java", "class A { int x; }\n"),
		parseFile(t, "src/B.java", "class B {}\n"),
	}

	started := time.Now().UTC()
	res, err := engine.Run(context.Background(), recipe, files)
	require.NoError(t, err)
	require.Nil(t, res.Rows, "rows go to the configured sink")

	require.NoError(t, batch.InsertRun(&Run{
		ID:         res.ID,
		Recipe:     recipe.Name(),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Cycles:     res.Cycles,
	}))
	require.NoError(t, batch.RecordResults(res, func(f rewrite.SourceFile) string { return cst.Print(f) }))
	require.NoError(t, batch.Commit())

	results, err := s.SourceResults(res.ID)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Positive(t, r.ID, "committed IDs are real")
		assert.Equal(t, res.ID, r.RunID)
	}
	assert.Equal(t, StatusChanged, results[0].Status)
	assert.Equal(t, StatusChanged, results[1].Status)
	assert.Equal(t, StatusUnchanged, results[2].Status)
	assert.Equal(t, []string{"rewrite.FindCollidingSourceFiles"}, results[0].Recipes)
	assert.Equal(t, ContentHash("class A {}\n"), results[0].BeforeHash)
	assert.Equal(t, results[0].BeforeHash, results[0].AfterHash, "markers do not change printed content")
	assert.NotEqual(t, results[0].BeforeHash, results[1].BeforeHash)

	rows, err := s.DataTableRows(res.ID, rewrite.CollidingSourceFiles.Name)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.JSONEq(t, `{"sourcePath":"src/A.java","sourceFileType":"*cst.File"}`, rows[0].RowJSON)

	runs, err := s.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Changed)
}

func TestStatusOf(t *testing.T) {
	t.Parallel()
	a := parseFile(t, "A.java", "class A {}\n")
	b := a.WithSourcePath("B.java")

	tests := []struct {
		name string
		in   rewrite.Result
		want Status
	}{
		{"unchanged", rewrite.Result{Before: a, After: a}, StatusUnchanged},
		{"changed", rewrite.Result{Before: a, After: b}, StatusChanged},
		{"generated", rewrite.Result{After: b}, StatusGenerated},
		{"deleted", rewrite.Result{Before: a}, StatusDeleted},
		{"failed", rewrite.Result{Before: a, After: a, Err: rewrite.NewRecipeError("x")}, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusOf(tt.in))
		})
	}
}
