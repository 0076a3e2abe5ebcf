package rewrite

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine runs recipes over batches of source files.
type Engine struct {
	parallelism int
	logger      *logrus.Logger
	sink        RowSink
	cycles      int
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallelism sets how many files are visited concurrently. Values below
// one mean one. The default is runtime.NumCPU().
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = max(n, 1)
	}
}

// WithLogger sets the logger the engine reports progress and per-file
// failures to.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithSink routes data-table rows of every run to sink. Without it each run
// collects rows in its own MemorySink, returned in RunResult.Rows.
func WithSink(sink RowSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithCycles lets a run repeat the recipe over its own output while files
// keep changing, at most n times in total.
func WithCycles(n int) Option {
	return func(e *Engine) {
		e.cycles = max(n, 1)
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		parallelism: runtime.NumCPU(),
		logger:      logrus.StandardLogger(),
		cycles:      1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of a run for one source file.
type Result struct {
	// Before is the file as given to the run, nil for generated files.
	Before SourceFile
	// After is the file as left by the run, nil when a recipe deleted it.
	// A failed file keeps the state it had before the failing recipe.
	After SourceFile
	// Err is set when a recipe failed on this file. Later recipes skip it.
	Err *RecipeError
	// Recipes lists, in order, the recipes that changed or generated the file.
	Recipes []string
}

// Changed reports whether the run changed, generated or deleted the file.
func (r Result) Changed() bool {
	return r.Before != r.After
}

// Path returns the file's path after the run, or before it when deleted.
func (r Result) Path() string {
	if r.After != nil {
		return r.After.SourcePath()
	}
	if r.Before != nil {
		return r.Before.SourcePath()
	}
	return ""
}

// RunResult is the outcome of Engine.Run.
type RunResult struct {
	ID string
	// Results holds the input files in their original order followed by
	// generated files in the order they were generated.
	Results []Result
	// RecipeErrors holds failures not tied to one file, such as a failed
	// generate phase.
	RecipeErrors []*RecipeError
	// Cycles is the number of passes the run made over the recipe.
	Cycles int
	// Rows is the run's data-table sink when the engine has none configured.
	Rows *MemorySink
}

// Changed returns the results whose file was changed, generated or deleted.
func (r *RunResult) Changed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Changed() {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the results of files a recipe failed on.
func (r *RunResult) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Files returns every file that survived the run, in result order.
func (r *RunResult) Files() []SourceFile {
	out := make([]SourceFile, 0, len(r.Results))
	for _, res := range r.Results {
		if res.After != nil {
			out = append(out, res.After)
		}
	}
	return out
}

// Run applies recipe to files and returns one Result per file.
//
// Options are validated before anything is visited. A recipe failing on one
// file is recorded on that file's Result and the batch continues, so Run only
// returns an error when validation fails, ctx is cancelled, or every input
// file failed (ErrNoFileSucceeded, returned together with the result).
func (e *Engine) Run(ctx context.Context, recipe Recipe, files []SourceFile) (*RunResult, error) {
	if err := Validate(recipe); err != nil {
		return nil, err
	}

	res := &RunResult{ID: uuid.NewString()}
	sink := e.sink
	if sink == nil {
		res.Rows = NewMemorySink()
		sink = res.Rows
	}
	log := e.logger.WithFields(logrus.Fields{"run": res.ID, "recipe": recipe.Name()})
	ec := NewExecutionContext(ctx, WithRowSink(sink), WithContextLogger(log))

	states := make([]*fileState, len(files))
	for i, f := range files {
		states[i] = &fileState{before: f, current: f}
	}

	leaves := flatten(recipe)
	log.WithField("files", len(files)).Debugf("run started with %d recipe(s)", len(leaves))

	for res.Cycles < e.cycles {
		res.Cycles++
		changed := false
		for _, leaf := range leaves {
			var (
				leafChanged bool
				err         error
			)
			states, leafChanged, err = e.runRecipe(ctx, ec, leaf, states, res)
			if err != nil {
				return nil, fmt.Errorf("rewrite: run %s: %w", recipe.Name(), err)
			}
			changed = changed || leafChanged
		}
		if !changed {
			break
		}
	}

	succeeded := 0
	res.Results = make([]Result, len(states))
	for i, st := range states {
		res.Results[i] = Result{Before: st.before, After: st.current, Err: st.err, Recipes: st.recipes}
		if i < len(files) && st.err == nil {
			succeeded++
		}
	}
	log.WithFields(logrus.Fields{
		"changed": len(res.Changed()),
		"failed":  len(res.Failed()),
		"cycles":  res.Cycles,
	}).Debug("run finished")

	if len(files) > 0 && succeeded == 0 {
		return res, ErrNoFileSucceeded
	}
	return res, nil
}

// flatten expands composites into the leaf recipes they run, in order,
// pushing preconditions down onto every member.
func flatten(r Recipe) []Recipe {
	switch t := r.(type) {
	case *gated:
		inner := flatten(t.inner)
		if len(inner) == 1 && inner[0] == t.inner {
			return []Recipe{r}
		}
		out := make([]Recipe, len(inner))
		for i, sub := range inner {
			out[i] = &gated{inner: sub, pre: t.pre}
		}
		return out
	case RecipeList:
		var out []Recipe
		for _, sub := range t.RecipeList() {
			out = append(out, flatten(sub)...)
		}
		return out
	}
	return []Recipe{r}
}
