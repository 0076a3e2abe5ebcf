package rewrite

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// fileState tracks one file through a run. Workers only ever touch the state
// of the file they were handed.
type fileState struct {
	before  SourceFile
	current SourceFile // nil once deleted
	err     *RecipeError
	recipes []string
}

func (st *fileState) live() bool {
	return st.current != nil && st.err == nil
}

// runRecipe applies one leaf recipe to the batch:
//
//	Phase A (parallel): scan every live file, scanning recipes only.
//	Phase B (serial):   generate, after the last scan has finished.
//	Phase C (parallel): edit every live file, generated ones included.
//
// It returns the batch with generated files appended and whether any file
// changed.
func (e *Engine) runRecipe(ctx context.Context, ec *ExecutionContext, r Recipe, states []*fileState, res *RunResult) ([]*fileState, bool, error) {
	name := r.Name()
	log := ec.Logger().WithField("recipe", name)
	changed := false

	if s, ok := scanningOf(r); ok {
		s.begin(ec)
		defer s.end(ec)

		// ---- Phase A: scan ----
		log.WithField("phase", PhaseScan).Debug("phase started")
		err := e.forEach(ctx, states, func(st *fileState) {
			if _, err := visitFile(s.scanner(), st.current, ec); err != nil {
				e.fail(log, st, asRecipeError(err, name, PhaseScan, st.current.SourcePath()))
			}
		})
		if err != nil {
			return states, false, err
		}

		// ---- Phase B: generate ----
		log.WithField("phase", PhaseGenerate).Debug("phase started")
		generated, err := generateFiles(s, ec)
		if err != nil {
			re := asRecipeError(err, name, PhaseGenerate, "")
			log.WithField("phase", PhaseGenerate).WithError(re).Warn("generate failed")
			res.RecipeErrors = append(res.RecipeErrors, re)
		}
		for _, f := range generated {
			states = append(states, &fileState{current: f, recipes: []string{name}})
			changed = true
		}
	}

	// ---- Phase C: edit ----
	log.WithField("phase", PhaseEdit).Debug("phase started")
	edited := make([]bool, len(states))
	index := make(map[*fileState]int, len(states))
	for i, st := range states {
		index[st] = i
	}
	err := e.forEach(ctx, states, func(st *fileState) {
		out, err := visitFile(r.Visitor(), st.current, ec)
		if err != nil {
			e.fail(log, st, asRecipeError(err, name, PhaseEdit, st.current.SourcePath()))
			return
		}
		if out == st.current {
			return
		}
		st.current = out
		st.recipes = append(st.recipes, name)
		edited[index[st]] = true
	})
	if err != nil {
		return states, false, err
	}
	for _, ok := range edited {
		changed = changed || ok
	}
	return states, changed, nil
}

// forEach calls fn for every live file, at most e.parallelism at a time, and
// waits for all of them. It only fails when ctx is done.
func (e *Engine) forEach(ctx context.Context, states []*fileState, fn func(st *fileState)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for _, st := range states {
		if !st.live() {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// visitFile runs v over f, turning a panic into an error. A nil result means
// the file was deleted.
func visitFile(v Visitor, f SourceFile, ec *ExecutionContext) (out SourceFile, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, recovered(p)
		}
	}()
	t, err := Visit(v, f, ec)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	sf, ok := t.(SourceFile)
	if !ok {
		return nil, fmt.Errorf("visitor replaced source file %s with %T", f.SourcePath(), t)
	}
	return sf, nil
}

func generateFiles(s scanPhases, ec *ExecutionContext) (files []SourceFile, err error) {
	defer func() {
		if p := recover(); p != nil {
			files, err = nil, recovered(p)
		}
	}()
	return s.generate(ec)
}

func (e *Engine) fail(log *logrus.Entry, st *fileState, re *RecipeError) {
	st.err = re
	log.WithFields(logrus.Fields{
		"path":  re.Path,
		"phase": re.Phase,
	}).WithError(re).Warn("recipe failed on file")
}
