package rewrite

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrNoFileSucceeded is returned by a run in which every input file failed.
var ErrNoFileSucceeded = errors.New("rewrite: no source file was processed successfully")

// Phase names the part of a recipe run an error happened in.
type Phase string

const (
	PhaseScan     Phase = "scan"
	PhaseGenerate Phase = "generate"
	PhaseEdit     Phase = "edit"
)

// RecipeError is a failure raised by, or recovered from, a recipe. The engine
// fills in Recipe, Path and Phase when it records the error against a file.
type RecipeError struct {
	Recipe  string
	Path    string
	Phase   Phase
	Message string
	Cause   error
}

// NewRecipeError returns a RecipeError with a formatted message.
func NewRecipeError(format string, args ...any) *RecipeError {
	return &RecipeError{Message: fmt.Sprintf(format, args...)}
}

// WrapRecipeError returns a RecipeError caused by cause. The message is
// optional.
func WrapRecipeError(cause error, format string, args ...any) *RecipeError {
	e := &RecipeError{Cause: cause}
	if format != "" {
		e.Message = fmt.Sprintf(format, args...)
	}
	return e
}

func (e *RecipeError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	} else if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	switch {
	case e.Recipe != "" && e.Path != "":
		return fmt.Sprintf("recipe %s failed during %s of %s: %s", e.Recipe, e.Phase, e.Path, msg)
	case e.Recipe != "":
		return fmt.Sprintf("recipe %s failed during %s: %s", e.Recipe, e.Phase, msg)
	default:
		return msg
	}
}

func (e *RecipeError) Unwrap() error { return e.Cause }

// asRecipeError attributes err to a recipe, phase and file. An existing
// RecipeError in err's chain is copied rather than wrapped again.
func asRecipeError(err error, recipe string, phase Phase, path string) *RecipeError {
	var re *RecipeError
	if errors.As(err, &re) {
		out := *re
		if out.Recipe == "" {
			out.Recipe = recipe
		}
		if out.Phase == "" {
			out.Phase = phase
		}
		if out.Path == "" {
			out.Path = path
		}
		return &out
	}
	return &RecipeError{Recipe: recipe, Phase: phase, Path: path, Cause: err}
}

// recovered turns a recovered panic value into an error carrying the stack of
// the recovery point.
func recovered(v any) error {
	if err, ok := v.(error); ok {
		return pkgerrors.WithStack(err)
	}
	return pkgerrors.Errorf("panic: %v", v)
}
