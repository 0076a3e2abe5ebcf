package runtime

import (
	"github.com/jward/rewrite"
)

// Precondition returns a precondition that holds when source, evaluated
// against the visited file, is truthy. label names the script in errors and
// in the SearchResult it leaves on the file.
func (r *Runtime) Precondition(label, source string) rewrite.Visitor {
	return rewrite.VisitorFunc(func(c *rewrite.Cursor, t rewrite.Tree) (rewrite.Tree, error) {
		ok, err := r.EvalBool(c.ExecutionContext().Context(), source, label, fileGlobals(t))
		if err != nil || !ok {
			return t, err
		}
		return rewrite.AddMarker(t, rewrite.NewSearchResult("script "+label)), nil
	})
}

// PreconditionScript loads a script with LoadScript and wraps it with
// Precondition.
func (r *Runtime) PreconditionScript(path string) (rewrite.Visitor, error) {
	src, err := r.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return r.Precondition(path, src), nil
}
