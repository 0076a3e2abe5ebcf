// Package rewrite is a source-to-source transformation engine. Recipes
// inspect and rewrite lossless, immutable trees; everything a recipe does
// not touch prints back exactly as it was parsed.
//
// # Trees and visitors
//
// A [Tree] is an immutable node. Visitors return the tree they were given
// when nothing changed, so an untouched subtree is shared between the input
// and the output of a run. Traversal is caller driven: a [Visitor] descends
// by calling [VisitChildren], and a [Cursor] carries the path from the root
// together with per-level messages.
//
// Metadata that does not change code, such as "a recipe found something
// here", is attached as [Markers]. [Found] adds a [SearchResult] at most once
// per description, so search recipes converge.
//
// # Recipes
//
// A [Recipe] hands out a fresh [Visitor] per file. Recipes that need to see
// the whole batch first implement [ScanningRecipe] and are wrapped with
// [Scanning]:
//
//  1. scan: the scanner visits every file and records facts in the
//     accumulator.
//  2. generate: new files are produced from the accumulator.
//  3. edit: the edit visitor runs over every file, generated ones included.
//
// Preconditions are visitors too. [Check] and [WithPrecondition] gate an edit
// visitor behind one, and [And], [Or] and [Not] combine them.
//
// # Running
//
// Create an [Engine] and run a recipe over parsed files:
//
//	e := rewrite.New(rewrite.WithParallelism(8))
//	res, err := e.Run(ctx, recipe, files)
//	if err != nil { ... }
//	for _, r := range res.Changed() { ... }
//
// A recipe failing on one file marks that file's [Result] as failed and the
// batch continues. Rows recipes emit through a [DataTable] go to the engine's
// [RowSink].
//
// Concrete trees come from the cst package (tree-sitter) and build-file
// recipes from the gradle package.
package rewrite
