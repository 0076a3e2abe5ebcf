// Package scripts embeds the built-in Risor precondition scripts.
//
// Scripts under preconditions/ are referenced from rewrite.yml with
// `builtin: <name>`. Modules at the root, such as gradle.risor, can be
// imported by any of them.
package scripts

import "embed"

//go:embed *.risor preconditions/*.risor
var FS embed.FS

// Precondition returns the path within FS of the built-in precondition
// called name.
func Precondition(name string) string {
	return "preconditions/" + name + ".risor"
}
