package store

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ContentHash returns the hash stored for a file's printed content. Empty
// content, used for files that do not exist on one side of a run, hashes to
// the empty string.
func ContentHash(content string) string {
	if content == "" {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}
