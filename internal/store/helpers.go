package store

import (
	"encoding/json"
)

// marshalRecipes converts []string to JSON text for storage.
func marshalRecipes(names []string) string {
	if len(names) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(names)
	return string(b)
}

// unmarshalRecipes converts JSON text back to []string.
func unmarshalRecipes(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var names []string
	_ = json.Unmarshal([]byte(s), &names)
	return names
}
