package domain

import "sort"

// DiffConfig controls how unexpected keys in actual bodies are treated.
// Requests are compared strictly (the provider should not receive keys the
// consumer never declared); responses allow extra keys.
type DiffConfig int

const (
	AllowUnexpectedKeys DiffConfig = iota
	NoUnexpectedKeys
)

func (c DiffConfig) String() string {
	if c == NoUnexpectedKeys {
		return "NoUnexpectedKeys"
	}
	return "AllowUnexpectedKeys"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
