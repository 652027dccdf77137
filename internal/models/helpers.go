package models

import "strings"

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// NormalizeText trims surrounding whitespace from task text.
// Returns the trimmed value and whether anything is left.
func NormalizeText(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
