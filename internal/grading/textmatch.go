package grading

import "strings"

// normalize does simple casefolding and trims surrounding whitespace.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// textMatches reports whether a submitted short answer matches the key:
// exact match after normalization, or containment in either direction.
// Empty strings never match anything.
func textMatches(key, submitted string) bool {
	nk := normalize(key)
	ns := normalize(submitted)
	if nk == "" || ns == "" {
		return false
	}
	if nk == ns {
		return true
	}
	return strings.Contains(nk, ns) || strings.Contains(ns, nk)
}
