package dispatch

import "strings"

// Matcher decides whether a changed path falls under a watched path.
type Matcher interface {
	Match(path, watched string) bool
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(path, watched string) bool

// Match calls f(path, watched).
func (f MatcherFunc) Match(path, watched string) bool {
	return f(path, watched)
}

// SubstringMatcher matches when path contains watched anywhere. It is the
// default and can match unrelated paths that merely contain the watched
// string, e.g. "vendor/packages/backend-legacy/x" for "packages/backend".
type SubstringMatcher struct{}

// Match implements Matcher.
func (SubstringMatcher) Match(path, watched string) bool {
	if path == "" || watched == "" {
		return false
	}
	return strings.Contains(path, watched)
}

// SegmentMatcher matches when watched occurs in path as a whole run of path
// segments: "packages/backend" matches "packages/backend/api.ts" and
// "apps/packages/backend/x" but not "packages/backend-legacy/x".
type SegmentMatcher struct{}

// Match implements Matcher.
func (SegmentMatcher) Match(path, watched string) bool {
	watched = strings.Trim(watched, "/")
	if path == "" || watched == "" {
		return false
	}
	for i := 0; i+len(watched) <= len(path); {
		j := strings.Index(path[i:], watched)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(watched)
		if (start == 0 || path[start-1] == '/') && (end == len(path) || path[end] == '/') {
			return true
		}
		i = start + 1
	}
	return false
}
