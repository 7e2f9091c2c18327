package git

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// Common ChangeFilter functions for filtering diffs

// PathPrefixFilter creates a filter that includes changes with paths starting with the given prefix.
// This is useful for filtering by directory.
func PathPrefixFilter(prefix string) ChangeFilter {
	return func(change *object.Change) bool {
		// Check both From and To names to handle renames
		return strings.HasPrefix(change.From.Name, prefix) ||
			strings.HasPrefix(change.To.Name, prefix)
	}
}

// ExcludePathPrefixFilter creates a filter that drops changes under prefix.
// A rename is dropped only when both of its paths are under prefix.
func ExcludePathPrefixFilter(prefix string) ChangeFilter {
	return func(change *object.Change) bool {
		from := change.From.Name == "" || strings.HasPrefix(change.From.Name, prefix)
		to := change.To.Name == "" || strings.HasPrefix(change.To.Name, prefix)
		return !(from && to)
	}
}

// ExtensionFilter creates a filter that includes changes for files with the given extensions.
// Extensions should include the dot (e.g., ".go", ".ts").
func ExtensionFilter(extensions ...string) ChangeFilter {
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}

	return func(change *object.Change) bool {
		for _, name := range []string{change.From.Name, change.To.Name} {
			if name != "" && extSet[strings.ToLower(filepath.Ext(name))] {
				return true
			}
		}
		return false
	}
}

// AndFilter combines multiple filters with AND logic - all must pass.
func AndFilter(filters ...ChangeFilter) ChangeFilter {
	return func(change *object.Change) bool {
		return shouldIncludeChange(change, filters)
	}
}

// OrFilter combines multiple filters with OR logic - at least one must pass.
func OrFilter(filters ...ChangeFilter) ChangeFilter {
	return func(change *object.Change) bool {
		for _, filter := range filters {
			if filter != nil && filter(change) {
				return true
			}
		}
		return false
	}
}

// NotFilter creates a filter that inverts the result of another filter.
func NotFilter(filter ChangeFilter) ChangeFilter {
	return func(change *object.Change) bool {
		return filter == nil || !filter(change)
	}
}
