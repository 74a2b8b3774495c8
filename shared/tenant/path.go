package tenant

import "strings"

// ExtractFromPath returns the tenant identifier carried by the first segment
// of a request path. Query strings and fragments are ignored. A missing or
// malformed segment yields ("", false); callers treat that as the unscoped
// deployment rather than an error.
func ExtractFromPath(path string) (string, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	segments := strings.Split(path, "/")
	if len(segments) > 0 && segments[0] == "" {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return "", false
	}

	candidate := segments[0]
	if candidate == "" || !IsValidSlug(candidate) {
		return "", false
	}
	return candidate, true
}
