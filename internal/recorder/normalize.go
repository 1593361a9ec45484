package recorder

import (
	"regexp"
	"strings"
)

var (
	numericSegment = regexp.MustCompile(`^\d+$`)
	uuidSegment    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	hexSegment     = regexp.MustCompile(`^[0-9a-fA-F]{24,}$`)
)

// NormalizeEndpoint replaces variable path segments (numeric ids, UUIDs,
// long hex ids, router placeholders) with ":id" so metrics for /users/42 and
// /users/9f1c... group under the same key.
func NormalizeEndpoint(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "{") ||
			numericSegment.MatchString(seg) ||
			uuidSegment.MatchString(seg) ||
			hexSegment.MatchString(seg) {
			segments[i] = ":id"
		}
	}
	normalized := strings.Join(segments, "/")
	if len(normalized) > 1 {
		normalized = strings.TrimRight(normalized, "/")
	}
	if normalized == "" {
		return "/"
	}
	return normalized
}
