package wire

import "github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"

// ResolveIdentity derives the stable entity key for a tag payload. Different
// endpoints historically returned different subsets of identifying fields, so
// resolution walks a fixed fallback chain: the server-assigned primary id,
// then its alias, then the human-scannable code. Returns "" when none exist.
func ResolveIdentity(payload map[string]any) string {
	for _, key := range []string{"id", "_id", "code"} {
		if v := str(payload[key]); v != "" {
			return v
		}
	}
	return ""
}

// SameTag reports whether two canonical tags refer to the same physical tag.
// A match on either resolved identity or raw code counts: a freshly created
// tag can arrive with a different id shape than a previously cached
// placeholder for the same physical code.
func SameTag(a, b models.Tag) bool {
	if a.Identity != "" && a.Identity == b.Identity {
		return true
	}
	return a.Code != "" && a.Code == b.Code
}
