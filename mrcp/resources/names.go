package resources

import "strings"

func lowerASCII(s string) string { return strings.ToLower(s) }

// reverseNames builds a lower-cased name->id index from an id->name table,
// the same case-insensitive matching rule mrcp.Header/mrcp.Registry use
// elsewhere (spec.md §6 header-field names are compared case-insensitively).
func reverseNames(names map[int]string) map[string]int {
	out := make(map[string]int, len(names))
	for id, name := range names {
		out[lowerASCII(name)] = id
	}
	return out
}
