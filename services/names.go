package services

import "strings"

// DefaultMaxNameLength is Discord's limit on thread names, in characters.
const DefaultMaxNameLength = 100

// WithMarker prefixes name with marker unless it already starts with it, then
// truncates the result to limit characters.
func WithMarker(marker, name string, limit int) string {
	if !hasMarker(name, marker) {
		name = marker + name
	}
	return truncateRunes(name, limit)
}

func hasMarker(name, marker string) bool {
	return strings.HasPrefix(name, marker)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
