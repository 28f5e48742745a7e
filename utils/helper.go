package utils

import "strings"

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// TruncateStrings returns at most n leading elements of list. Anomaly reports
// cap their affected-asset samples for display.
func TruncateStrings(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[:n]
}

// Underscored trims s and replaces spaces with underscores, the normalization
// applied to classifier values before they enter a tag.
func Underscored(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}
