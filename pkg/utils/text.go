// Package utils provides shared utilities for text, math, and logging.
package utils

// Truncate returns s cut to at most maxLen runes, with "..." appended when it
// was cut. Review text is user content, so the cut must land on a rune
// boundary. If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
