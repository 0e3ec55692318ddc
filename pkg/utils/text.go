// Package utils provides shared utilities for text and logging.
package utils

// Truncate shortens s to at most maxRunes characters and appends "..." when it cut
// anything. It never splits a multi-byte character. maxRunes <= 0 returns s as-is.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || len(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
