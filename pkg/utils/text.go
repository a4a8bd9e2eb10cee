// Package utils provides shared utilities for text, math, and logging.
package utils

import "unicode/utf8"

// Truncate returns the first maxLen characters of s, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	head := Prefix(s, maxLen)
	if len(head) == len(s) {
		return s
	}
	return head + "..."
}

// Prefix returns at most the first n characters (runes) of s.
// If n is 0 or negative, returns s unchanged.
func Prefix(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
