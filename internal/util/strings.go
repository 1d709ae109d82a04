// Package util provides shared utility functions used across the codebase.
package util

import (
	"strings"
	"unicode/utf8"
)

// SplitCSV splits a comma-separated string into a slice, trimming whitespace.
// Returns nil for empty strings.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// DisplayWidth returns the number of characters in s.
func DisplayWidth(s string) int {
	return utf8.RuneCountInString(s)
}

// PadRight right-pads s with spaces to width characters. Strings already at
// or beyond width are returned unchanged.
func PadRight(s string, width int) string {
	n := width - DisplayWidth(s)
	if n <= 0 {
		return s
	}
	return s + strings.Repeat(" ", n)
}
