package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxStringLength is the default cap used by TruncateString.
const DefaultMaxStringLength = 500

// TruncateString shortens s to at most maxLen runes, appending a suffix that
// records the original length. A non-positive maxLen uses DefaultMaxStringLength.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	total := utf8.RuneCountInString(s)
	if total <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", TruncateRunes(s, maxLen, ""), total)
}

// TruncateRunes returns the first n runes of s followed by suffix, or s
// unchanged when it is not longer than n runes.
func TruncateRunes(s string, n int, suffix string) string {
	if n < 0 {
		n = 0
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + suffix
		}
		count++
	}
	return s
}

// CollapseWhitespace trims s and replaces every run of whitespace with a
// single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
