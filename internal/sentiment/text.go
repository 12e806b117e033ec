package sentiment

import (
	"strings"
	"unicode/utf8"
)

// SourceDelimiter separates an item's display text from its trailing source URL.
const SourceDelimiter = " - "

// ExtractText returns the part of item left of the first SourceDelimiter, or
// item unchanged when it has none. Later delimiters belong to the discarded
// remainder, so "a - url - b" yields "a".
func ExtractText(item string) string {
	text, _, _ := strings.Cut(item, SourceDelimiter)
	return text
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// PrepareText is ExtractText followed by Truncate.
func PrepareText(item string, maxChars int) string {
	return Truncate(ExtractText(item), maxChars)
}
