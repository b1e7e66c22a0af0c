// Package textstats computes the unit counts and language reported alongside extracted text.
package textstats

import (
	"strings"
	"unicode/utf8"
)

// Counts are the unit totals for a piece of text.
type Counts struct {
	Words      int `json:"words"`
	Lines      int `json:"lines"`
	Characters int `json:"characters"`
}

// WordCount counts whitespace-delimited non-empty tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// LineCount counts lines holding at least one non-space character.
func LineCount(s string) int {
	n := 0
	for _, ln := range strings.Split(s, "\n") {
		if strings.TrimSpace(ln) != "" {
			n++
		}
	}
	return n
}

// CharCount counts characters (runes), not bytes.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// Count returns all three totals for s.
func Count(s string) Counts {
	return Counts{
		Words:      WordCount(s),
		Lines:      LineCount(s),
		Characters: CharCount(s),
	}
}
