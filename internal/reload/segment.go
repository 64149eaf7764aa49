package reload

import (
	"iter"
	"regexp"
	"strings"
)

// A section starts at a line beginning with a word character and runs up to the
// first "go" line followed by a blank line.
var sectionPattern = regexp.MustCompile(`(?ms)^\w.*?^go\n\n`)

// Sections yields the statement blocks of a newline-normalized script in order.
// Text between blocks is dropped. The sequence can be ranged over repeatedly.
func Sections(script string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := script
		for {
			loc := sectionPattern.FindStringIndex(rest)
			if loc == nil {
				return
			}
			if !yield(rest[loc[0]:loc[1]]) {
				return
			}
			rest = rest[loc[1]:]
		}
	}
}

// NormalizeNewlines turns CRLF line endings into LF. A lone CR is kept.
func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
