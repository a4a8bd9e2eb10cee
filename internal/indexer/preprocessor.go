package indexer

import (
	"regexp"
	"strings"
)

var (
	blankLines  = regexp.MustCompile(`\n{3,}`)
	inlineSpace = regexp.MustCompile(`[ \t]{2,}`)
)

// CleanContent normalizes line endings to \n, reduces three or more newlines to one blank
// line, collapses runs of spaces and tabs to a single space, and trims. CleanContent(CleanContent(s))
// equals CleanContent(s).
func CleanContent(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = inlineSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
