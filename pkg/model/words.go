package model

import (
	"regexp"
	"strings"
)

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// CountWords counts whitespace-separated words, treating markup tags as
// separators so rich-text chapters count the same as their plain text.
func CountWords(content string) int {
	plain := htmlTagRe.ReplaceAllString(content, " ")
	return len(strings.Fields(plain))
}
