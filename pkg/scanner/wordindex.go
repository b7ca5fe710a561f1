package scanner

import (
	"sort"
	"unicode"
)

// WordIndexer translates byte offsets in a text to word ordinals, so
// proximity between mentions can be measured in words rather than
// characters. It is pure and reusable across many queries on one text.
type WordIndexer struct {
	// starts holds the byte offset of the first byte of each word, in
	// ascending order. A word is a maximal run of non-whitespace.
	starts []int
}

// NewWordIndexer precomputes word start offsets for text.
func NewWordIndexer(text string) *WordIndexer {
	var starts []int
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
		} else if !inWord {
			starts = append(starts, i)
			inWord = true
		}
	}
	return &WordIndexer{starts: starts}
}

// WordCount returns the number of words in the indexed text.
func (w *WordIndexer) WordCount() int {
	return len(w.starts)
}

// WordIndex returns the 0-based index of the word containing offset, or of
// the word immediately preceding it when offset falls in whitespace.
func (w *WordIndexer) WordIndex(offset int) int {
	// First start strictly greater than offset; the word containing (or
	// preceding) the offset is the one before it.
	i := sort.Search(len(w.starts), func(i int) bool {
		return w.starts[i] > offset
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// IndexMentions fills WordIndex on each mention from its byte offset.
func (w *WordIndexer) IndexMentions(mentions []Mention) {
	for i := range mentions {
		mentions[i].WordIndex = w.WordIndex(mentions[i].Offset)
	}
}
