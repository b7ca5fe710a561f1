// Package scanner finds character mentions in chapter text. A single
// automaton covers every name, alias and tag form in the roster, so each
// chapter is scanned in one pass regardless of cast size.
package scanner

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/inkforge/castmap/pkg/logging"
	"github.com/inkforge/castmap/pkg/model"
)

// maxNameLen caps pattern length so a pathological roster entry cannot
// blow up the automaton.
const maxNameLen = 256

// ErrEmptyRoster is returned when a scanner is requested for a project
// with no characters.
var ErrEmptyRoster = errors.New("no characters to analyze")

// Mention is one occurrence of a character in a chapter.
type Mention struct {
	// Offset is the byte offset of the match within the chapter text.
	Offset int
	// WordIndex is the 0-based index of the word containing the match,
	// filled in after scanning by a WordIndexer.
	WordIndex int
	// CharacterID identifies the roster entry that matched.
	CharacterID uuid.UUID
}

// CharacterScanner is an immutable compiled matcher for one roster
// snapshot. It is safe for concurrent use; rebuild it when the roster
// changes (see Signature).
type CharacterScanner struct {
	ac          ahocorasick.AhoCorasick
	patternChar []int  // pattern index -> roster index
	boundary    []bool // pattern index -> requires word boundaries
	ids         []uuid.UUID
}

// NewCharacterScanner compiles the roster into a scanner. Pattern variants
// per character: the lowercased name and each alias (word-boundary
// checked), an "@name" tag form, and the data-id attribute forms embedded
// by structured mention markup.
func NewCharacterScanner(characters []model.Character) (*CharacterScanner, error) {
	var patterns []string
	var patternChar []int
	var boundary []bool
	ids := make([]uuid.UUID, 0, len(characters))

	add := func(pat string, charIdx int, needsBoundary bool) {
		patterns = append(patterns, pat)
		patternChar = append(patternChar, charIdx)
		boundary = append(boundary, needsBoundary)
	}

	for i, c := range characters {
		name := c.Name
		if len(name) > maxNameLen {
			name = truncateName(name)
			logging.Warn("character name too long, truncating for analysis",
				"name", name, "length", len(c.Name))
		}
		name = strings.ToLower(name)

		if name != "" {
			add(name, i, true)
			// The leading @ already separates the tag from surrounding
			// prose, so no right-boundary check is needed.
			add("@"+name, i, false)
		}

		for _, alias := range c.Aliases {
			if alias == "" {
				continue
			}
			if len(alias) > maxNameLen {
				alias = truncateName(alias)
			}
			add(strings.ToLower(alias), i, true)
		}

		// Exact machine-reference forms for structured mention markup.
		add(fmt.Sprintf("data-id=%q", c.ID), i, false)
		add(fmt.Sprintf("data-id='%s'", c.ID), i, false)

		ids = append(ids, c.ID)
	}

	if len(patterns) == 0 {
		return nil, ErrEmptyRoster
	}

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		// Prefer "Christopher" over "Chris" when both match.
		MatchKind: ahocorasick.LeftMostLongestMatch,
		DFA:       true,
	})
	ac := builder.Build(patterns)

	return &CharacterScanner{
		ac:          ac,
		patternChar: patternChar,
		boundary:    boundary,
		ids:         ids,
	}, nil
}

// Scan returns all mentions in text, ordered by ascending offset. Matches
// are non-overlapping; boundary-sensitive patterns are rejected when the
// neighboring character is alphanumeric or an underscore.
func (s *CharacterScanner) Scan(text string) []Mention {
	var mentions []Mention
	for _, m := range s.ac.FindAll(text) {
		pat := m.Pattern()
		if s.boundary[pat] && !isWordBoundary(text, m.Start(), m.End()) {
			continue
		}
		mentions = append(mentions, Mention{
			Offset:      m.Start(),
			CharacterID: s.ids[s.patternChar[pat]],
		})
	}
	return mentions
}

// isWordBoundary reports whether a match at [start, end) is delimited like
// a regex \b on both sides.
func isWordBoundary(text string, start, end int) bool {
	if start > 0 {
		if prev, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(prev) {
			return false
		}
	}
	if end < len(text) {
		if next, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// truncateName cuts a name to at most maxNameLen bytes without splitting
// a multi-byte rune.
func truncateName(name string) string {
	cut := maxNameLen
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

// Signature returns a deterministic fingerprint over the roster's ids,
// names and aliases in roster order. Fields are NUL-delimited so moving
// bytes between adjacent fields changes the signature. Two rosters with
// the same signature compile to the same scanner, so a cached scanner
// is valid as long as the signature matches.
func Signature(characters []model.Character) uint64 {
	h := sha256.New()
	sep := []byte{0}
	for _, c := range characters {
		h.Write([]byte(c.ID.String()))
		h.Write(sep)
		h.Write([]byte(c.Name))
		h.Write(sep)
		for _, alias := range c.Aliases {
			h.Write([]byte(alias))
			h.Write(sep)
		}
	}
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}
