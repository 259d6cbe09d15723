// Package suggest resolves partial scripture references into ranked
// completion candidates.
//
// Resolve is a pure function over the static tables in package canon: it
// performs no I/O, holds no state and is safe to call concurrently on every
// keystroke.
package suggest

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/FocuswithJustin/lumina/core/canon"
)

const (
	// MaxSuggestions bounds the result of Resolve.
	MaxSuggestions = 8

	minInputLen       = 2
	fallbackThreshold = 3
	fallbackLimit     = 3

	// contextSpan is the fixed lookahead of the "(Context)" range: V..V+3.
	// It is not checked against the chapter's real verse count.
	contextSpan = 3

	// nextVerses is how many single-verse nudges follow a typed verse.
	nextVerses = 2
)

// Suffixes attached to generated suggestions.
const (
	LabelFullChapter = "(Full Chapter)"
	LabelIntro       = "(Intro Section)"
	LabelContext     = "(Context)"
)

// Resolve maps raw user input to at most MaxSuggestions reference strings,
// de-duplicated and in priority order. Input shorter than two characters
// after trimming yields an empty list.
func Resolve(input string) []string {
	normalized := Normalize(input)
	if utf8.RuneCountInString(normalized) < minInputLen {
		return []string{}
	}

	set := newOrderedSet()

	book, token, matched := canon.Match(normalized)
	if matched {
		rest := strings.TrimSpace(normalized[len(token):])
		addBookSuggestions(set, book, rest)
	}

	// Fallback: plain book-name completion.
	if set.len() < fallbackThreshold {
		exclude := ""
		if matched {
			exclude = book.Name
		}
		for _, name := range canon.PrefixMatches(normalized, exclude, fallbackLimit) {
			set.add(name)
		}
	}

	return set.first(MaxSuggestions)
}

// Normalize folds input the way Resolve sees it: NFKC, lowercase, trimmed.
func Normalize(input string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFKC.String(input)))
}

func addBookSuggestions(set *orderedSet, book canon.Book, rest string) {
	// Nothing numeric typed yet: nudge toward the book and chapter 1.
	if !strings.ContainsAny(rest, "0123456789") {
		set.add(book.Name)
		set.add(book.Name + " 1")
		return
	}

	loc, err := ParseRemainder(rest)
	if err != nil || !book.ValidChapter(loc.Chapter) {
		return
	}

	segments := canon.Notable(book.Name, loc.Chapter)
	for _, seg := range segments {
		set.add(seg.String())
	}

	base := book.Name + " " + strconv.Itoa(loc.Chapter)

	if !loc.Colon {
		set.add(base + " " + LabelFullChapter)
		set.add(base + ":1-5 " + LabelIntro)
		return
	}

	start := 1
	if loc.HasVerse {
		v := loc.Verse
		set.add(verseRef(base, v))
		set.add(verseRef(base, v) + "-" + strconv.Itoa(v+contextSpan) + " " + LabelContext)
		for _, seg := range segments {
			if seg.Contains(v) {
				set.add(seg.String())
				break
			}
		}
		start = v
	}

	for i := 1; i <= nextVerses; i++ {
		set.add(verseRef(base, start+i))
	}
}

func verseRef(base string, verse int) string {
	return base + ":" + strconv.Itoa(verse)
}

// orderedSet keeps first-insertion order; re-adding is a no-op.
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(item string) {
	if _, ok := s.seen[item]; ok {
		return
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
}

func (s *orderedSet) len() int {
	return len(s.items)
}

func (s *orderedSet) first(n int) []string {
	if len(s.items) > n {
		return s.items[:n]
	}
	if s.items == nil {
		return []string{}
	}
	return s.items
}
