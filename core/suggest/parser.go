package suggest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Location is the chapter/verse descriptor typed after a book name.
type Location struct {
	// Chapter is the typed chapter number (not yet validated against the canon).
	Chapter int

	// Colon is true once the user has typed the chapter/verse separator.
	Colon bool

	// Verse is the typed verse, meaningful only when HasVerse is set.
	Verse    int
	HasVerse bool
}

// MaxNumber bounds a typed chapter or verse. Every real chapter and verse
// is well under it, and it keeps the derived "V+3" ranges far from overflow.
const MaxNumber = 999

// remainderGrammar accepts "3", "3:" and "3:16". Whitespace is not a
// token, so "3 : 16" or "3:16-18" fail to lex and are rejected.
//
//nolint:govet // participle grammar tags are not standard struct tags
type remainderGrammar struct {
	Chapter string     `parser:"@Int"`
	Tail    *verseTail `parser:"@@?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type verseTail struct {
	Colon bool    `parser:"@\":\""`
	Verse *string `parser:"@Int?"`
}

var remainderLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Colon", Pattern: `:`},
})

var remainderParser = participle.MustBuild[remainderGrammar](
	participle.Lexer(remainderLexer),
)

// ParseRemainder interprets the text that follows the book token. It
// returns an error for anything outside the grammar
// `<digits> | <digits>: | <digits>:<digits>`, including the empty string.
func ParseRemainder(rest string) (Location, error) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Location{}, fmt.Errorf("empty remainder")
	}

	parsed, err := remainderParser.ParseString("", rest)
	if err != nil {
		return Location{}, fmt.Errorf("invalid chapter/verse %q: %w", rest, err)
	}

	chapter, err := parseNumber(parsed.Chapter)
	if err != nil {
		return Location{}, err
	}
	loc := Location{Chapter: chapter}
	if parsed.Tail != nil {
		loc.Colon = parsed.Tail.Colon
		if parsed.Tail.Verse != nil {
			verse, err := parseNumber(*parsed.Tail.Verse)
			if err != nil {
				return Location{}, err
			}
			loc.Verse = verse
			loc.HasVerse = true
		}
	}
	return loc, nil
}

// parseNumber reads digits as base 10, so "010" is 10 and "08" is 8.
func parseNumber(digits string) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", digits, err)
	}
	if n > MaxNumber {
		return 0, fmt.Errorf("number %d out of range", n)
	}
	return n, nil
}
