// Package canon holds the static scripture tables used for reference
// resolution: the 66-book Protestant canon with chapter counts, the
// abbreviation table, and the index of notable passages.
//
// All tables are built at package initialization and never mutated, so
// every function in this package is safe for concurrent use.
package canon

import "strings"

// Book is a canonical book and its chapter count.
type Book struct {
	// Name is the canonical display name (e.g., "1 Corinthians").
	Name string `json:"name"`

	// Chapters is the number of chapters in the book (always >= 1).
	Chapters int `json:"chapters"`
}

// books is the canon in declaration order. Lookup order matters: the
// resolver takes the first book whose lowercase name prefixes the input.
var books = []Book{
	// Old Testament
	{"Genesis", 50}, {"Exodus", 40}, {"Leviticus", 27}, {"Numbers", 36},
	{"Deuteronomy", 34}, {"Joshua", 24}, {"Judges", 21}, {"Ruth", 4},
	{"1 Samuel", 31}, {"2 Samuel", 24}, {"1 Kings", 22}, {"2 Kings", 25},
	{"1 Chronicles", 29}, {"2 Chronicles", 36}, {"Ezra", 10}, {"Nehemiah", 13},
	{"Esther", 10}, {"Job", 42}, {"Psalms", 150}, {"Proverbs", 31},
	{"Ecclesiastes", 12}, {"Song of Solomon", 8}, {"Isaiah", 66},
	{"Jeremiah", 52}, {"Lamentations", 5}, {"Ezekiel", 48}, {"Daniel", 12},
	{"Hosea", 14}, {"Joel", 3}, {"Amos", 9}, {"Obadiah", 1}, {"Jonah", 4},
	{"Micah", 7}, {"Nahum", 3}, {"Habakkuk", 3}, {"Zephaniah", 3},
	{"Haggai", 2}, {"Zechariah", 14}, {"Malachi", 4},
	// New Testament
	{"Matthew", 28}, {"Mark", 16}, {"Luke", 24}, {"John", 21}, {"Acts", 28},
	{"Romans", 16}, {"1 Corinthians", 16}, {"2 Corinthians", 13},
	{"Galatians", 6}, {"Ephesians", 6}, {"Philippians", 4}, {"Colossians", 4},
	{"1 Thessalonians", 5}, {"2 Thessalonians", 3}, {"1 Timothy", 6},
	{"2 Timothy", 4}, {"Titus", 3}, {"Philemon", 1}, {"Hebrews", 13},
	{"James", 5}, {"1 Peter", 5}, {"2 Peter", 3}, {"1 John", 5}, {"2 John", 1},
	{"3 John", 1}, {"Jude", 1}, {"Revelation", 22},
}

// lowerNames mirrors books with lowercased names for prefix matching.
var lowerNames = func() []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = strings.ToLower(b.Name)
	}
	return out
}()

// byName indexes books by canonical name.
var byName = func() map[string]Book {
	m := make(map[string]Book, len(books))
	for _, b := range books {
		m[b.Name] = b
	}
	return m
}()

// Books returns the canon in declaration order. The slice is a copy.
func Books() []Book {
	out := make([]Book, len(books))
	copy(out, books)
	return out
}

// Lookup finds a book by its canonical name (case-sensitive).
func Lookup(name string) (Book, bool) {
	b, ok := byName[name]
	return b, ok
}

// ValidChapter reports whether chapter lies within 1..Chapters.
func (b Book) ValidChapter(chapter int) bool {
	return chapter >= 1 && chapter <= b.Chapters
}

// Match identifies the book the user is typing. input must already be
// trimmed and lowercased. The canon is scanned first, then the abbreviation
// table, both in declaration order; the first prefix match wins.
//
// token is the lowercase text that matched (the full name or the
// abbreviation), so the caller can slice it off to find the remainder.
func Match(input string) (book Book, token string, ok bool) {
	for i, name := range lowerNames {
		if strings.HasPrefix(input, name) {
			return books[i], name, true
		}
	}
	for _, a := range abbreviations {
		if strings.HasPrefix(input, a.Abbrev) {
			return byName[a.Book], a.Abbrev, true
		}
	}
	return Book{}, "", false
}

// PrefixMatches returns up to limit canon books whose lowercase name starts
// with input, in declaration order, skipping the book named exclude.
func PrefixMatches(input, exclude string, limit int) []string {
	var out []string
	for i, name := range lowerNames {
		if len(out) >= limit {
			break
		}
		if books[i].Name == exclude {
			continue
		}
		if strings.HasPrefix(name, input) {
			out = append(out, books[i].Name)
		}
	}
	return out
}
