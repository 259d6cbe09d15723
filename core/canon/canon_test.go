package canon

import (
	"strconv"
	"strings"
	"testing"
)

func TestBooksInvariants(t *testing.T) {
	all := Books()
	if len(all) != 66 {
		t.Fatalf("len(Books()) = %d, want 66", len(all))
	}

	seen := make(map[string]bool)
	for _, b := range all {
		if seen[b.Name] {
			t.Errorf("duplicate book %q", b.Name)
		}
		seen[b.Name] = true
		if b.Chapters < 1 {
			t.Errorf("%s has %d chapters, want >= 1", b.Name, b.Chapters)
		}
	}

	if all[0].Name != "Genesis" || all[65].Name != "Revelation" {
		t.Errorf("canon order broken: first=%q last=%q", all[0].Name, all[65].Name)
	}
}

func TestBooksReturnsCopy(t *testing.T) {
	a := Books()
	a[0].Name = "Mutated"
	if b := Books(); b[0].Name != "Genesis" {
		t.Errorf("Books() exposed internal state: %q", b[0].Name)
	}
}

func TestAbbreviationsInvariants(t *testing.T) {
	seen := make(map[string]bool)
	for _, a := range Abbreviations() {
		if _, ok := Lookup(a.Book); !ok {
			t.Errorf("abbreviation %q maps to unknown book %q", a.Abbrev, a.Book)
		}
		if a.Abbrev != strings.ToLower(a.Abbrev) {
			t.Errorf("abbreviation %q is not lowercase", a.Abbrev)
		}
		if strings.ContainsAny(a.Abbrev, ". :") {
			t.Errorf("abbreviation %q contains punctuation", a.Abbrev)
		}
		if seen[a.Abbrev] {
			t.Errorf("abbreviation %q declared twice", a.Abbrev)
		}
		seen[a.Abbrev] = true
	}
}

func TestNotableInvariants(t *testing.T) {
	for _, key := range NotableChapters() {
		idx := strings.LastIndex(key, " ")
		book, chapterStr := key[:idx], key[idx+1:]
		b, ok := Lookup(book)
		if !ok {
			t.Errorf("notable key %q uses unknown book", key)
			continue
		}
		chapter, err := strconv.Atoi(chapterStr)
		if err != nil || !b.ValidChapter(chapter) {
			t.Errorf("notable key %q has invalid chapter", key)
		}

		for _, seg := range Notable(book, chapter) {
			prefix, _, _ := strings.Cut(seg.Reference, ":")
			want := key
			if book == "Psalms" {
				want = "Psalm " + chapterStr
			}
			if prefix != want {
				t.Errorf("segment %q does not belong to chapter %q", seg.Reference, key)
			}
			if _, _, ok := seg.VerseRange(); !ok {
				t.Errorf("segment %q has no verse range", seg.Reference)
			}
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		input     string
		wantBook  string
		wantToken string
		wantOK    bool
	}{
		{"gen", "Genesis", "gen", true},
		{"genesis 1", "Genesis", "genesis", true},
		{"ps 23", "Psalms", "ps", true},
		{"psalms 23", "Psalms", "psalms", true},
		{"1 john 3", "1 John", "1 john", true},
		{"1jn 2", "1 John", "1jn", true},
		{"jn 3:16", "John", "jn", true},
		{"song of solomon 2", "Song of Solomon", "song of solomon", true},
		// first structural match wins: "phil" precedes "philem"
		{"philem 1", "Philippians", "phil", true},
		{"philemon 1", "Philemon", "philemon", true},
		{"jude", "Jude", "jude", true},
		{"jo", "", "", false},
		{"xyz", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			book, token, ok := Match(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Match(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if book.Name != tt.wantBook {
				t.Errorf("Match(%q) book = %q, want %q", tt.input, book.Name, tt.wantBook)
			}
			if token != tt.wantToken {
				t.Errorf("Match(%q) token = %q, want %q", tt.input, token, tt.wantToken)
			}
		})
	}
}

func TestPrefixMatches(t *testing.T) {
	got := PrefixMatches("jo", "", 3)
	want := []string{"Joshua", "Job", "Joel"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("PrefixMatches(jo) = %v, want %v", got, want)
	}

	got = PrefixMatches("jud", "Judges", 3)
	if len(got) != 1 || got[0] != "Jude" {
		t.Errorf("PrefixMatches(jud, exclude Judges) = %v, want [Jude]", got)
	}

	if got := PrefixMatches("zz", "", 3); len(got) != 0 {
		t.Errorf("PrefixMatches(zz) = %v, want empty", got)
	}
}

func TestSegmentVerseRange(t *testing.T) {
	tests := []struct {
		ref        string
		start, end int
		ok         bool
	}{
		{"John 3:16-21", 16, 21, true},
		{"Philippians 4:13", 13, 13, true},
		{"Psalm 23", 0, 0, false},
		{"Bad 1:x-3", 0, 0, false},
	}
	for _, tt := range tests {
		start, end, ok := Segment{Reference: tt.ref}.VerseRange()
		if start != tt.start || end != tt.end || ok != tt.ok {
			t.Errorf("VerseRange(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tt.ref, start, end, ok, tt.start, tt.end, tt.ok)
		}
	}

	seg := Segment{Reference: "John 3:16-21", Label: "God's Love & Judgment"}
	if !seg.Contains(18) || seg.Contains(22) || seg.Contains(15) {
		t.Error("Contains gave wrong answer for John 3:16-21")
	}
	if got, want := seg.String(), "John 3:16-21 (God's Love & Judgment)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
