package canon

// Abbreviation maps a lowercase, punctuation-free abbreviation to a book.
type Abbreviation struct {
	Abbrev string `json:"abbrev"`
	Book   string `json:"book"`
}

// abbreviations is scanned in declaration order; longer forms that share a
// prefix with a shorter one (judg/jud, philem/phil) resolve to whichever
// appears first.
var abbreviations = []Abbreviation{
	{"gen", "Genesis"}, {"ex", "Exodus"}, {"lev", "Leviticus"}, {"num", "Numbers"},
	{"deut", "Deuteronomy"}, {"josh", "Joshua"}, {"judg", "Judges"}, {"ruth", "Ruth"},
	{"1sam", "1 Samuel"}, {"2sam", "2 Samuel"}, {"1kgs", "1 Kings"}, {"2kgs", "2 Kings"},
	{"1chron", "1 Chronicles"}, {"2chron", "2 Chronicles"}, {"ezra", "Ezra"},
	{"neh", "Nehemiah"}, {"esth", "Esther"}, {"job", "Job"}, {"ps", "Psalms"},
	{"prov", "Proverbs"}, {"ecc", "Ecclesiastes"}, {"song", "Song of Solomon"},
	{"isa", "Isaiah"}, {"jer", "Jeremiah"}, {"lam", "Lamentations"}, {"ezek", "Ezekiel"},
	{"dan", "Daniel"}, {"hos", "Hosea"}, {"joel", "Joel"}, {"am", "Amos"},
	{"obad", "Obadiah"}, {"jon", "Jonah"}, {"mic", "Micah"}, {"nah", "Nahum"},
	{"hab", "Habakkuk"}, {"zeph", "Zephaniah"}, {"hag", "Haggai"}, {"zech", "Zechariah"},
	{"mal", "Malachi"}, {"matt", "Matthew"}, {"mt", "Matthew"}, {"mk", "Mark"},
	{"lk", "Luke"}, {"luk", "Luke"}, {"jn", "John"}, {"acts", "Acts"}, {"rom", "Romans"},
	{"1cor", "1 Corinthians"}, {"2cor", "2 Corinthians"}, {"gal", "Galatians"},
	{"eph", "Ephesians"}, {"phil", "Philippians"}, {"col", "Colossians"},
	{"1thess", "1 Thessalonians"}, {"2thess", "2 Thessalonians"}, {"1tim", "1 Timothy"},
	{"2tim", "2 Timothy"}, {"tit", "Titus"}, {"philem", "Philemon"}, {"heb", "Hebrews"},
	{"jas", "James"}, {"1pet", "1 Peter"}, {"2pet", "2 Peter"}, {"1jn", "1 John"},
	{"2jn", "2 John"}, {"3jn", "3 John"}, {"jud", "Jude"}, {"rev", "Revelation"},
}

// Abbreviations returns the abbreviation table in declaration order.
func Abbreviations() []Abbreviation {
	out := make([]Abbreviation, len(abbreviations))
	copy(out, abbreviations)
	return out
}
