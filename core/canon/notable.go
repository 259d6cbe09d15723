package canon

import (
	"strconv"
	"strings"
)

// Segment is a curated, labeled passage inside a chapter.
type Segment struct {
	// Reference is the display reference, e.g. "John 3:16-21". Psalms
	// segments use the singular "Psalm" as is customary for one psalm.
	Reference string `json:"reference"`

	// Label is the human title, e.g. "God's Love & Judgment".
	Label string `json:"label"`
}

// String renders the segment as a suggestion: "John 3:16-21 (God's Love & Judgment)".
func (s Segment) String() string {
	return s.Reference + " (" + s.Label + ")"
}

// VerseRange parses the "start-end" part after the colon. A single verse
// ("Philippians 4:13") yields start == end. ok is false when the reference
// has no numeric verse part. The range is not checked against real verse
// counts; there is no verse-count data in scope.
func (s Segment) VerseRange() (start, end int, ok bool) {
	_, verses, found := strings.Cut(s.Reference, ":")
	if !found || verses == "" {
		return 0, 0, false
	}
	first, last, isRange := strings.Cut(verses, "-")
	start, err := strconv.Atoi(first)
	if err != nil {
		return 0, 0, false
	}
	end = start
	if isRange {
		if end, err = strconv.Atoi(last); err != nil {
			end = start
		}
	}
	return start, end, true
}

// Contains reports whether verse falls inside the segment's range.
func (s Segment) Contains(verse int) bool {
	start, end, ok := s.VerseRange()
	return ok && verse >= start && verse <= end
}

// notable is keyed by ChapterKey(canonical book name, chapter).
var notable = map[string][]Segment{
	"Genesis 1":        {{"Genesis 1:1-31", "The Creation Account"}},
	"Exodus 20":        {{"Exodus 20:1-17", "The Ten Commandments"}},
	"Psalms 23":        {{"Psalm 23:1-6", "The Lord is my Shepherd"}},
	"Psalms 51":        {{"Psalm 51:1-12", "Prayer of Repentance"}},
	"Psalms 91":        {{"Psalm 91:1-16", "He is my Refuge"}},
	"Psalms 139":       {{"Psalm 139:1-14", "Fearfully & Wonderfully Made"}},
	"Proverbs 3":       {{"Proverbs 3:5-6", "Trust in the Lord"}},
	"Isaiah 9":         {{"Isaiah 9:6-7", "For unto us a Child is Born"}},
	"Isaiah 40":        {{"Isaiah 40:28-31", "Strength to the Weary"}},
	"Isaiah 53":        {{"Isaiah 53:1-12", "The Suffering Servant"}},
	"Jeremiah 29":      {{"Jeremiah 29:11-13", "Plans for a Future"}},
	"Matthew 5":        {{"Matthew 5:3-12", "The Beatitudes"}, {"Matthew 5:13-16", "Salt and Light"}},
	"Matthew 6":        {{"Matthew 6:9-13", "The Lord's Prayer"}},
	"Matthew 28":       {{"Matthew 28:18-20", "The Great Commission"}},
	"Luke 2":           {{"Luke 2:1-20", "The Birth of Jesus"}},
	"Luke 10":          {{"Luke 10:25-37", "The Good Samaritan"}},
	"Luke 15":          {{"Luke 15:11-32", "The Prodigal Son"}},
	"John 1":           {{"John 1:1-14", "The Word Became Flesh"}},
	"John 3":           {{"John 3:16-21", "God's Love & Judgment"}},
	"John 14":          {{"John 14:1-6", "The Way, Truth, and Life"}},
	"Romans 3":         {{"Romans 3:21-26", "Righteousness Through Faith"}},
	"Romans 8":         {{"Romans 8:1-4", "Life in the Spirit"}, {"Romans 8:28-39", "More than Conquerors"}},
	"Romans 12":        {{"Romans 12:1-2", "Living Sacrifice"}},
	"1 Corinthians 13": {{"1 Corinthians 13:4-8", "Love is Patient"}},
	"Galatians 5":      {{"Galatians 5:22-23", "Fruit of the Spirit"}},
	"Ephesians 2":      {{"Ephesians 2:8-10", "Saved by Grace"}},
	"Ephesians 6":      {{"Ephesians 6:10-18", "Armor of God"}},
	"Philippians 4":    {{"Philippians 4:6-7", "Peace of God"}, {"Philippians 4:13", "Strength in Christ"}},
	"Hebrews 11":       {{"Hebrews 11:1-40", "The Hall of Faith"}},
	"James 1":          {{"James 1:2-5", "Joy in Trials"}},
	"Revelation 21":    {{"Revelation 21:1-4", "New Heaven and Earth"}},
}

// ChapterKey builds the "Book Chapter" key used by the notable index.
func ChapterKey(book string, chapter int) string {
	return book + " " + strconv.Itoa(chapter)
}

// Notable returns the curated segments for a chapter in declaration order,
// or nil when the chapter has none. The returned slice must not be modified.
func Notable(book string, chapter int) []Segment {
	return notable[ChapterKey(book, chapter)]
}

// NotableChapters returns every chapter key that has curated segments.
func NotableChapters() []string {
	keys := make([]string, 0, len(notable))
	for k := range notable {
		keys = append(keys, k)
	}
	return keys
}
