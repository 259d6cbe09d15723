// Package study defines the records exchanged between the AI service, the
// persistence layer and the API: generated study content, search results,
// passage context and saved prayers.
package study

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/lumina/core/errors"
)

// VerseLink is a cross-reference shown alongside a study.
type VerseLink struct {
	Reference string `json:"reference"`
	Context   string `json:"context"`
}

// Comparison is present when a study was generated against a second passage.
type Comparison struct {
	SecondReference string `json:"secondReference"`
	Similarities    string `json:"similarities"`
	Differences     string `json:"differences"`
	Synthesis       string `json:"synthesis"`
}

// Study is the structured content generated for a passage or topic.
type Study struct {
	VerseReference           string      `json:"verseReference,omitempty"`
	KJVText                  string      `json:"kjvText,omitempty"`
	SimplifiedText           string      `json:"simplifiedText,omitempty"`
	OriginalLanguageText     string      `json:"originalLanguageText,omitempty"`
	OriginalLanguageAnalysis string      `json:"originalLanguageAnalysis,omitempty"`
	Explanation              string      `json:"explanation"`
	HistoricalContext        string      `json:"historicalContext"`
	KeyMeaning               string      `json:"keyMeaning"`
	PracticalApplication     string      `json:"practicalApplication"`
	Comparison               *Comparison `json:"comparison,omitempty"`
	RelatedVerses            []VerseLink `json:"relatedVerses"`
	SimilarVerses            []VerseLink `json:"similarVerses"`

	// Timestamp is milliseconds since the Unix epoch, set when saved to history.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// SecondReference returns the comparison reference, or "" for a single
// passage study.
func (s *Study) SecondReference() string {
	if s == nil || s.Comparison == nil {
		return ""
	}
	return s.Comparison.SecondReference
}

// Validate checks the fields every generated study must carry.
func (s *Study) Validate() error {
	if s == nil {
		return errors.NewValidation("study", "missing")
	}
	required := []struct {
		field, value string
	}{
		{"explanation", s.Explanation},
		{"historicalContext", s.HistoricalContext},
		{"keyMeaning", s.KeyMeaning},
		{"practicalApplication", s.PracticalApplication},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errors.NewValidation(r.field, "required")
		}
	}
	if s.Comparison != nil && s.Comparison.SecondReference == "" {
		return errors.NewValidation("comparison.secondReference", "required when comparison is set")
	}
	for _, v := range append(append([]VerseLink(nil), s.RelatedVerses...), s.SimilarVerses...) {
		if v.Reference == "" {
			return errors.NewValidation("verses.reference", "required")
		}
	}
	return nil
}

// Key returns the persistence identity of (reference, secondReference) as a
// hex BLAKE3 digest. Strings are compared exactly: "John 3:16" and
// "john 3:16" are different studies.
func Key(reference, secondReference string) string {
	h := blake3.New()
	_, _ = h.Write([]byte(reference))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(secondReference))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Key returns the identity key of s.
func (s *Study) Key() string {
	return Key(s.VerseReference, s.SecondReference())
}

// SameStudy reports whether a and b share an identity key.
func SameStudy(a, b *Study) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Key() == b.Key()
}

// SearchResult is one hit of a topical or keyword search.
type SearchResult struct {
	Reference string `json:"reference"`
	Text      string `json:"text"`
	Relevance string `json:"relevance"`
}

// Validate requires a reference and text.
func (r SearchResult) Validate() error {
	if strings.TrimSpace(r.Reference) == "" {
		return errors.NewValidation("reference", "required")
	}
	if strings.TrimSpace(r.Text) == "" {
		return errors.NewValidation("text", "required")
	}
	return nil
}

// Passage is a reference with its text.
type Passage struct {
	Reference string `json:"reference"`
	Text      string `json:"text"`
}

// PassageContext surrounds a reference with the passages before and after it.
type PassageContext struct {
	Before             Passage `json:"before"`
	After              Passage `json:"after"`
	Narrative          string  `json:"narrative"`
	HistoricalAnalysis string  `json:"historicalAnalysis"`
}

// Validate requires both neighbouring passages and the narrative.
func (p *PassageContext) Validate() error {
	if p == nil {
		return errors.NewValidation("context", "missing")
	}
	switch {
	case p.Before.Reference == "":
		return errors.NewValidation("before.reference", "required")
	case p.After.Reference == "":
		return errors.NewValidation("after.reference", "required")
	case strings.TrimSpace(p.Narrative) == "":
		return errors.NewValidation("narrative", "required")
	}
	return nil
}

// PrayerContent is the generated prayer body.
type PrayerContent struct {
	Text        string `json:"text"`
	Affirmation string `json:"affirmation"`
}

// Prayer is a generated prayer kept in the user's library.
type Prayer struct {
	ID        string        `json:"id"`
	Timestamp int64         `json:"timestamp"`
	Character string        `json:"character"`
	Theme     string        `json:"theme,omitempty"`
	Scenario  string        `json:"scenario"`
	Content   PrayerContent `json:"content"`
}

// Validate requires an id and prayer text.
func (p *Prayer) Validate() error {
	if p == nil {
		return errors.NewValidation("prayer", "missing")
	}
	if p.ID == "" {
		return errors.NewValidation("id", "required")
	}
	if strings.TrimSpace(p.Content.Text) == "" {
		return errors.NewValidation("content.text", "required")
	}
	return nil
}
