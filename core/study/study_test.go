package study

import (
	"encoding/json"
	"testing"

	"github.com/FocuswithJustin/lumina/core/errors"
)

func validStudy() *Study {
	return &Study{
		VerseReference:       "John 3:16",
		Explanation:          "God gave his Son.",
		HistoricalContext:    "Nicodemus at night.",
		KeyMeaning:           "Love that gives.",
		PracticalApplication: "Receive it.",
		RelatedVerses:        []VerseLink{{Reference: "Romans 5:8", Context: "While we were sinners"}},
		SimilarVerses:        []VerseLink{},
	}
}

func TestStudyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Study)
		wantErr string
	}{
		{"valid", func(*Study) {}, ""},
		{"topic without reference", func(s *Study) { s.VerseReference = "" }, ""},
		{"missing explanation", func(s *Study) { s.Explanation = "  " }, "explanation"},
		{"missing key meaning", func(s *Study) { s.KeyMeaning = "" }, "keyMeaning"},
		{"comparison without reference", func(s *Study) { s.Comparison = &Comparison{Synthesis: "x"} }, "comparison.secondReference"},
		{"related verse without reference", func(s *Study) { s.RelatedVerses = []VerseLink{{Context: "x"}} }, "verses.reference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validStudy()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *errors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantErr {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantErr)
			}
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Error("validation error should unwrap to ErrInvalidInput")
			}
		})
	}

	var nilStudy *Study
	if err := nilStudy.Validate(); err == nil {
		t.Error("nil study validated")
	}
}

func TestKey(t *testing.T) {
	a := Key("John 3:16", "")
	if a != Key("John 3:16", "") {
		t.Error("Key is not deterministic")
	}
	if len(a) != 32 {
		t.Errorf("len(Key) = %d, want 32", len(a))
	}

	distinct := []string{
		Key("John 3:16", "Romans 5:8"),
		Key("john 3:16", ""),
		Key("John 3:16 ", ""),
		// the separator keeps the two halves apart
		Key("John 3:1", "6"),
	}
	for _, k := range distinct {
		if k == a {
			t.Errorf("Key collision with %q", a)
		}
	}
}

func TestSameStudy(t *testing.T) {
	a := validStudy()
	b := validStudy()
	b.Explanation = "different body, same identity"

	if !SameStudy(a, b) {
		t.Error("studies with equal references should match")
	}
	if a.Key() != b.Key() {
		t.Error("Key() should only depend on references")
	}

	b.Comparison = &Comparison{SecondReference: "Romans 5:8"}
	if SameStudy(a, b) {
		t.Error("comparison reference must be part of the identity")
	}
	if SameStudy(a, nil) || !SameStudy(nil, nil) {
		t.Error("nil handling wrong")
	}
}

func TestSameStudyFollowsKey(t *testing.T) {
	tests := []struct {
		a, b refPair
	}{
		{refPair{"John 3:16", ""}, refPair{"John 3:16", ""}},
		{refPair{"John 3:16", ""}, refPair{"john 3:16", ""}},
		{refPair{"John 3:16", "Romans 5:8"}, refPair{"John 3:16", "Romans 5:8"}},
		{refPair{"John 3:1", "6"}, refPair{"John 3:16", ""}},
	}
	for _, tt := range tests {
		a, b := tt.a.build(), tt.b.build()
		if got, want := SameStudy(a, b), a.Key() == b.Key(); got != want {
			t.Errorf("SameStudy(%v, %v) = %v, want %v", tt.a, tt.b, got, want)
		}
	}
}

type refPair struct{ ref, second string }

func (s refPair) build() *Study {
	out := validStudy()
	out.VerseReference = s.ref
	if s.second != "" {
		out.Comparison = &Comparison{SecondReference: s.second}
	}
	return out
}

func TestStudyJSONFieldNames(t *testing.T) {
	s := validStudy()
	s.Comparison = &Comparison{SecondReference: "1 John 4:9"}
	s.Timestamp = 1700000000000

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"verseReference", "explanation", "historicalContext", "keyMeaning", "practicalApplication", "comparison", "relatedVerses", "similarVerses", "timestamp"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("marshaled study missing %q", key)
		}
	}
	if _, ok := raw["kjvText"]; ok {
		t.Error("empty kjvText should be omitted")
	}
}

func TestSearchResultValidate(t *testing.T) {
	if err := (SearchResult{Reference: "Psalm 46:10", Text: "Be still"}).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if err := (SearchResult{Text: "x"}).Validate(); err == nil {
		t.Error("missing reference accepted")
	}
	if err := (SearchResult{Reference: "x"}).Validate(); err == nil {
		t.Error("missing text accepted")
	}
}

func TestPassageContextValidate(t *testing.T) {
	ok := &PassageContext{
		Before:    Passage{Reference: "John 3:15", Text: "..."},
		After:     Passage{Reference: "John 3:17", Text: "..."},
		Narrative: "Jesus speaks with Nicodemus.",
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	bad := *ok
	bad.After.Reference = ""
	if err := bad.Validate(); err == nil {
		t.Error("missing after.reference accepted")
	}
}

func TestPrayerValidate(t *testing.T) {
	p := &Prayer{ID: "p1", Character: "Hannah", Content: PrayerContent{Text: "Lord..."}}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	p.ID = ""
	if err := p.Validate(); err == nil {
		t.Error("missing id accepted")
	}
}
