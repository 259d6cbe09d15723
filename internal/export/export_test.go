package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	lerrors "github.com/FocuswithJustin/lumina/core/errors"
	"github.com/FocuswithJustin/lumina/core/study"
	"github.com/FocuswithJustin/lumina/internal/ai"
	"github.com/FocuswithJustin/lumina/internal/lumina"
	"github.com/FocuswithJustin/lumina/internal/session"
	"github.com/FocuswithJustin/lumina/internal/storage"
	"github.com/FocuswithJustin/lumina/internal/validation"
)

func sampleStudy(ref string) study.Study {
	return study.Study{
		VerseReference:       ref,
		KJVText:              "For God so loved the world & <all> in it",
		Explanation:          "God gave his Son.",
		HistoricalContext:    "Nicodemus at night.",
		KeyMeaning:           "Love that gives.",
		PracticalApplication: "Receive it.",
		RelatedVerses:        []study.VerseLink{{Reference: "Romans 5:8", Context: "While we were sinners"}},
		SimilarVerses:        []study.VerseLink{},
		Timestamp:            1700000000000,
	}
}

func sampleLibrary() *Library {
	compared := sampleStudy("John 3:16")
	compared.Comparison = &study.Comparison{
		SecondReference: "1 John 4:9",
		Similarities:    "Both speak of the Son sent.",
		Differences:     "Gospel versus letter.",
		Synthesis:       "Love made visible.",
	}
	return &Library{
		History:   []study.Study{sampleStudy("Psalm 23:1"), compared},
		Favorites: []study.Study{sampleStudy("Psalm 23:1")},
		Prayers: []study.Prayer{
			{ID: "p2", Timestamp: 2, Character: "Hannah", Theme: "patience", Scenario: "waiting", Content: study.PrayerContent{Text: "Lord, I wait.", Affirmation: "I wait in hope."}},
			{ID: "p1", Timestamp: 1, Character: "David", Scenario: "fear", Content: study.PrayerContent{Text: "You are my shepherd."}},
		},
	}
}

func TestWriteRead(t *testing.T) {
	lib := sampleLibrary()

	var buf bytes.Buffer
	if err := Write(&buf, lib, time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`<?xml`, `<lumina version="1" exported="2026-10-14T09:00:00Z">`, `&amp; &lt;all&gt;`, `<prayer id="p2" timestamp="2">`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(lib, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFileXZ(t *testing.T) {
	dir := t.TempDir()
	lib := sampleLibrary()

	for _, name := range []string{"library.xml", "library.xml.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := WriteFile(path, lib, time.Time{}); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if diff := cmp.Diff(lib, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadEmptyDocument(t *testing.T) {
	got, err := Read(strings.NewReader(`<lumina version="1"/>`))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.History)+len(got.Favorites)+len(got.Prayers) != 0 {
		t.Errorf("Read = %+v, want empty library", got)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not xml", "{}"},
		{"wrong root", `<library><history/></library>`},
		{"newer version", `<lumina version="2"/>`},
		{"bad version", `<lumina version="one"/>`},
		{"bad timestamp", `<lumina version="1"><history><study timestamp="soon"/></history></lumina>`},
		{"truncated xz", string(xzMagic) + "garbage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Read succeeded")
			}
			var pe *lerrors.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("Read error = %T %v, want *ParseError", err, err)
			}
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.xml"))
	var ioErr *lerrors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("ReadFile error = %v, want *IOError", err)
	}
}

func TestReadFileTypeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.xml.xz")
	if err := WriteFile(filepath.Join(filepath.Dir(path), "plain.xml"), sampleLibrary(), time.Time{}); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(filepath.Join(filepath.Dir(path), "plain.xml"), path); err != nil {
		t.Fatal(err)
	}

	_, err := ReadFile(path)
	if !errors.Is(err, validation.ErrFileType) {
		t.Errorf("ReadFile error = %v, want ErrFileType", err)
	}
}

func newApp(t *testing.T) *lumina.App {
	t.Helper()
	device, err := storage.OpenMemoryDevice()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { device.Close() })

	sess := session.New(device)
	if _, err := sess.Login(context.Background(), storage.ModeGuest); err != nil {
		t.Fatal(err)
	}
	return lumina.New(sess, storage.NewLibrary(device, nil), ai.NewService(nil, nil), device)
}

func TestImportSnapshot(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)
	lib := sampleLibrary()

	n, err := Import(ctx, app, lib)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if want := (Counts{History: 2, Favorites: 1, Prayers: 2}); n != want {
		t.Errorf("Import counts = %+v, want %+v", n, want)
	}

	got, err := Snapshot(ctx, app)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	refs := func(list []study.Study) []string {
		var out []string
		for _, s := range list {
			out = append(out, s.VerseReference)
		}
		return out
	}
	if diff := cmp.Diff(refs(lib.History), refs(got.History)); diff != "" {
		t.Errorf("history order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(lib.Prayers, got.Prayers); diff != "" {
		t.Errorf("prayers (-want +got):\n%s", diff)
	}

	// a second import leaves favorites and prayers alone
	n, err = Import(ctx, app, lib)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if n.Favorites != 0 || n.Prayers != 0 {
		t.Errorf("second Import counts = %+v", n)
	}
	favs, _ := app.Favorites(ctx)
	if len(favs) != 1 {
		t.Errorf("favorites after reimport = %d, want 1", len(favs))
	}
}

func TestImportRejectsInvalid(t *testing.T) {
	app := newApp(t)
	bad := &Library{History: []study.Study{{VerseReference: "John 3:16"}}}

	_, err := Import(context.Background(), app, bad)
	if !errors.Is(err, lerrors.ErrInvalidInput) {
		t.Errorf("Import error = %v, want ErrInvalidInput", err)
	}
}
