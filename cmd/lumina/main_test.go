package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FocuswithJustin/lumina/core/sqlite"
	"github.com/FocuswithJustin/lumina/core/study"
	"github.com/FocuswithJustin/lumina/internal/ai"
	"github.com/FocuswithJustin/lumina/internal/export"
	"github.com/FocuswithJustin/lumina/internal/session"
)

// testHome isolates config, data and AI credentials from the developer's
// environment and returns the global flags pointing at them.
func testHome(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LUMINA_HOME", dir)
	for _, name := range []string{"LUMINA_API_KEY", "GEMINI_API_KEY", "API_KEY", "LUMINA_MODEL", "LUMINA_DATA_DIR"} {
		t.Setenv(name, "")
	}

	cfg := filepath.Join(dir, "lumina.yaml")
	if err := os.WriteFile(cfg, []byte("log:\n  level: error\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return []string{"--config", cfg, "--data-dir", filepath.Join(dir, "data")}
}

func runCLI(t *testing.T, globals []string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append(append([]string{}, globals...), args...), &out)
	return out.String(), err
}

func mustRun(t *testing.T, globals []string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, globals, args...)
	if err != nil {
		t.Fatalf("lumina %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestVersion(t *testing.T) {
	out := mustRun(t, nil, "version")
	info := sqlite.GetInfo()
	want := "lumina version " + version + "\nsqlite: " + info.DriverType + " (" + info.Package + ")\n"
	if out != want {
		t.Errorf("version output = %q", out)
	}
}

func TestSuggestCmd(t *testing.T) {
	out := mustRun(t, nil, "suggest", "gen")
	if out != "Genesis\nGenesis 1\n" {
		t.Errorf("suggest gen = %q", out)
	}

	out = mustRun(t, nil, "suggest", "john", "3:16")
	if !strings.Contains(out, "John 3:16-19 (Context)\n") {
		t.Errorf("suggest john 3:16 = %q", out)
	}
}

func TestSessionCommands(t *testing.T) {
	g := testHome(t)

	if out := mustRun(t, g, "whoami"); out != "Not signed in.\n" {
		t.Errorf("whoami = %q", out)
	}
	if out := mustRun(t, g, "login", "guest"); out != "Signed in as guest\n" {
		t.Errorf("login guest = %q", out)
	}
	// the sign-in survives across invocations
	if out := mustRun(t, g, "whoami"); out != "Signed in as guest\n" {
		t.Errorf("whoami after login = %q", out)
	}

	out := mustRun(t, g, "login", "google")
	if !strings.Contains(out, session.MockGoogleName) || !strings.Contains(out, session.MockGoogleUID) {
		t.Errorf("login google = %q", out)
	}

	mustRun(t, g, "logout")
	if out := mustRun(t, g, "whoami"); out != "Not signed in.\n" {
		t.Errorf("whoami after logout = %q", out)
	}
}

func TestSignedOutCommands(t *testing.T) {
	g := testHome(t)
	for _, args := range [][]string{
		{"history", "list"},
		{"favorites", "list"},
		{"prayers", "list"},
	} {
		_, err := runCLI(t, g, args...)
		if !errors.Is(err, session.ErrNotSignedIn) {
			t.Errorf("lumina %s error = %v, want ErrNotSignedIn", strings.Join(args, " "), err)
		}
	}
}

func TestStudyWithoutAPIKey(t *testing.T) {
	g := testHome(t)
	mustRun(t, g, "login", "guest")

	_, err := runCLI(t, g, "study", "John", "3:16")
	if !errors.Is(err, ai.ErrNoAPIKey) {
		t.Errorf("study error = %v, want ErrNoAPIKey", err)
	}
}

func TestHistoryExportImport(t *testing.T) {
	g := testHome(t)
	mustRun(t, g, "login", "guest")

	if out := mustRun(t, g, "history", "list"); out != "No studies yet.\n" {
		t.Errorf("empty history = %q", out)
	}

	src := filepath.Join(t.TempDir(), "in.xml")
	lib := &export.Library{
		History: []study.Study{{
			VerseReference:       "Psalm 23:1",
			Explanation:          "e",
			HistoricalContext:    "h",
			KeyMeaning:           "k",
			PracticalApplication: "p",
			RelatedVerses:        []study.VerseLink{},
			SimilarVerses:        []study.VerseLink{},
		}},
		Prayers: []study.Prayer{{ID: "p1", Character: "David", Content: study.PrayerContent{Text: "You are my shepherd."}}},
	}
	if err := export.WriteFile(src, lib, time.Time{}); err != nil {
		t.Fatal(err)
	}

	out := mustRun(t, g, "history", "import", src)
	if out != "Imported 1 studies, 0 favorites and 1 prayers\n" {
		t.Errorf("import = %q", out)
	}
	if out := mustRun(t, g, "history", "list"); !strings.Contains(out, "Psalm 23:1") {
		t.Errorf("history after import = %q", out)
	}
	if out := mustRun(t, g, "prayers", "list"); !strings.HasPrefix(out, "p1  ") {
		t.Errorf("prayers after import = %q", out)
	}

	dst := filepath.Join(t.TempDir(), "out.xml.xz")
	if out := mustRun(t, g, "history", "export", dst); !strings.Contains(out, "1 studies, 0 favorites and 1 prayers") {
		t.Errorf("export = %q", out)
	}
	back, err := export.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(back.History) != 1 || back.History[0].VerseReference != "Psalm 23:1" || len(back.Prayers) != 1 {
		t.Errorf("exported library = %+v", back)
	}

	if out := mustRun(t, g, "prayers", "delete", "p1"); out != "0 prayers remaining\n" {
		t.Errorf("delete = %q", out)
	}
}

func TestPrayerDeleteRejectsBadID(t *testing.T) {
	g := testHome(t)
	if _, err := runCLI(t, g, "prayers", "delete", "../etc"); err == nil {
		t.Error("delete accepted a path-like id")
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := runCLI(t, nil, "translate", "john"); err == nil {
		t.Error("unknown command accepted")
	}
}
