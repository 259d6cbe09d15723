package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/lumina/internal/storage"
)

func dialSuggest(t *testing.T, ts *httptest.Server, query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/suggest" + query
	return websocket.DefaultDialer.Dial(url, header)
}

func TestWebSocketSuggest(t *testing.T) {
	e := newTestEnv(t, Config{})
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	conn, _, err := dialSuggest(t, ts, "", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(SuggestRequest{Input: "gen"}); err != nil {
		t.Fatal(err)
	}
	var reply SuggestReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	want := SuggestReply{Type: "suggestions", Input: "gen", Suggestions: []string{"Genesis", "Genesis 1"}}
	if diff := cmp.Diff(want, reply); diff != "" {
		t.Errorf("reply mismatch (-want +got):\n%s", diff)
	}

	// malformed messages are skipped, not fatal
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(SuggestRequest{Input: "j"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON after malformed: %v", err)
	}
	if reply.Input != "j" || len(reply.Suggestions) != 0 {
		t.Errorf("reply = %+v, want empty suggestions for %q", reply, "j")
	}
}

func TestWebSocketLibraryEvents(t *testing.T) {
	e := newTestEnv(t, Config{})
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	conn, _, err := dialSuggest(t, ts, "", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// a round trip guarantees the hub has registered the client
	if err := conn.WriteJSON(SuggestRequest{Input: "ps"}); err != nil {
		t.Fatal(err)
	}
	var reply SuggestReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatal(err)
	}

	e.login(t, storage.ModeGuest)
	if w, _ := e.do(t, http.MethodPost, "/prayers/generate", PrayerRequest{Save: true}); w.Code != http.StatusCreated {
		t.Fatalf("generate = %d", w.Code)
	}

	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if ev.Type != "library_updated" || ev.Collection != "prayers" || ev.Total != 1 || ev.Timestamp == "" {
		t.Errorf("event = %+v", ev)
	}
}

func TestWebSocketOriginRejected(t *testing.T) {
	e := newTestEnv(t, Config{AllowedOrigins: []string{"https://lumina.example"}})
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := dialSuggest(t, ts, "", header)
	if err == nil {
		conn.Close()
		t.Fatal("Dial succeeded for a disallowed origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	header.Set("Origin", "https://lumina.example")
	conn, _, err = dialSuggest(t, ts, "", header)
	if err != nil {
		t.Fatalf("Dial with allowed origin: %v", err)
	}
	conn.Close()
}

func TestWebSocketAuthQueryKey(t *testing.T) {
	e := newTestEnv(t, Config{Auth: AuthConfig{Enabled: true, APIKeys: []string{testAPIKey}}})
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	if conn, _, err := dialSuggest(t, ts, "", nil); err == nil {
		conn.Close()
		t.Error("Dial without key succeeded")
	}

	conn, _, err := dialSuggest(t, ts, "?api_key="+testAPIKey, nil)
	if err != nil {
		t.Fatalf("Dial with key: %v", err)
	}
	conn.Close()
}

func TestWebSocketRateLimit(t *testing.T) {
	e := newTestEnv(t, Config{})
	e.srv.ws.MaxMessageRate = 1
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	conn, _, err := dialSuggest(t, ts, "", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// burst is twice the rate; the third message closes the connection
	for i := 0; i < 3; i++ {
		if err := conn.WriteJSON(SuggestRequest{Input: "gen"}); err != nil {
			t.Fatal(err)
		}
	}
	var closeErr error
	for closeErr == nil {
		_, _, closeErr = conn.ReadMessage()
	}
	if !websocket.IsCloseError(closeErr, websocket.ClosePolicyViolation) {
		t.Errorf("close error = %v, want policy violation", closeErr)
	}
}

func TestHubClientCount(t *testing.T) {
	e := newTestEnv(t, Config{})
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	conn, _, err := dialSuggest(t, ts, "", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for e.srv.Hub().ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d, want 1", e.srv.Hub().ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"no restriction", "https://a.example", nil, true},
		{"no origin", "", []string{"https://a.example"}, true},
		{"exact", "https://a.example", []string{"https://a.example"}, true},
		{"star", "https://x", []string{"*"}, true},
		{"wildcard subdomain", "https://app.lumina.example", []string{"*.lumina.example"}, true},
		{"wildcard with port", "https://app.lumina.example:8443", []string{"*.lumina.example"}, true},
		{"wildcard needs a dot boundary", "https://evillumina.example", []string{"*.lumina.example"}, false},
		{"wildcard excludes apex", "https://lumina.example", []string{"*.lumina.example"}, false},
		{"mismatch", "https://b.example", []string{"https://a.example"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOriginAllowed(tt.origin, tt.allowed); got != tt.want {
				t.Errorf("isOriginAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"3f2b8c1e-7a4d-4f7e-9b1a-2c3d4e5f6a7b", false},
		{"legacy_1700000000", false},
		{"", true},
		{"..", true},
		{"a/b", true},
		{"a b", true},
		{"a\x00b", true},
		{strings.Repeat("x", MaxIDLength+1), true},
	}
	for _, tt := range tests {
		if err := ValidateID(tt.id); (err != nil) != tt.wantErr {
			t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}
