package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Suggest("http", false)
	m.Suggest("http", true)
	m.Suggest("ws", true)
	m.AIRequest("analyze", 2*time.Second, nil)
	m.AIRequest("analyze", time.Second, errors.New("boom"))
	m.Storage("device", "save_study", nil)
	m.HTTPRequest(http.MethodGet, http.StatusOK)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"suggest http", testutil.ToFloat64(m.suggestRequests.WithLabelValues("http")), 2},
		{"suggest ws", testutil.ToFloat64(m.suggestRequests.WithLabelValues("ws")), 1},
		{"cache hits", testutil.ToFloat64(m.suggestCache.WithLabelValues("hit")), 2},
		{"ai ok", testutil.ToFloat64(m.aiRequests.WithLabelValues("analyze", OutcomeOK)), 1},
		{"ai error", testutil.ToFloat64(m.aiRequests.WithLabelValues("analyze", OutcomeError)), 1},
		{"storage", testutil.ToFloat64(m.storageOps.WithLabelValues("device", "save_study", OutcomeOK)), 1},
		{"http", testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "200")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Suggest("cli", false)
	m.AIRequest("search", time.Millisecond, nil)
	m.Storage("cloud", "history", errors.New("x"))
	m.HTTPRequest("GET", 500)

	if m.Registry() != nil {
		t.Error("nil Metrics should have no registry")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.AIRequest("daily_verse", 300*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`lumina_ai_requests_total{operation="daily_verse",outcome="ok"} 1`,
		"lumina_ai_request_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
