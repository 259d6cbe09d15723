package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	cfg := AuthConfig{Enabled: true, APIKeys: []string{"first-key-0123456789", testAPIKey}}
	handler := AuthMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"public root", "/", "", http.StatusOK},
		{"public health", "/health", "", http.StatusOK},
		{"missing key", "/suggest?q=gen", "", http.StatusUnauthorized},
		{"invalid key", "/suggest?q=gen", "wrong-key-0123456789", http.StatusUnauthorized},
		{"valid key", "/suggest?q=gen", testAPIKey, http.StatusOK},
		{"second key", "/history", "first-key-0123456789", http.StatusOK},
		{"query key on websocket", "/ws/suggest?api_key=" + testAPIKey, "", http.StatusOK},
		{"query key ignored elsewhere", "/history?api_key=" + testAPIKey, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthDisabled(t *testing.T) {
	handler := AuthMiddleware(AuthConfig{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestValidateAuthConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AuthConfig
		wantErr bool
	}{
		{"disabled", AuthConfig{}, false},
		{"enabled without keys", AuthConfig{Enabled: true}, true},
		{"short key", AuthConfig{Enabled: true, APIKeys: []string{"short"}}, true},
		{"valid", AuthConfig{Enabled: true, APIKeys: []string{testAPIKey}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAuthConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAuthConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerRequiresKey(t *testing.T) {
	e := newTestEnv(t, Config{Auth: AuthConfig{Enabled: true, APIKeys: []string{testAPIKey}}})

	w, env := e.do(t, http.MethodGet, "/session", nil)
	if w.Code != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Errorf("no key = %d %+v", w.Code, env.Error)
	}

	w, _ = e.do(t, http.MethodGet, "/session", nil, "X-API-Key", testAPIKey)
	if w.Code != http.StatusOK {
		t.Errorf("with key = %d", w.Code)
	}

	w, _ = e.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("/health = %d, want public", w.Code)
	}
}
