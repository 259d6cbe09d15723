package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("LUMINA_HOME", home)
	for _, name := range append(apiKeyEnv, "LUMINA_MODEL", "LUMINA_DATA_DIR") {
		t.Setenv(name, "")
	}
	return home
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != filepath.Join(home, "data") {
		t.Errorf("DataDir = %q, want under %q", cfg.DataDir, home)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.AI.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.AI.Model, DefaultModel)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load should fail for an explicit path that does not exist")
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "lumina.yaml")
	yaml := `data_dir: /srv/lumina
server:
  port: 9090
  allowed_origins: [https://lumina.example]
  suggest_cache_ttl: 30s
log:
  level: debug
  format: text
ai:
  model: gemini-2.5-pro
  timeout: 15s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/srv/lumina" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://lumina.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.SuggestCacheTTL != 30*time.Second {
		t.Errorf("SuggestCacheTTL = %v, want 30s", cfg.Server.SuggestCacheTTL)
	}
	// unset keys keep their defaults
	if cfg.Server.RateLimitRequests != 120 {
		t.Errorf("RateLimitRequests = %d, want default 120", cfg.Server.RateLimitRequests)
	}
	if cfg.Log.Format != "text" || cfg.AI.Model != "gemini-2.5-pro" || cfg.AI.Timeout != 15*time.Second {
		t.Errorf("unexpected log/ai config: %+v %+v", cfg.Log, cfg.AI)
	}
}

func TestLoadInvalid(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	tests := map[string]string{
		"bad yaml":          "server: [",
		"port out of range": "server:\n  port: 70000\n",
		"auth without keys": "server:\n  auth_enabled: true\n",
		"negative rate":     "server:\n  rate_limit_requests: -1\n",
		"tls cert only":     "server:\n  tls_cert_file: /tmp/cert.pem\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("Load(%s) succeeded, want error", name)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("API_KEY", "generic-key")
	t.Setenv("LUMINA_MODEL", "custom-model")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AI.APIKey != "gemini-key" {
		t.Errorf("APIKey = %q, want GEMINI_API_KEY to win over API_KEY", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "custom-model" {
		t.Errorf("Model = %q, want custom-model", cfg.AI.Model)
	}

	t.Setenv("LUMINA_API_KEY", "lumina-key")
	cfg.ApplyEnv()
	if cfg.AI.APIKey != "lumina-key" {
		t.Errorf("APIKey = %q, want LUMINA_API_KEY first", cfg.AI.APIKey)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Port = 7000
	cfg.Server.APIKeys = []string{"0123456789abcdef"}

	path := filepath.Join(t.TempDir(), "nested", "lumina.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Server.Port != 7000 || len(loaded.Server.APIKeys) != 1 {
		t.Errorf("round trip lost values: %+v", loaded.Server)
	}
	if loaded.Server.SuggestCacheTTL != cfg.Server.SuggestCacheTTL {
		t.Errorf("SuggestCacheTTL = %v, want %v", loaded.Server.SuggestCacheTTL, cfg.Server.SuggestCacheTTL)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/lumina")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "lumina") {
		t.Errorf("ExpandPath = %q", got)
	}
	if got, _ := ExpandPath("/abs"); got != "/abs" {
		t.Errorf("ExpandPath(/abs) = %q", got)
	}
}
