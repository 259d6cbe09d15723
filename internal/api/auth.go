package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/FocuswithJustin/lumina/internal/logging"
)

// MinAPIKeyLength is the shortest key ValidateAuthConfig accepts.
const MinAPIKeyLength = 16

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled bool
	APIKeys []string
}

// AuthMiddleware checks for API key authentication when enabled.
// Requests must carry one of the configured keys in the X-API-Key header.
// WebSocket upgrades may pass it as the api_key query parameter instead,
// since browsers cannot set headers on them. Public endpoints (/, /health)
// always bypass authentication.
func AuthMiddleware(authCfg AuthConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authCfg.Enabled || isPublicEndpoint(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" && strings.HasPrefix(r.URL.Path, "/ws/") {
			apiKey = r.URL.Query().Get("api_key")
		}
		if apiKey == "" {
			logging.SecurityEvent("unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "missing API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing X-API-Key header")
			return
		}

		if !validKey(apiKey, authCfg.APIKeys) {
			logging.SecurityEvent("unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "invalid API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isPublicEndpoint reports whether path is reachable without a key.
func isPublicEndpoint(path string) bool {
	return path == "/" || path == "/health"
}

// ValidateAuthConfig validates the authentication configuration.
func ValidateAuthConfig(cfg AuthConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if len(cfg.APIKeys) == 0 {
		return fmt.Errorf("at least one API key is required when authentication is enabled")
	}
	for i, k := range cfg.APIKeys {
		if len(k) < MinAPIKeyLength {
			return fmt.Errorf("API key %d must be at least %d characters (got %d)", i, MinAPIKeyLength, len(k))
		}
	}
	return nil
}

// validKey compares against every configured key so the time taken does
// not reveal which one matched.
func validKey(candidate string, keys []string) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare([]byte(candidate), []byte(k))
	}
	return match == 1
}
