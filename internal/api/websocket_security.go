package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/lumina/internal/logging"
)

// WebSocketSecurityConfig holds WebSocket-specific security configuration.
type WebSocketSecurityConfig struct {
	// AllowedOrigins lists exact origins or "*.example.com" patterns.
	// Empty or "*" allows all.
	AllowedOrigins []string

	// MaxMessageRate is the maximum number of messages per second per client.
	MaxMessageRate int

	// MaxMessageSize is the maximum message size in bytes.
	MaxMessageSize int64
}

// DefaultWebSocketSecurityConfig returns the limits used by /ws/suggest.
// Suggestions are requested per keystroke, so the rate is generous.
func DefaultWebSocketSecurityConfig() WebSocketSecurityConfig {
	return WebSocketSecurityConfig{
		MaxMessageRate: 20,
		MaxMessageSize: 1024,
	}
}

// isOriginAllowed checks origin against the allowed patterns. Requests
// without an Origin header come from non-browser clients and are allowed.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" || len(allowedOrigins) == 0 {
		return true
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
		if domain, ok := strings.CutPrefix(allowed, "*."); ok {
			u, err := url.Parse(origin)
			if err != nil {
				continue
			}
			host := u.Hostname()
			if strings.HasSuffix(host, "."+domain) {
				return true
			}
		}
	}
	return false
}

// CheckOriginWithConfig creates a CheckOrigin function based on config.
func CheckOriginWithConfig(config WebSocketSecurityConfig) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if isOriginAllowed(origin, config.AllowedOrigins) {
			return true
		}
		logging.SecurityEvent("websocket_origin_rejected", "websocket", "origin", origin)
		return false
	}
}

func newUpgrader(config WebSocketSecurityConfig) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     CheckOriginWithConfig(config),
	}
}
