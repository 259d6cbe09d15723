// Package api serves the Lumina REST and WebSocket API.
package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/lumina/internal/cache"
	"github.com/FocuswithJustin/lumina/internal/logging"
	"github.com/FocuswithJustin/lumina/internal/lumina"
	"github.com/FocuswithJustin/lumina/internal/metrics"
	"github.com/FocuswithJustin/lumina/internal/server"
)

const (
	// DefaultSuggestCacheTTL applies when Config.SuggestCacheTTL is zero.
	DefaultSuggestCacheTTL = 10 * time.Minute

	suggestCacheEntries = 4096
	shutdownTimeout     = 10 * time.Second
)

// Server is the HTTP surface over a lumina.App.
type Server struct {
	cfg     Config
	app     *lumina.App
	metrics *metrics.Metrics

	suggestions *cache.TTLCache[string, []string]
	hub         *Hub
	ws          WebSocketSecurityConfig
	upgrader    *websocket.Upgrader
	limiter     *RateLimiter
	handler     http.Handler
	started     time.Time
}

// New validates cfg and builds the server. m may be nil.
func New(cfg Config, app *lumina.App, m *metrics.Metrics) (*Server, error) {
	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return nil, fmt.Errorf("TLS enabled but cert or key file not specified")
		}
		for _, f := range []string{cfg.TLS.CertFile, cfg.TLS.KeyFile} {
			if _, err := os.Stat(f); err != nil {
				return nil, fmt.Errorf("TLS file not found: %w", err)
			}
		}
	}
	ttl := cfg.SuggestCacheTTL
	if ttl <= 0 {
		ttl = DefaultSuggestCacheTTL
	}

	ws := DefaultWebSocketSecurityConfig()
	ws.AllowedOrigins = cfg.AllowedOrigins

	s := &Server{
		cfg:         cfg,
		app:         app,
		metrics:     m,
		suggestions: cache.New[string, []string](ttl, suggestCacheEntries),
		hub:         NewHub(),
		ws:          ws,
		upgrader:    newUpgrader(ws),
		started:     time.Now(),
	}
	if cfg.RateLimitRequests > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		})
	}
	s.handler = s.buildHandler()
	return s, nil
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler { return s.handler }

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/suggest", s.handleSuggest)
	mux.HandleFunc("/ws/suggest", s.handleSuggestWS)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/study", s.handleStudy)
	mux.HandleFunc("/submit", s.handleSubmit)
	mux.HandleFunc("/context", s.handleContext)
	mux.HandleFunc("/daily", s.handleDaily)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/favorites", s.handleFavorites)
	mux.HandleFunc("/prayers", s.handlePrayers)
	mux.HandleFunc("/prayers/generate", s.handleGeneratePrayer)
	mux.HandleFunc("/prayers/{id}", s.handlePrayerByID)
	mux.HandleFunc("/session", s.handleSession)
	mux.HandleFunc("/session/preferences", s.handlePreferences)
	mux.Handle("/metrics", s.metrics.Handler())

	return mux
}

// buildHandler wraps the routes, innermost first: security headers, auth,
// rate limiting, CORS, metrics, then request logging outermost.
func (s *Server) buildHandler() http.Handler {
	var handler http.Handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), s.routes())

	if s.cfg.Auth.Enabled {
		handler = AuthMiddleware(s.cfg.Auth, handler)
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", true,
			"keys", len(s.cfg.Auth.APIKeys))
	} else {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", false,
			"note", "all requests allowed")
	}

	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
		logging.Info("rate limiting enabled",
			"requests_per_minute", s.limiter.config.RequestsPerMinute,
			"burst_size", s.limiter.config.BurstSize)
	}

	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*) - consider restricting for production")
	}

	handler = s.countRequests(handler)
	handler = server.TimingMiddleware(handler)
	return logging.CombinedMiddleware(handler)
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.code == 0 {
		r.code = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.code == 0 {
		r.code = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) countRequests(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		code := rec.code
		if code == 0 {
			code = http.StatusOK
		}
		s.metrics.HTTPRequest(r.Method, code)
	})
}

// Serve runs the hub and serves on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)
	defer s.Close()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	protocol := "http"
	if s.cfg.TLS.Enabled {
		protocol = "https"
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}
	port := s.cfg.Port
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}
	logging.ServerStartup("rest_api", protocol, port, "version", s.cfg.Version)

	errc := make(chan error, 1)
	go func() {
		if s.cfg.TLS.Enabled {
			errc <- srv.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
			return
		}
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down", "timeout", shutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	stopHub()
	return srv.Shutdown(shutdownCtx)
}

// ListenAndServe listens on the configured port and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Close releases background resources. It is safe to call more than once.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}
