package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	lerrors "github.com/FocuswithJustin/lumina/core/errors"
	"github.com/FocuswithJustin/lumina/core/sqlite"
	"github.com/FocuswithJustin/lumina/core/study"
	"github.com/FocuswithJustin/lumina/core/suggest"
	"github.com/FocuswithJustin/lumina/internal/ai"
	"github.com/FocuswithJustin/lumina/internal/logging"
	"github.com/FocuswithJustin/lumina/internal/lumina"
	"github.com/FocuswithJustin/lumina/internal/session"
	"github.com/FocuswithJustin/lumina/internal/storage"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	Uptime           string `json:"uptime"`
	StorageDriver    string `json:"storage_driver"`
	WebSocketClients int    `json:"websocket_clients"`
}

// StudyRequest is the body of POST /study and POST /submit.
type StudyRequest struct {
	Query      string `json:"query"`
	Comparison string `json:"comparison,omitempty"`
	// IncludeKJV defaults to true when omitted.
	IncludeKJV *bool `json:"includeKjv,omitempty"`
}

func (r StudyRequest) includeKJV() bool {
	return r.IncludeKJV == nil || *r.IncludeKJV
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query"`
}

// PrayerRequest is the body of POST /prayers/generate. Save keeps the
// generated prayer in the library.
type PrayerRequest struct {
	Character string `json:"character,omitempty"`
	Theme     string `json:"theme,omitempty"`
	Save      bool   `json:"save,omitempty"`
}

// FavoriteResult is returned by POST /favorites.
type FavoriteResult struct {
	Favorited bool          `json:"favorited"`
	Favorites []study.Study `json:"favorites"`
}

// DailyVerse is returned by GET /daily.
type DailyVerse struct {
	Reference   string   `json:"reference"`
	Suggestions []string `json:"suggestions"`
}

// SessionInfo describes the current session.
type SessionInfo struct {
	SignedIn    bool         `json:"signedIn"`
	Mode        storage.Mode `json:"mode,omitempty"`
	UID         string       `json:"uid,omitempty"`
	DisplayName string       `json:"displayName,omitempty"`
	PhotoURL    string       `json:"photoUrl,omitempty"`
}

// LoginRequest is the body of POST /session.
type LoginRequest struct {
	Mode storage.Mode `json:"mode"`
}

// PreferencesInfo is the body and response of /session/preferences. The
// stored key is never echoed back; HasAPIKey reports whether one is set.
type PreferencesInfo struct {
	UseCustom bool   `json:"useCustom"`
	APIKey    string `json:"apiKey,omitempty"`
	HasAPIKey bool   `json:"hasApiKey"`
	Model     string `json:"model,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"name":    "Lumina API",
		"version": s.cfg.Version,
		"endpoints": []string{
			"GET /health",
			"GET /suggest?q=",
			"WS /ws/suggest",
			"POST /search",
			"POST /study",
			"POST /submit",
			"GET /context?ref=",
			"GET /daily",
			"GET|POST /history",
			"GET|POST /favorites",
			"GET|POST /prayers",
			"POST /prayers/generate",
			"DELETE /prayers/{id}",
			"GET|POST|DELETE /session",
			"GET|POST /session/preferences",
			"GET /metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	respond(w, http.StatusOK, HealthInfo{
		Status:           "healthy",
		Version:          s.cfg.Version,
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		StorageDriver:    sqlite.DriverType(),
		WebSocketClients: s.hub.ClientCount(),
	})
}

// suggest resolves input through the TTL cache and counts the lookup.
func (s *Server) suggest(input, transport string) []string {
	out, hit := s.suggestions.GetOrCompute(suggest.Normalize(input), func() []string {
		return suggest.Resolve(input)
	})
	s.metrics.Suggest(transport, hit)
	return out
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	out := s.suggest(cleanInput(r.URL.Query().Get("q")), "http")
	respondList(w, out, len(out))
}

func (s *Server) handleSuggestWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		logging.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(s.ws.MaxMessageSize)

	c := newClient(s.hub, conn, s.ws.MaxMessageRate)
	if !s.hub.join(c) {
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump(func(input string) []string { return s.suggest(input, "ws") })
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	results, err := s.app.Search(r.Context(), cleanInput(req.Query))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondList(w, results, len(results))
}

func (s *Server) handleStudy(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req StudyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.app.Study(r.Context(), cleanInput(req.Query), cleanInput(req.Comparison), req.includeKJV())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.announceHistory(r)
	respond(w, http.StatusOK, st)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req StudyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.app.Submit(r.Context(), cleanInput(req.Query), cleanInput(req.Comparison), req.includeKJV())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Study != nil {
		s.announceHistory(r)
	}
	respond(w, http.StatusOK, res)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	ctx, err := s.app.Context(r.Context(), cleanInput(r.URL.Query().Get("ref")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, ctx)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	ref := s.app.DailyVerse(r.Context())
	respond(w, http.StatusOK, DailyVerse{Reference: ref, Suggestions: s.suggest(ref, "http")})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		history, err := s.app.History(r.Context())
		if !listOK(w, r, err) {
			return
		}
		respondList(w, history, len(history))
		return
	}

	var st study.Study
	if err := decodeJSON(w, r, &st); err != nil {
		writeError(w, r, err)
		return
	}
	history, err := s.app.SaveStudy(r.Context(), st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.hub.Broadcast(Event{Type: "library_updated", Collection: "history", Total: len(history)})
	respondList(w, history, len(history))
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		favs, err := s.app.Favorites(r.Context())
		if !listOK(w, r, err) {
			return
		}
		respondList(w, favs, len(favs))
		return
	}

	var st study.Study
	if err := decodeJSON(w, r, &st); err != nil {
		writeError(w, r, err)
		return
	}
	favs, err := s.app.ToggleFavorite(r.Context(), st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.hub.Broadcast(Event{Type: "library_updated", Collection: "favorites", Total: len(favs)})
	respond(w, http.StatusOK, FavoriteResult{Favorited: storage.IsFavorited(st, favs), Favorites: favs})
}

func (s *Server) handlePrayers(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		prayers, err := s.app.Prayers(r.Context())
		if !listOK(w, r, err) {
			return
		}
		respondList(w, prayers, len(prayers))
		return
	}

	var p study.Prayer
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	if err := ValidateID(p.ID); err != nil {
		writeError(w, r, err)
		return
	}
	prayers, err := s.app.SavePrayer(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.hub.Broadcast(Event{Type: "library_updated", Collection: "prayers", Total: len(prayers)})
	respondList(w, prayers, len(prayers))
}

func (s *Server) handleGeneratePrayer(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req PrayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.app.GeneratePrayer(r.Context(), cleanInput(req.Character), cleanInput(req.Theme))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Save {
		prayers, err := s.app.SavePrayer(r.Context(), *p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.hub.Broadcast(Event{Type: "library_updated", Collection: "prayers", Total: len(prayers)})
	}
	respond(w, http.StatusCreated, p)
}

func (s *Server) handlePrayerByID(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodDelete) {
		return
	}
	id := r.PathValue("id")
	if err := ValidateID(id); err != nil {
		writeError(w, r, err)
		return
	}
	prayers, err := s.app.DeletePrayer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.hub.Broadcast(Event{Type: "library_updated", Collection: "prayers", Total: len(prayers)})
	respondList(w, prayers, len(prayers))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost, http.MethodDelete) {
		return
	}
	sess := s.app.Session()

	switch r.Method {
	case http.MethodPost:
		var req LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := sess.Login(r.Context(), req.Mode); err != nil {
			writeError(w, r, err)
			return
		}
	case http.MethodDelete:
		if err := sess.Teardown(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
	}

	info := SessionInfo{}
	if u, ok := sess.User(); ok {
		info = SessionInfo{SignedIn: true, Mode: u.Mode, UID: u.UID, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL}
	}
	respond(w, http.StatusOK, info)
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	sess := s.app.Session()

	if r.Method == http.MethodPost {
		var req PreferencesInfo
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		p := session.Preferences{UseCustom: req.UseCustom, APIKey: req.APIKey, Model: req.Model}
		if req.APIKey == "" && req.HasAPIKey {
			// keep the stored key when the client only toggles settings
			p.APIKey = sess.Preferences().APIKey
		}
		if err := sess.SetPreferences(r.Context(), p); err != nil {
			writeError(w, r, err)
			return
		}
	}

	p := sess.Preferences()
	respond(w, http.StatusOK, PreferencesInfo{UseCustom: p.UseCustom, HasAPIKey: p.APIKey != "", Model: p.Model})
}

// announceHistory tells connected clients the history changed.
func (s *Server) announceHistory(r *http.Request) {
	history, err := s.app.History(r.Context())
	if err != nil {
		return
	}
	s.hub.Broadcast(Event{Type: "library_updated", Collection: "history", Total: len(history)})
}

// listOK handles the error of a library read. Storage failures degrade to
// an empty list at the library level, so only session errors are reported.
func listOK(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, lerrors.ErrUnavailable) {
		logging.WarnContext(r.Context(), "library read degraded", "error", err)
		return true
	}
	writeError(w, r, err)
	return false
}

// allowMethods writes 405 unless r uses one of methods.
func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	allow := methods[0]
	for _, m := range methods[1:] {
		allow += ", " + m
	}
	w.Header().Set("Allow", allow)
	respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only "+allow+" allowed")
	return false
}

// writeError maps err onto a status code and error code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "code", code, "error", err)
	}
	respondError(w, status, code, message)
}

func classify(err error) (status int, code, message string) {
	var (
		pf *ai.ParseFailure
		ve *lerrors.ValidationError
	)
	switch {
	case errors.Is(err, session.ErrNotSignedIn):
		return http.StatusUnauthorized, "NOT_SIGNED_IN", "Sign in as a guest or with Google first"
	case errors.Is(err, ai.ErrNoAPIKey):
		return http.StatusServiceUnavailable, "AI_NOT_CONFIGURED", "No AI provider key is configured"
	case errors.Is(err, lumina.ErrAnalysisFailed):
		return http.StatusBadGateway, "ANALYSIS_FAILED", lumina.AnalysisFailedMessage
	case errors.As(err, &pf):
		return http.StatusBadGateway, "AI_RESPONSE_INVALID", "The AI provider returned an unusable response"
	case errors.Is(err, lerrors.ErrUnavailable):
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "A backing service is unavailable. Please try again."
	case errors.As(err, &ve):
		return http.StatusBadRequest, "INVALID_INPUT", ve.Error()
	case errors.Is(err, lerrors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT", err.Error()
	case errors.Is(err, lerrors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func respondList(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Total: total, Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
