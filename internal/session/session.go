// Package session holds who is signed in and their AI preferences. A
// Session is constructed explicitly and persisted in the device store, so
// restarting the CLI or server restores the previous sign-in.
package session

import (
	"context"
	"strings"
	"sync"

	lerrors "github.com/FocuswithJustin/lumina/core/errors"
	"github.com/FocuswithJustin/lumina/internal/logging"
	"github.com/FocuswithJustin/lumina/internal/storage"
)

// Device store keys.
const (
	authKey        = "lumina_auth"
	preferencesKey = "lumina_ai_preferences"
)

// ErrNotSignedIn is returned by operations that need a user.
var ErrNotSignedIn = lerrors.Wrap(lerrors.ErrUnauthorized, "not signed in")

// Preferences are the user's AI overrides. They apply only when UseCustom
// is set.
type Preferences struct {
	UseCustom bool   `json:"useCustom"`
	APIKey    string `json:"apiKey,omitempty"`
	Model     string `json:"model,omitempty"`
}

// Credentials select the provider key and model for one AI call.
type Credentials struct {
	APIKey string
	Model  string
}

// Session is safe for concurrent use.
type Session struct {
	store    storage.Backend
	provider IdentityProvider

	mu    sync.RWMutex
	user  *storage.UserContext
	prefs Preferences
}

// Option configures a Session.
type Option func(*Session)

// WithIdentityProvider replaces the mock Google sign-in.
func WithIdentityProvider(p IdentityProvider) Option {
	return func(s *Session) { s.provider = p }
}

// New returns a signed-out session persisted in store. Call Init to
// restore a previous sign-in.
func New(store storage.Backend, opts ...Option) *Session {
	s := &Session{store: store, provider: MockGoogle{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init restores the persisted sign-in and preferences. A corrupt record
// is logged and treated as signed out.
func (s *Session) Init(ctx context.Context) error {
	var user storage.UserContext
	ok, err := storage.GetJSON(ctx, s.store, authKey, &user)
	if err != nil {
		logging.StorageError(s.store.Name(), "restore_session", err)
	}

	var prefs Preferences
	if _, perr := storage.GetJSON(ctx, s.store, preferencesKey, &prefs); perr != nil {
		logging.StorageError(s.store.Name(), "restore_preferences", perr)
		if err == nil {
			err = perr
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	if ok && user.Mode.Valid() {
		s.user = &user
	}
	s.prefs = prefs
	return err
}

// Login signs in with mode. A failed Google sign-in falls back to a guest
// session, which is returned together with a nil error.
func (s *Session) Login(ctx context.Context, mode storage.Mode) (storage.UserContext, error) {
	var user storage.UserContext
	switch mode {
	case storage.ModeGuest:
		user = storage.UserContext{Mode: storage.ModeGuest}
	case storage.ModeGoogle:
		id, err := s.provider.SignIn(ctx)
		if err != nil {
			logging.WarnContext(ctx, "google sign-in failed, continuing as guest", "error", err)
			user = storage.UserContext{Mode: storage.ModeGuest}
			break
		}
		user = storage.UserContext{
			Mode:        storage.ModeGoogle,
			UID:         id.UID,
			DisplayName: id.DisplayName,
			PhotoURL:    id.PhotoURL,
		}
	default:
		return storage.UserContext{}, lerrors.NewValidation("mode", "must be GUEST or GOOGLE")
	}

	if err := storage.PutJSON(ctx, s.store, authKey, user); err != nil {
		return storage.UserContext{}, err
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	logging.InfoContext(ctx, "signed_in", "mode", string(user.Mode), "uid", user.UID)
	return user, nil
}

// Teardown signs out and clears the persisted sign-in. Preferences are kept.
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	return s.store.Delete(ctx, authKey)
}

// User returns the signed-in user.
func (s *Session) User() (storage.UserContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return storage.UserContext{}, false
	}
	return *s.user, true
}

// RequireUser is User with ErrNotSignedIn for the signed-out case.
func (s *Session) RequireUser() (storage.UserContext, error) {
	u, ok := s.User()
	if !ok {
		return storage.UserContext{}, ErrNotSignedIn
	}
	return u, nil
}

// Preferences returns the stored AI overrides.
func (s *Session) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// SetPreferences persists new AI overrides.
func (s *Session) SetPreferences(ctx context.Context, p Preferences) error {
	p.Model = strings.TrimSpace(p.Model)
	if err := storage.PutJSON(ctx, s.store, preferencesKey, p); err != nil {
		return err
	}
	s.mu.Lock()
	s.prefs = p
	s.mu.Unlock()
	return nil
}

// Credentials resolves the key and model for an AI call: the custom key
// and model when enabled and non-empty, the process defaults otherwise.
func (s *Session) Credentials(defaults Credentials) Credentials {
	p := s.Preferences()
	c := defaults
	if !p.UseCustom {
		return c
	}
	if p.APIKey != "" {
		c.APIKey = p.APIKey
	}
	if p.Model != "" {
		c.Model = p.Model
	}
	return c
}
