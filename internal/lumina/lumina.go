// Package lumina wires the session, the AI service and the library into the
// user flows: submitting a query, studying a passage, and managing
// favorites, history and prayers.
package lumina

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FocuswithJustin/lumina/core/study"
	"github.com/FocuswithJustin/lumina/internal/ai"
	"github.com/FocuswithJustin/lumina/internal/logging"
	"github.com/FocuswithJustin/lumina/internal/session"
	"github.com/FocuswithJustin/lumina/internal/storage"
)

// AnalysisFailedMessage is shown to the user when a study cannot be
// generated.
const AnalysisFailedMessage = "Unable to analyze passage. Please try again."

// ErrAnalysisFailed wraps any failure of the study step.
var ErrAnalysisFailed = errors.New("analysis failed")

const dailyKey = "lumina_daily_verse"

// dailyRecord caches the daily verse for one calendar date.
type dailyRecord struct {
	Date      string `json:"date"`
	Reference string `json:"reference"`
}

// Result is the outcome of Submit: search results to choose from, or a
// finished study.
type Result struct {
	Results []study.SearchResult `json:"results,omitempty"`
	Study   *study.Study         `json:"study,omitempty"`
}

// App is safe for concurrent use.
type App struct {
	session *session.Session
	library *storage.Library
	ai      *ai.Service
	device  storage.Backend
	now     func() time.Time
}

// Option configures an App.
type Option func(*App)

// WithClock overrides the clock used for the daily verse.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New builds an App. device holds the daily verse cache.
func New(sess *session.Session, lib *storage.Library, svc *ai.Service, device storage.Backend, opts ...Option) *App {
	a := &App{session: sess, library: lib, ai: svc, device: device, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CredentialSource resolves AI credentials from sess on every call, falling
// back to defaults.
func CredentialSource(sess *session.Session, defaults session.Credentials) ai.CredentialSource {
	return func() session.Credentials { return sess.Credentials(defaults) }
}

// Session returns the session the App acts for.
func (a *App) Session() *session.Session { return a.session }

// Library returns the underlying library.
func (a *App) Library() *storage.Library { return a.library }

// Submit runs the search step for a plain query and the study step for a
// comparison. When the search fails or finds nothing, it falls through to
// the study step.
func (a *App) Submit(ctx context.Context, query, comparison string, includeKJV bool) (*Result, error) {
	if _, err := a.session.RequireUser(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(comparison) == "" {
		results, err := a.ai.Search(ctx, query)
		switch {
		case err != nil:
			logging.WarnContext(ctx, "search failed, analyzing directly", "query", query, "error", err)
		case len(results) > 0:
			return &Result{Results: results}, nil
		}
	}

	s, err := a.Study(ctx, query, comparison, includeKJV)
	if err != nil {
		return nil, err
	}
	return &Result{Study: s}, nil
}

// Search runs only the search step.
func (a *App) Search(ctx context.Context, query string) ([]study.SearchResult, error) {
	if _, err := a.session.RequireUser(); err != nil {
		return nil, err
	}
	return a.ai.Search(ctx, query)
}

// Study analyzes query and records it in history. A history failure is
// logged and does not fail the study.
func (a *App) Study(ctx context.Context, query, comparison string, includeKJV bool) (*study.Study, error) {
	u, err := a.session.RequireUser()
	if err != nil {
		return nil, err
	}

	s, err := a.ai.Analyze(ctx, query, comparison, includeKJV)
	if err != nil {
		logging.ErrorContext(ctx, "analysis failed", "query", query, "comparison", comparison, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	if _, err := a.library.SaveStudy(ctx, u, *s); err != nil {
		logging.WarnContext(ctx, "history not saved", "reference", s.VerseReference, "error", err)
	}
	return s, nil
}

// Context returns the passages around ref.
func (a *App) Context(ctx context.Context, ref string) (*study.PassageContext, error) {
	if _, err := a.session.RequireUser(); err != nil {
		return nil, err
	}
	return a.ai.PassageContext(ctx, ref)
}

// DailyVerse returns today's verse reference, asking the model at most once
// per calendar date. The fallback reference is never cached.
func (a *App) DailyVerse(ctx context.Context) string {
	today := a.now()
	date := today.Format(time.DateOnly)

	var cached dailyRecord
	if ok, err := storage.GetJSON(ctx, a.device, dailyKey, &cached); err != nil {
		logging.StorageError(a.device.Name(), "daily_verse", err)
	} else if ok && cached.Date == date && cached.Reference != "" {
		return cached.Reference
	}

	ref, err := a.ai.DailyVerse(ctx, today)
	if err != nil {
		logging.WarnContext(ctx, "daily verse unavailable, using fallback", "error", err)
		return ref
	}
	if err := storage.PutJSON(ctx, a.device, dailyKey, dailyRecord{Date: date, Reference: ref}); err != nil {
		logging.StorageError(a.device.Name(), "daily_verse", err)
	}
	return ref
}

// History returns the current user's study history.
func (a *App) History(ctx context.Context) ([]study.Study, error) {
	u, err := a.session.RequireUser()
	if err != nil {
		return nil, err
	}
	return a.library.History(ctx, u)
}

// SaveStudy records s in history without analyzing it.
func (a *App) SaveStudy(ctx context.Context, s study.Study) ([]study.Study, error) {
	u, err := a.session.RequireUser()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return a.library.SaveStudy(ctx, u, s)
}

// Favorites returns the current user's favorites.
func (a *App) Favorites(ctx context.Context) ([]study.Study, error) {
	u, err := a.session.RequireUser()
	if err != nil {
		return nil, err
	}
	return a.library.Favorites(ctx, u)
}

// ToggleFavorite adds s to favorites, or removes it when already present.
func (a *App) ToggleFavorite(ctx context.Context, s study.Study) ([]study.Study, error) {
	u, err := a.session.RequireUser()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return a.library.ToggleFavorite(ctx, u, s)
}

// IsFavorited reports whether s is among the current user's favorites.
func (a *App) IsFavorited(ctx context.Context, s study.Study) (bool, error) {
	favs, err := a.Favorites(ctx)
	if err != nil {
		return false, err
	}
	return storage.IsFavorited(s, favs), nil
}

// Prayers returns the current user's saved prayers.
func (a *App) Prayers(ctx context.Context) ([]study.Prayer, error) {
	u, err := a.session.RequireUser()
	if err != nil {
		return nil, err
	}
	return a.library.SavedPrayers(ctx, u)
}

// GeneratePrayer writes a new prayer. It is not saved until SavePrayer.
func (a *App) GeneratePrayer(ctx context.Context, character, theme string) (*study.Prayer, error) {
	if _, err := a.session.RequireUser(); err != nil {
		return nil, err
	}
	return a.ai.GeneratePrayer(ctx, character, theme)
}

// SavePrayer keeps p; saving an id twice is a no-op.
func (a *App) SavePrayer(ctx context.Context, p study.Prayer) ([]study.Prayer, error) {
	u, err := a.session.RequireUser()
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return a.library.SavePrayer(ctx, u, p)
}

// DeletePrayer removes the prayer with id.
func (a *App) DeletePrayer(ctx context.Context, id string) ([]study.Prayer, error) {
	u, err := a.session.RequireUser()
	if err != nil {
		return nil, err
	}
	return a.library.DeletePrayer(ctx, u, id)
}
