package storage

import (
	"context"
	"net/url"
	"sync"
	"time"

	lerrors "github.com/FocuswithJustin/lumina/core/errors"
	"github.com/FocuswithJustin/lumina/core/study"
	"github.com/FocuswithJustin/lumina/internal/logging"
	"github.com/FocuswithJustin/lumina/internal/metrics"
)

// History bounds per backend.
const (
	DeviceHistoryLimit = 20
	CloudHistoryLimit  = 50
)

// Device document keys.
const (
	deviceHistoryKey   = "lumina_study_history"
	deviceFavoritesKey = "lumina_favorites"
	devicePrayersKey   = "lumina_saved_prayers"
)

// Library is the persistence adapter. Every operation routes to the cloud
// backend for signed-in Google users and to the device backend otherwise,
// and returns the updated collection.
//
// Storage is best effort: on a backend failure the error is logged and
// returned together with an empty collection, so callers may ignore it.
type Library struct {
	device Backend
	cloud  Backend

	// one mutex per backend guards read-modify-write cycles
	deviceMu sync.Mutex
	cloudMu  sync.Mutex

	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Library.
type Option func(*Library)

// WithMetrics records every operation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Library) { l.metrics = m }
}

// WithClock overrides the timestamp source used by SaveStudy.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// NewLibrary builds a Library. cloud may be nil, in which case Google users
// are served from the device backend.
func NewLibrary(device, cloud Backend, opts ...Option) *Library {
	l := &Library{device: device, cloud: cloud, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type collection int

const (
	historyCollection collection = iota
	favoritesCollection
	prayersCollection
)

func (c collection) String() string {
	switch c {
	case historyCollection:
		return "history"
	case favoritesCollection:
		return "favorites"
	default:
		return "prayers"
	}
}

// route picks the backend, its lock, the document key and history bound.
func (l *Library) route(u UserContext, c collection) (Backend, *sync.Mutex, string, int) {
	if u.UsesCloud() && l.cloud != nil {
		return l.cloud, &l.cloudMu, "users/" + url.PathEscape(u.UID) + "/" + c.String(), CloudHistoryLimit
	}
	key := deviceHistoryKey
	switch c {
	case favoritesCollection:
		key = deviceFavoritesKey
	case prayersCollection:
		key = devicePrayersKey
	}
	return l.device, &l.deviceMu, key, DeviceHistoryLimit
}

// History returns the user's studies, most recent first.
func (l *Library) History(ctx context.Context, u UserContext) ([]study.Study, error) {
	b, mu, key, _ := l.route(u, historyCollection)
	mu.Lock()
	defer mu.Unlock()

	items, err := load[study.Study](ctx, b, key)
	return finish(l, b, "history", items, err)
}

// SaveStudy stamps s with the current time, drops any entry with the same
// identity key, prepends it and keeps the most recent entries up to the
// backend's limit.
func (l *Library) SaveStudy(ctx context.Context, u UserContext, s study.Study) ([]study.Study, error) {
	b, mu, key, limit := l.route(u, historyCollection)
	mu.Lock()
	defer mu.Unlock()

	history, err := load[study.Study](ctx, b, key)
	if err != nil {
		return finish[study.Study](l, b, "save_study", nil, err)
	}

	s.Timestamp = l.now().UnixMilli()
	id := s.Key()
	updated := make([]study.Study, 0, len(history)+1)
	updated = append(updated, s)
	for i := range history {
		if history[i].Key() != id {
			updated = append(updated, history[i])
		}
	}
	if len(updated) > limit {
		updated = updated[:limit]
	}

	err = store(ctx, b, key, updated)
	return finish(l, b, "save_study", updated, err)
}

// Favorites returns the user's favorited studies.
func (l *Library) Favorites(ctx context.Context, u UserContext) ([]study.Study, error) {
	b, mu, key, _ := l.route(u, favoritesCollection)
	mu.Lock()
	defer mu.Unlock()

	items, err := load[study.Study](ctx, b, key)
	return finish(l, b, "favorites", items, err)
}

// ToggleFavorite removes s from favorites if an entry with the same
// identity key exists, otherwise prepends it.
func (l *Library) ToggleFavorite(ctx context.Context, u UserContext, s study.Study) ([]study.Study, error) {
	b, mu, key, _ := l.route(u, favoritesCollection)
	mu.Lock()
	defer mu.Unlock()

	favs, err := load[study.Study](ctx, b, key)
	if err != nil {
		return finish[study.Study](l, b, "toggle_favorite", nil, err)
	}

	idx := indexOf(favs, s.Key())
	var updated []study.Study
	if idx >= 0 {
		updated = append(append(updated, favs[:idx]...), favs[idx+1:]...)
	} else {
		updated = append([]study.Study{s}, favs...)
	}

	err = store(ctx, b, key, updated)
	return finish(l, b, "toggle_favorite", updated, err)
}

// IsFavorited reports whether favorites holds an entry with s's identity key.
func IsFavorited(s study.Study, favorites []study.Study) bool {
	return indexOf(favorites, s.Key()) >= 0
}

// SavedPrayers returns the user's prayers, most recent first.
func (l *Library) SavedPrayers(ctx context.Context, u UserContext) ([]study.Prayer, error) {
	b, mu, key, _ := l.route(u, prayersCollection)
	mu.Lock()
	defer mu.Unlock()

	items, err := load[study.Prayer](ctx, b, key)
	return finish(l, b, "prayers", items, err)
}

// SavePrayer prepends p unless a prayer with the same id is already saved,
// in which case the collection is returned unchanged.
func (l *Library) SavePrayer(ctx context.Context, u UserContext, p study.Prayer) ([]study.Prayer, error) {
	b, mu, key, _ := l.route(u, prayersCollection)
	mu.Lock()
	defer mu.Unlock()

	prayers, err := load[study.Prayer](ctx, b, key)
	if err != nil {
		return finish[study.Prayer](l, b, "save_prayer", nil, err)
	}
	for _, existing := range prayers {
		if existing.ID == p.ID {
			return finish(l, b, "save_prayer", prayers, nil)
		}
	}

	updated := append([]study.Prayer{p}, prayers...)
	err = store(ctx, b, key, updated)
	return finish(l, b, "save_prayer", updated, err)
}

// DeletePrayer removes the prayer with id, if any.
func (l *Library) DeletePrayer(ctx context.Context, u UserContext, id string) ([]study.Prayer, error) {
	b, mu, key, _ := l.route(u, prayersCollection)
	mu.Lock()
	defer mu.Unlock()

	prayers, err := load[study.Prayer](ctx, b, key)
	if err != nil {
		return finish[study.Prayer](l, b, "delete_prayer", nil, err)
	}
	updated := make([]study.Prayer, 0, len(prayers))
	for _, p := range prayers {
		if p.ID != id {
			updated = append(updated, p)
		}
	}

	err = store(ctx, b, key, updated)
	return finish(l, b, "delete_prayer", updated, err)
}

// finish logs and counts the operation. On error the collection is
// replaced by an empty one and the cause is wrapped in an
// *UnavailableError naming the backend.
func finish[T any](l *Library, b Backend, op string, items []T, err error) ([]T, error) {
	l.metrics.Storage(b.Name(), op, err)
	if err != nil {
		logging.StorageError(b.Name(), op, err)
		return []T{}, lerrors.NewUnavailable(b.Name(), op, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// indexOf returns the position of the entry whose identity key is id, or -1.
func indexOf(list []study.Study, id string) int {
	for i := range list {
		if list[i].Key() == id {
			return i
		}
	}
	return -1
}

func load[T any](ctx context.Context, b Backend, key string) ([]T, error) {
	var items []T
	if _, err := GetJSON(ctx, b, key, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func store[T any](ctx context.Context, b Backend, key string, items []T) error {
	return PutJSON(ctx, b, key, items)
}
