// Package export moves a user's library in and out of a portable XML
// document, optionally xz-compressed.
package export

import (
	"context"
	"fmt"

	"github.com/FocuswithJustin/lumina/core/study"
)

// FormatVersion is written to the version attribute of <lumina>. Read
// rejects documents from a newer format.
const FormatVersion = 1

// Library is a snapshot of one user's collections, each most recent first.
type Library struct {
	History   []study.Study
	Favorites []study.Study
	Prayers   []study.Prayer
}

// Source reads the signed-in user's collections.
type Source interface {
	History(ctx context.Context) ([]study.Study, error)
	Favorites(ctx context.Context) ([]study.Study, error)
	Prayers(ctx context.Context) ([]study.Prayer, error)
}

// Target writes into the signed-in user's collections.
type Target interface {
	SaveStudy(ctx context.Context, s study.Study) ([]study.Study, error)
	Favorites(ctx context.Context) ([]study.Study, error)
	ToggleFavorite(ctx context.Context, s study.Study) ([]study.Study, error)
	Prayers(ctx context.Context) ([]study.Prayer, error)
	SavePrayer(ctx context.Context, p study.Prayer) ([]study.Prayer, error)
}

// Snapshot collects the current collections of src.
func Snapshot(ctx context.Context, src Source) (*Library, error) {
	history, err := src.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	favs, err := src.Favorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("read favorites: %w", err)
	}
	prayers, err := src.Prayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("read prayers: %w", err)
	}
	return &Library{History: history, Favorites: favs, Prayers: prayers}, nil
}

// Counts reports how many entries Import wrote per collection.
type Counts struct {
	History   int
	Favorites int
	Prayers   int
}

// Import re-saves lib through dst. History and prayers are applied oldest
// first so the resulting order matches the export. Favorites already
// present are left alone, since toggling them would remove them. Prayers
// already saved under the same id are not counted.
func Import(ctx context.Context, dst Target, lib *Library) (Counts, error) {
	var n Counts

	for i := len(lib.History) - 1; i >= 0; i-- {
		if _, err := dst.SaveStudy(ctx, lib.History[i]); err != nil {
			return n, fmt.Errorf("import history %q: %w", lib.History[i].VerseReference, err)
		}
		n.History++
	}

	favs, err := dst.Favorites(ctx)
	if err != nil {
		return n, fmt.Errorf("read favorites: %w", err)
	}
	for i := len(lib.Favorites) - 1; i >= 0; i-- {
		s := lib.Favorites[i]
		if containsStudy(favs, &s) {
			continue
		}
		if favs, err = dst.ToggleFavorite(ctx, s); err != nil {
			return n, fmt.Errorf("import favorite %q: %w", s.VerseReference, err)
		}
		n.Favorites++
	}

	prayers, err := dst.Prayers(ctx)
	if err != nil {
		return n, fmt.Errorf("read prayers: %w", err)
	}
	saved := make(map[string]bool, len(prayers))
	for _, p := range prayers {
		saved[p.ID] = true
	}
	for i := len(lib.Prayers) - 1; i >= 0; i-- {
		p := lib.Prayers[i]
		if saved[p.ID] {
			continue
		}
		if _, err := dst.SavePrayer(ctx, p); err != nil {
			return n, fmt.Errorf("import prayer %s: %w", p.ID, err)
		}
		saved[p.ID] = true
		n.Prayers++
	}
	return n, nil
}

func containsStudy(list []study.Study, s *study.Study) bool {
	for i := range list {
		if study.SameStudy(&list[i], s) {
			return true
		}
	}
	return false
}
