package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/FocuswithJustin/lumina/core/sqlite"
	"github.com/FocuswithJustin/lumina/core/study"
	"github.com/FocuswithJustin/lumina/core/suggest"
	"github.com/FocuswithJustin/lumina/internal/api"
	"github.com/FocuswithJustin/lumina/internal/export"
	"github.com/FocuswithJustin/lumina/internal/storage"
	"github.com/FocuswithJustin/lumina/internal/validation"
)

// ServeCmd starts the API server.
type ServeCmd struct {
	Port int `help:"HTTP server port (overrides server.port)"`
}

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	return g.withApp(ctx, func(rt *runtime) error {
		sc := rt.cfg.Server
		cfg := api.Config{
			Port:              sc.Port,
			RateLimitRequests: sc.RateLimitRequests,
			RateLimitBurst:    sc.RateLimitBurst,
			Auth:              api.AuthConfig{Enabled: sc.AuthEnabled, APIKeys: sc.APIKeys},
			AllowedOrigins:    sc.AllowedOrigins,
			SuggestCacheTTL:   sc.SuggestCacheTTL,
			Version:           version,
		}
		if c.Port != 0 {
			cfg.Port = c.Port
		}
		if sc.TLSCertFile != "" {
			cfg.TLS = api.TLSConfig{Enabled: true, CertFile: sc.TLSCertFile, KeyFile: sc.TLSKeyFile}
		}

		srv, err := api.New(cfg, rt.app, rt.metrics)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	})
}

// SuggestCmd prints reference suggestions. It needs no stores or network.
type SuggestCmd struct {
	Input []string `arg:"" help:"Partial reference, e.g. 'john 3:16'"`
}

func (c *SuggestCmd) Run(out io.Writer) error {
	for _, s := range suggest.Resolve(strings.Join(c.Input, " ")) {
		fmt.Fprintln(out, s)
	}
	return nil
}

// SearchCmd runs a topical search.
type SearchCmd struct {
	Query []string `arg:"" help:"Topic or keywords"`
}

func (c *SearchCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return g.withApp(ctx, func(rt *runtime) error {
		results, err := rt.app.Search(ctx, strings.Join(c.Query, " "))
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "No verses found.")
		}
		for _, r := range results {
			fmt.Fprintf(out, "%s\n  %s\n", r.Reference, r.Text)
			if r.Relevance != "" {
				fmt.Fprintf(out, "  (%s)\n", r.Relevance)
			}
		}
		return nil
	})
}

// StudyCmd generates a study and records it in history.
type StudyCmd struct {
	Reference []string `arg:"" help:"Passage reference or a suggestion label"`
	Compare   string   `help:"Second passage to compare against"`
	NoKJV     bool     `name:"no-kjv" help:"Skip the KJV text"`
}

func (c *StudyCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return g.withApp(ctx, func(rt *runtime) error {
		st, err := rt.app.Study(ctx, strings.Join(c.Reference, " "), c.Compare, !c.NoKJV)
		if err != nil {
			return err
		}
		return printJSON(out, st)
	})
}

// DailyCmd prints the verse of the day.
type DailyCmd struct{}

func (c *DailyCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return g.withApp(ctx, func(rt *runtime) error {
		fmt.Fprintln(out, rt.app.DailyVerse(ctx))
		return nil
	})
}

// ContextCmd prints the passages before and after a reference.
type ContextCmd struct {
	Reference []string `arg:"" help:"Passage reference"`
}

func (c *ContextCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return g.withApp(ctx, func(rt *runtime) error {
		pc, err := rt.app.Context(ctx, strings.Join(c.Reference, " "))
		if err != nil {
			return err
		}
		return printJSON(out, pc)
	})
}

// HistoryGroup contains study history operations.
type HistoryGroup struct {
	List   HistoryListCmd `cmd:"" help:"List recent studies"`
	Export ExportCmd      `cmd:"" help:"Export history, favorites and prayers to XML"`
	Import ImportCmd      `cmd:"" help:"Import a library exported with 'history export'"`
}

type HistoryListCmd struct{}

func (c *HistoryListCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return g.withApp(ctx, func(rt *runtime) error {
		history, err := rt.app.History(ctx)
		if err != nil {
			return err
		}
		printStudies(out, history, "No studies yet.")
		return nil
	})
}

// ExportCmd writes the signed-in user's library. A path ending in .xz is
// compressed.
type ExportCmd struct {
	Path string `arg:"" help:"Output file (.xml or .xml.xz)" type:"path"`
}

func (c *ExportCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	if err := validation.ValidatePath(c.Path); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	return g.withApp(ctx, func(rt *runtime) error {
		lib, err := export.Snapshot(ctx, rt.app)
		if err != nil {
			return err
		}
		if err := export.WriteFile(c.Path, lib, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d studies, %d favorites and %d prayers to %s\n",
			len(lib.History), len(lib.Favorites), len(lib.Prayers), c.Path)
		return nil
	})
}

// ImportCmd merges an exported library into the signed-in user's.
type ImportCmd struct {
	Path string `arg:"" help:"File written by 'history export'" type:"existingfile"`
}

func (c *ImportCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	if err := validation.ValidatePath(c.Path); err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	return g.withApp(ctx, func(rt *runtime) error {
		lib, err := export.ReadFile(c.Path)
		if err != nil {
			return err
		}
		n, err := export.Import(ctx, rt.app, lib)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported %d studies, %d favorites and %d prayers\n", n.History, n.Favorites, n.Prayers)
		return nil
	})
}

// FavoritesGroup contains favorite operations.
type FavoritesGroup struct {
	List FavoritesListCmd `cmd:"" help:"List favorite studies"`
}

type FavoritesListCmd struct{}

func (c *FavoritesListCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return g.withApp(ctx, func(rt *runtime) error {
		favs, err := rt.app.Favorites(ctx)
		if err != nil {
			return err
		}
		printStudies(out, favs, "No favorites yet.")
		return nil
	})
}

// PrayersGroup contains prayer operations.
type PrayersGroup struct {
	List     PrayersListCmd    `cmd:"" help:"List saved prayers"`
	Generate PrayerGenerateCmd `cmd:"" help:"Write a prayer in the voice of a biblical figure"`
	Delete   PrayerDeleteCmd   `cmd:"" help:"Delete a saved prayer"`
}

type PrayersListCmd struct{}

func (c *PrayersListCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return g.withApp(ctx, func(rt *runtime) error {
		prayers, err := rt.app.Prayers(ctx)
		if err != nil {
			return err
		}
		if len(prayers) == 0 {
			fmt.Fprintln(out, "No saved prayers.")
		}
		for _, p := range prayers {
			fmt.Fprintf(out, "%s  %s  %s\n", p.ID, formatTime(p.Timestamp), p.Character)
		}
		return nil
	})
}

type PrayerGenerateCmd struct {
	Character string `help:"Biblical figure to pray as (random when empty)"`
	Theme     string `help:"What the prayer is about"`
	Save      bool   `help:"Keep the prayer in the library" default:"true" negatable:""`
}

func (c *PrayerGenerateCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return g.withApp(ctx, func(rt *runtime) error {
		p, err := rt.app.GeneratePrayer(ctx, c.Character, c.Theme)
		if err != nil {
			return err
		}
		if c.Save {
			if _, err := rt.app.SavePrayer(ctx, *p); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "%s\n\n%s\n\n%s\n", p.Character, p.Content.Text, p.Content.Affirmation)
		return nil
	})
}

type PrayerDeleteCmd struct {
	ID string `arg:"" help:"Prayer id"`
}

func (c *PrayerDeleteCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	if err := api.ValidateID(c.ID); err != nil {
		return err
	}
	return g.withApp(ctx, func(rt *runtime) error {
		prayers, err := rt.app.DeletePrayer(ctx, c.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d prayers remaining\n", len(prayers))
		return nil
	})
}

// LoginGroup contains sign-in modes.
type LoginGroup struct {
	Guest  LoginGuestCmd  `cmd:"" help:"Keep the library on this device"`
	Google LoginGoogleCmd `cmd:"" help:"Sign in with Google and keep the library in the cloud"`
}

type LoginGuestCmd struct{}

func (c *LoginGuestCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return login(ctx, g, out, storage.ModeGuest)
}

type LoginGoogleCmd struct{}

func (c *LoginGoogleCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return login(ctx, g, out, storage.ModeGoogle)
}

func login(ctx context.Context, g *Globals, out io.Writer, mode storage.Mode) error {
	return g.withApp(ctx, func(rt *runtime) error {
		u, err := rt.app.Session().Login(ctx, mode)
		if err != nil {
			return err
		}
		printUser(out, u)
		return nil
	})
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return g.withApp(ctx, func(rt *runtime) error {
		if err := rt.app.Session().Teardown(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Signed out.")
		return nil
	})
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	return g.withApp(ctx, func(rt *runtime) error {
		u, ok := rt.app.Session().User()
		if !ok {
			fmt.Fprintln(out, "Not signed in.")
			return nil
		}
		printUser(out, u)
		return nil
	})
}

type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(out, "lumina version %s\n", version)
	fmt.Fprintf(out, "sqlite: %s (%s)\n", info.DriverType, info.Package)
	return nil
}

// Helper functions

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStudies(out io.Writer, list []study.Study, empty string) {
	if len(list) == 0 {
		fmt.Fprintln(out, empty)
		return
	}
	for _, s := range list {
		ref := s.VerseReference
		if second := s.SecondReference(); second != "" {
			ref += " vs " + second
		}
		fmt.Fprintf(out, "%s  %s\n", formatTime(s.Timestamp), ref)
	}
}

func printUser(out io.Writer, u storage.UserContext) {
	if u.Mode == storage.ModeGoogle {
		fmt.Fprintf(out, "Signed in with Google as %s (%s)\n", u.DisplayName, u.UID)
		return
	}
	fmt.Fprintln(out, "Signed in as guest")
}

func formatTime(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
