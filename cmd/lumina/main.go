// Command lumina serves the Lumina Bible-study API and exposes its
// operations on the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/lumina/core/sqlite"
	"github.com/FocuswithJustin/lumina/internal/ai"
	"github.com/FocuswithJustin/lumina/internal/config"
	"github.com/FocuswithJustin/lumina/internal/logging"
	"github.com/FocuswithJustin/lumina/internal/lumina"
	"github.com/FocuswithJustin/lumina/internal/metrics"
	"github.com/FocuswithJustin/lumina/internal/server"
	"github.com/FocuswithJustin/lumina/internal/session"
	"github.com/FocuswithJustin/lumina/internal/storage"
)

const version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	Config    string `name:"config" short:"c" help:"Path to lumina.yaml" type:"path" env:"LUMINA_CONFIG"`
	DataDir   string `name:"data-dir" help:"Override the data directory" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (json, text)"`
	Model     string `name:"model" help:"Generative model to use by default"`
}

// CLI defines the command-line interface for lumina.
type CLI struct {
	Globals

	// Command groups (noun-first organization)
	Serve     ServeCmd       `cmd:"" help:"Start the REST and WebSocket API server"`
	Suggest   SuggestCmd     `cmd:"" help:"Suggest passage references for partial input"`
	Search    SearchCmd      `cmd:"" help:"Search verses by topic or keyword"`
	Study     StudyCmd       `cmd:"" help:"Generate a study for a passage"`
	Daily     DailyCmd       `cmd:"" help:"Print today's verse"`
	Context   ContextCmd     `cmd:"" help:"Show the passages around a reference"`
	History   HistoryGroup   `cmd:"" help:"Study history (list, export, import)"`
	Favorites FavoritesGroup `cmd:"" help:"Favorite studies"`
	Prayers   PrayersGroup   `cmd:"" help:"Saved prayers (list, generate, delete)"`
	Login     LoginGroup     `cmd:"" help:"Sign in as a guest or with Google"`
	Logout    LogoutCmd      `cmd:"" help:"Sign out"`
	Whoami    WhoamiCmd      `cmd:"" help:"Show the signed-in user"`
	Version   VersionCmd     `cmd:"" help:"Print version information"`
}

// runtime holds everything a command needs once the config is loaded.
type runtime struct {
	cfg     *config.Config
	device  *storage.DeviceStore
	cloud   *storage.CloudStore
	metrics *metrics.Metrics
	app     *lumina.App
}

// open loads the config, configures logging and opens both stores. The
// caller must Close the result.
func (g *Globals) open(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.DataDir != "" {
		cfg.DataDir = g.DataDir
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Log.Format = g.LogFormat
	}
	if g.Model != "" {
		cfg.AI.Model = g.Model
	}
	logging.InitLoggerTo(os.Stderr, logging.ParseLevel(cfg.Log.Level), logging.ParseFormat(cfg.Log.Format))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	device, err := storage.OpenDevice(filepath.Join(cfg.DataDir, "device.db"))
	if err != nil {
		return nil, err
	}
	cloud, err := storage.OpenCloud(filepath.Join(cfg.DataDir, "cloud"))
	if err != nil {
		device.Close()
		return nil, err
	}

	logging.Debug("stores opened",
		"data_dir", server.AbsPath(cfg.DataDir),
		"sqlite_driver", sqlite.DriverType(),
	)

	sess := session.New(device)
	if err := sess.Init(ctx); err != nil {
		logging.Warn("session restore failed, starting signed out", "error", err)
	}

	m := metrics.New()
	lib := storage.NewLibrary(device, cloud, storage.WithMetrics(m))
	creds := lumina.CredentialSource(sess, session.Credentials{APIKey: cfg.AI.APIKey, Model: cfg.AI.Model})
	svc := ai.NewService(ai.NewGenAI(cfg.AI.Timeout), creds, ai.WithMetrics(m))

	return &runtime{
		cfg:     cfg,
		device:  device,
		cloud:   cloud,
		metrics: m,
		app:     lumina.New(sess, lib, svc, device),
	}, nil
}

func (rt *runtime) Close() error {
	cerr := rt.cloud.Close()
	if err := rt.device.Close(); err != nil {
		return err
	}
	return cerr
}

// withApp opens the runtime for the duration of fn.
func (g *Globals) withApp(ctx context.Context, fn func(*runtime) error) error {
	rt, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

// run parses args and executes the selected command, writing command
// output to out.
func run(ctx context.Context, args []string, out io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("lumina"),
		kong.Description("Lumina - AI-assisted Bible study"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Writers(out, os.Stderr),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(out, (*io.Writer)(nil)),
		kong.Bind(&cli.Globals),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "lumina: %v\n", err)
		os.Exit(1)
	}
}
