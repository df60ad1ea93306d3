package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
	"github.com/ziadkadry99/molscope/internal/chat"
	"github.com/ziadkadry99/molscope/internal/config"
	"github.com/ziadkadry99/molscope/internal/db"
	"github.com/ziadkadry99/molscope/internal/examples"
	"github.com/ziadkadry99/molscope/internal/history"
	"github.com/ziadkadry99/molscope/internal/llm"
	"github.com/ziadkadry99/molscope/internal/logging"
	"github.com/ziadkadry99/molscope/internal/normalize"
	"github.com/ziadkadry99/molscope/internal/rcsb"
	"github.com/ziadkadry99/molscope/internal/render"
	"github.com/ziadkadry99/molscope/internal/session"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `molscope init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the logger from config; --verbose forces debug level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, File: cfg.Log.File})
}

func newRCSBClient(cfg *config.Config, logger *zap.Logger) *rcsb.Client {
	return rcsb.NewClient(rcsb.Config{
		FilesURL:  cfg.RCSB.FilesURL,
		DataURL:   cfg.RCSB.DataURL,
		SearchURL: cfg.RCSB.SearchURL,
		Rows:      cfg.Search.Rows,
		Timeout:   cfg.RCSB.Timeout(),
		CacheSize: cfg.RCSB.CacheSize,
		CacheTTL:  cfg.RCSB.CacheTTL(),
	}, logger)
}

// app bundles the long-lived components behind the server, MCP and load
// commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *rcsb.Client
	db       *db.DB
	history  *history.Store
	coord    *session.Coordinator
	adapter  *render.Adapter
	frames   *render.TickerScheduler
	examples *examples.Catalog
	chat     *chat.Service
}

// appOptions lets a command hook the render adapter into its view layer.
type appOptions struct {
	renderOpts []render.Option
	// observers are released when the surface is disposed.
	observers []func()
}

func newApp(cfg *config.Config, logger *zap.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	a.client = newRCSBClient(cfg, logger)

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = database
	a.history = history.NewStore(database, logger.Named("history"))

	a.frames = render.NewTickerScheduler(0)
	renderOpts := append([]render.Option{
		render.WithFrameScheduler(a.frames),
		render.WithLogger(logger.Named("render")),
	}, opts.renderOpts...)
	a.adapter = render.NewAdapter(renderOpts...)
	if err := a.adapter.Attach(render.NewHeadlessSurface()); err != nil {
		a.Close()
		return nil, fmt.Errorf("attaching surface: %w", err)
	}
	for _, release := range opts.observers {
		if err := a.adapter.Observe(release); err != nil {
			a.Close()
			return nil, fmt.Errorf("observing surface: %w", err)
		}
	}

	style, err := chainstyle.ParseKind(cfg.Viewer.Style)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.coord = session.New(a.client, normalize.PDB{}, a.adapter,
		session.WithStyle(style),
		session.WithLogger(logger.Named("session")))
	a.coord.Subscribe(a.history.Observe)

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	a.examples = examples.New(wd, cfg.Examples.Paths)

	provider, err := llm.NewProvider(string(cfg.Chat.Provider), cfg.Chat.Model)
	if err != nil {
		logger.Warn("chat disabled", zap.String("provider", string(cfg.Chat.Provider)), zap.Error(err))
	} else {
		a.chat = chat.NewService(
			llm.NewRateLimitedProvider(provider, cfg.Chat.RPM),
			a.coord, a.history, cfg.Chat.MaxTurns, logger.Named("chat"))
	}
	return a, nil
}

// Close tears down the session and releases the database.
func (a *app) Close() {
	if a.coord != nil {
		if err := a.coord.Teardown(); err != nil {
			a.logger.Warn("teardown", zap.Error(err))
		}
	} else if a.adapter != nil {
		a.adapter.Dispose()
	}
	if a.frames != nil {
		a.frames.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
}
