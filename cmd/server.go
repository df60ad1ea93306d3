package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/molscope/internal/dashboard"
	"github.com/ziadkadry99/molscope/internal/render"
	"github.com/ziadkadry99/molscope/internal/search"
	"github.com/ziadkadry99/molscope/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the viewer server",
	Long:  `Starts the molscope HTTP server with the browser viewer, the session REST API and the live websocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		hub := dashboard.NewHub(logger.Named("hub"))
		viewport := dashboard.NewViewport(cfg.Viewer.NarrowWidth, hub)

		a, err := newApp(cfg, logger, appOptions{
			renderOpts: []render.Option{render.WithNarrowViewport(viewport.IsNarrow, viewport.Collapse)},
			observers:  []func(){viewport.Release},
		})
		if err != nil {
			return err
		}
		defer a.Close()

		deps := dashboard.Deps{
			Session:  a.coord,
			Search:   a.client,
			History:  a.history,
			Examples: a.examples,
			Hub:      hub,
			Viewport: viewport,
			SearchOptions: []search.Option{
				search.WithDebounce(cfg.Search.Debounce()),
				search.WithMinQueryLength(cfg.Search.MinQueryLength),
			},
			MinQueryLength: cfg.Search.MinQueryLength,
		}
		if a.chat != nil {
			deps.Chat = a.chat
		}

		srv := server.New(server.Config{
			Port:     cfg.Server.Port,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, a.db, logger)

		dash := dashboard.New(deps, logger)
		defer dash.Close()
		dash.RegisterRoutes(srv.Router())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown", zap.Error(err))
			}
		}()

		fmt.Fprintf(os.Stderr, "molscope server %s on http://localhost:%d\n", Version, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", a.db.Path())
		fmt.Fprintf(os.Stderr, "  Chat: %s\n", chatStatus(a))

		return srv.Start()
	},
}

func chatStatus(a *app) string {
	if a.chat == nil {
		return "disabled"
	}
	return fmt.Sprintf("%s (%s)", a.cfg.Chat.Provider, a.cfg.Chat.Model)
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
