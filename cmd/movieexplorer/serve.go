package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vadimtrunov/movieexplorer/internal/config"
	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/frontend/web"
)

// newServeCmd returns the "serve" subcommand running the web widget.
func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web widget",
		Long: "Serve the movie browser over HTTP. When a Telegram bot token is configured\n" +
			"the bot runs alongside the web server.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Web.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultWebPort, "HTTP port (overrides web.port)")
	return cmd
}

// runServe starts every configured frontend and waits for all of them.
func runServe(cfg *config.Config) error {
	logger := config.SetupLogger(cfg.App.LogLevel, os.Stderr)

	client := initTMDb(cfg, logger)
	factory := newBrowserFactory(client, cfg, logger)
	renderer := newRenderer(cfg)

	frontends := []core.Frontend{
		web.NewServer(web.Options{
			Port:     cfg.Web.Port,
			Factory:  factory,
			Details:  client,
			Renderer: renderer,

			SessionTTL:  cfg.Web.SessionTTL,
			MaxSessions: cfg.Web.MaxSessions,
		}, logger),
	}
	if cfg.TelegramEnabled() {
		bot, err := initTelegramBot(cfg, factory, logger)
		if err != nil {
			return err
		}
		frontends = append(frontends, bot)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return runFrontends(ctx, frontends, logger)
}

// runFrontends runs frontends until ctx is canceled or one of them fails,
// which stops the others.
func runFrontends(ctx context.Context, frontends []core.Frontend, logger *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, f := range frontends {
		g.Go(func() error {
			logger.Info("frontend starting", slog.String("frontend", f.Name()))
			err := f.Start(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("frontend stopped", slog.String("frontend", f.Name()), slog.String("error", err.Error()))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
