package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirenotify-server/internal/app"
	"github.com/vovakirdan/wirenotify-server/internal/config"
	"github.com/vovakirdan/wirenotify-server/internal/log"
)

type flags struct {
	configPath string
	overrides  config.Config
}

func main() {
	// .env is optional; real environment variables still win.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "wirenotify",
		Short:         "Notification server with realtime websocket delivery",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&f.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&f.overrides.DatabasePath, "db", "", "path to the sqlite database")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), f)
		},
	}
	serve.Flags().StringVar(&f.overrides.Addr, "addr", "", "HTTP listen address")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(f.overrides.LogLevel)
			cfg, _, err := loadConfig(f, logger)
			if err != nil {
				return err
			}
			log.SetLevel(cfg.LogLevel)
			return app.Migrate(cmd.Context(), cfg.DatabasePath, logger)
		},
	}

	// Running without a subcommand serves.
	root.Flags().AddFlagSet(serve.Flags())
	root.RunE = serve.RunE

	root.AddCommand(serve, migrate)
	return root
}

// loadConfig resolves the config file, env and flags. logger only reports
// what happened to the config file itself.
func loadConfig(f flags, logger *zerolog.Logger) (config.Config, string, error) {
	cfg, path, err := config.Load(logger, f.configPath)
	if err != nil {
		return cfg, path, err
	}
	cfg.UpdateFrom(f.overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, path, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

func runServe(parent context.Context, f flags) error {
	// Flags are known before the config file, so they pick the bootstrap level.
	logger := log.New(f.overrides.LogLevel)
	cfg, path, err := loadConfig(f, logger)
	if err != nil {
		return err
	}
	log.SetLevel(cfg.LogLevel)
	logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("config loaded")

	if f.overrides.LogLevel == "" {
		if err := config.Watch(logger, path, func(next config.Config) {
			log.SetLevel(next.LogLevel)
		}); err != nil {
			logger.Warn().Err(err).Msg("config watch disabled")
		}
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Msg("starting wirenotify server")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
