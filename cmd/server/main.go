// Command server runs the storefront: HTML pages and the JSON API over one
// HTTP listener, backed by the remote product catalog.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sarthakastic/storefront/internal/app"
	"github.com/sarthakastic/storefront/internal/config"
	"github.com/sarthakastic/storefront/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("storefront exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New("storefront", cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting storefront",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("catalog_base_url", cfg.BaseURL),
		slog.Bool("redis_enabled", cfg.RedisEnabled),
		slog.Bool("kafka_enabled", cfg.KafkaEnabled),
	)
	if cfg.UsingFallbackBaseURL() {
		log.Warn("API_BASE_URL and API_URL are unset, using the public catalog",
			slog.String("base_url", cfg.BaseURL))
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	log.Info("storefront stopped")
	return nil
}
