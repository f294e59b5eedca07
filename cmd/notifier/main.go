package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/example/cartelera/internal/app"
	"github.com/example/cartelera/internal/config"
	"github.com/example/cartelera/internal/email"
	"github.com/example/cartelera/internal/infrastructure/catalogsource"
	"github.com/example/cartelera/internal/logging"
	"github.com/example/cartelera/internal/notification"
	zlog "github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := app.Logger(cfg)
	log := logging.Component(logger, "notifier")

	// Titles are a nicety; confirmations still go out without the catalog.
	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	catalog, err := catalogsource.Load(loadCtx, cfg.CatalogSource)
	loadCancel()
	if err != nil {
		log.Warn().Err(err).Msg("catalog unavailable, emails will show event ids")
	}

	subscriber, err := app.OpenSubscriber(cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open event broker")
	}
	defer subscriber.Close()

	emailSvc := email.NewService(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort), cfg.SMTPFrom)
	handler := notification.NewHandler(emailSvc, catalog, logger)

	log.Info().Str("broker", cfg.EventsBroker).
		Str("smtp", cfg.SMTPHost+":"+strconv.Itoa(cfg.SMTPPort)).
		Str("from", cfg.SMTPFrom).Msg("starting event consumer")

	if err := subscriber.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("consumer stopped")
	}
	log.Info().Msg("shutting down")
}
