package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/example/cartelera/internal/app"
	"github.com/example/cartelera/internal/config"
	"github.com/example/cartelera/internal/logging"
	"github.com/example/cartelera/internal/projection"
	zlog "github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid configuration")
	}
	// The projector needs its own consumer group so it sees every event
	// the notifier sees.
	if cfg.EventsBroker == config.BrokerKafka {
		cfg.KafkaGroupID = cfg.KafkaGroupID + "-projector"
	}
	logger := app.Logger(cfg)
	log := logging.Component(logger, "projector")

	kv, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
	}
	defer closeStore()

	subscriber, err := app.OpenSubscriber(cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open event broker")
	}
	defer subscriber.Close()

	projector := projection.NewProjector(kv, logger)

	log.Info().Str("broker", cfg.EventsBroker).Str("store", cfg.StoreBackend).Msg("starting event consumer")
	if err := subscriber.Consume(ctx, projector.HandleEvent); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("consumer stopped")
	}
	log.Info().Msg("shutting down")
}
