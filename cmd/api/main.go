package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/example/cartelera/internal/api"
	"github.com/example/cartelera/internal/api/ws"
	"github.com/example/cartelera/internal/app"
	"github.com/example/cartelera/internal/command"
	"github.com/example/cartelera/internal/config"
	"github.com/example/cartelera/internal/infrastructure/catalogsource"
	"github.com/example/cartelera/internal/logging"
	"github.com/example/cartelera/internal/persistence"
	"github.com/example/cartelera/internal/query"
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
	log := logging.Component(logger, "api")

	// The catalog gates everything else: no catalog, no server.
	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	catalog, err := catalogsource.Load(loadCtx, cfg.CatalogSource)
	loadCancel()
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.CatalogSource).Msg("failed to load catalog")
	}
	log.Info().Int("events", catalog.Len()).Str("source", cfg.CatalogSource).Msg("catalog loaded")

	kv, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
	}
	defer closeStore()

	publisher, closePublisher, err := app.OpenPublisher(cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Str("broker", cfg.EventsBroker).Msg("failed to open event broker")
	}
	defer closePublisher()

	hub := ws.NewHub(logger, func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || cfg.CORSAllowedOrigin == "*" || origin == cfg.CORSAllowedOrigin
	})

	gateway := persistence.NewGateway(kv, logger)
	cmdHandler := command.NewHandler(catalog, gateway,
		command.WithPublisher(publisher),
		command.WithNotifier(hub),
		command.WithLogger(logger),
	)
	queryHandler := query.NewHandler(catalog, cfg.QueryCacheTTL, logger)

	router := api.NewRouter(api.RouterConfig{
		Handlers:      api.NewHandlers(cmdHandler, queryHandler, gateway, hub),
		Logger:        logger,
		AllowedOrigin: cfg.CORSAllowedOrigin,
		WebDir:        os.Getenv("WEB_DIR"),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreBackend).
			Str("broker", cfg.EventsBroker).Msg("server started")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	wg.Wait()
}
