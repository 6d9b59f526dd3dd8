package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ambuflow/backend/internal/config"
	"github.com/ambuflow/backend/internal/geocode"
	httpapi "github.com/ambuflow/backend/internal/http"
	"github.com/ambuflow/backend/internal/provider"
	"github.com/ambuflow/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "ambuflow-backend").Logger()

	geocoder := &geocode.NominatimGeocoder{BaseURL: cfg.GeocodeURL}

	router := &provider.Router{
		URLs:    config.SplitURLs(cfg.OSRMURLs),
		Timeout: cfg.ProviderTimeout,
		Logger:  logger,
	}
	solver := &provider.Solver{
		URLs:    config.SplitURLs(cfg.VROOMURLs),
		Timeout: cfg.ProviderTimeout,
		Logger:  logger,
	}

	floors := service.Floors{
		Accept:        cfg.AcceptFloor,
		Available:     cfg.AvailableFloor,
		CrossType:     cfg.CrossTypeFloor,
		Busy:          cfg.BusyFloor,
		VehicleChange: cfg.VehicleChangeFloor,
		Reschedule:    cfg.RescheduleFloor,
	}
	optimizer := service.New(geocoder, logger, floors)
	orchestrator := service.NewOrchestrator(optimizer, router, solver, logger, cfg.ProbeTimeout)

	engine := httpapi.Router(cfg, optimizer, orchestrator, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
