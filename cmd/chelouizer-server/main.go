package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chelouizer/internal/bootstrap"
	"chelouizer/internal/config"
	"chelouizer/internal/httpapi"
	"chelouizer/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(config.LoggingConfig{}).Fatal().Err(err).Msg("config load failed")
	}
	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := httpapi.NewHub(logger)
	services, err := bootstrap.BuildWithConfig(ctx, cfg, logger, hub, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("service init failed")
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewServer(services.Controller, hub, services.Metrics.Handler(), services.Metrics, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.Close()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", cfg.HTTP.Addr).Msg("listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("http server stopped")
	}

	services.Controller.Close()
	logger.Info().Msg("shutdown complete")
}
