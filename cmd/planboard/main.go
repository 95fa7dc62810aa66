package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/planboard/planboard/internal/activity"
	"github.com/planboard/planboard/internal/config"
	"github.com/planboard/planboard/internal/health"
	"github.com/planboard/planboard/internal/httpapi"
	"github.com/planboard/planboard/internal/metrics"
	"github.com/planboard/planboard/internal/seed"
	"github.com/planboard/planboard/internal/store"
	"github.com/planboard/planboard/internal/tracker"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("PLANBOARD_ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("data_dir", cfg.DataDir).
		Msg("starting planboard")

	ds, err := store.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open data store")
	}

	m := metrics.New()
	recorder := activity.NewRecorder(ds, cfg.LogRetention, logger)
	tr := tracker.New(ds, recorder, m, logger)

	if cfg.SeedFile != "" {
		if err := seed.Apply(cfg.SeedFile, tr, logger); err != nil {
			logger.Fatal().Err(err).Str("file", cfg.SeedFile).Msg("failed to apply seed fixture")
		}
	}

	checker := health.NewChecker(logger)
	checker.Register("datastore", func(ctx context.Context) health.Status {
		if err := ds.Ping(); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	handlers := httpapi.NewHandlers(tr, recorder, ds, checker, m, logger)
	server := httpapi.NewServer(httpapi.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		AuthConfig: httpapi.AuthConfig{
			Mode:   cfg.AuthMode,
			APIKey: cfg.APIKey,
		},
		RateLimit: httpapi.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
	}, handlers, checker, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}

	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}

	logger.Info().Msg("planboard stopped")
}
