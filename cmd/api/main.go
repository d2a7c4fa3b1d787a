// Package main provides the entrypoint for the Firewatch API server.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firewatch/firewatch/internal/api"
	"github.com/firewatch/firewatch/internal/api/handler"
	"github.com/firewatch/firewatch/internal/api/middleware"
	"github.com/firewatch/firewatch/internal/config"
	"github.com/firewatch/firewatch/internal/database"
	"github.com/firewatch/firewatch/internal/geocode"
	"github.com/firewatch/firewatch/internal/logging"
	"github.com/firewatch/firewatch/internal/pins"
	"github.com/firewatch/firewatch/internal/provider/resilience"
	"github.com/firewatch/firewatch/internal/routing"
	"github.com/firewatch/firewatch/internal/routing/openrouteservice"
	"github.com/firewatch/firewatch/internal/sensor"
	"github.com/firewatch/firewatch/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "firewatch-api"

	cfg, err := config.Load()

	log := logging.New(logging.Config{
		Service: serviceName,
		Version: Version,
		Level:   cfg.LogLevel,
		Pretty:  os.Getenv("LOG_PRETTY") == "true",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting Firewatch API")

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		Logger:         log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Stores: Postgres when enabled, in-memory otherwise
	var (
		readings sensor.ReadingSource
		store    pins.Store
		pinger   handler.Pinger
	)
	if cfg.DatabaseEnabled {
		pool, err := database.Connect(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")

		readings = sensor.NewPostgresRepository(pool)
		store = pins.NewPostgresStore(pool, log)
		pinger = pool
	} else {
		log.Warn().Msg("database disabled - using in-memory stores")
		readings = sensor.NewInMemoryRepository()
		store = pins.NewMemoryStore()
	}

	// External providers
	registry := resilience.NewRegistry()

	ors := openrouteservice.NewClient(openrouteservice.ClientConfig{
		APIKey:         cfg.ORS.APIKey,
		BaseURL:        cfg.ORS.BaseURL,
		Timeout:        cfg.ORS.Timeout,
		Registry:       registry,
		BreakerEnabled: cfg.BreakerEnabled,
		Logger:         log,
	})
	if !ors.Configured() {
		log.Warn().Msg("ORS_API_KEY not set - route requests will fail")
	}
	directions := routing.NewService(routing.ServiceConfig{Provider: ors, Logger: log})

	geocoder := geocode.NewClient(geocode.ClientConfig{
		BaseURL:        cfg.Nominatim.BaseURL,
		CountryCodes:   cfg.Nominatim.Country,
		Limit:          cfg.Nominatim.Limit,
		UserAgent:      cfg.Nominatim.UserAgent,
		Registry:       registry,
		BreakerEnabled: cfg.BreakerEnabled,
		Logger:         log,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		RequireTLS:  cfg.RequireTLS,
		Readings:    readings,
		Inventory:   cfg.Inventory,
		Directions:  directions,
		Geocoder:    geocoder,
		Pins:        store,
		Database:    pinger,
		Registry:    registry,
	})

	// WriteTimeout stays unset: the location event stream is long-lived and
	// every other handler is bounded by its provider or database timeout.
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	// Cancelling request contexts ends open event streams.
	server.RegisterOnShutdown(cancelRequests)

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Int("gateways", len(cfg.Inventory.Gateways)).
			Int("incidents", len(cfg.Inventory.Incidents)).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown timed out, closing remaining connections")
		_ = server.Close()
	}

	log.Info().Msg("server stopped")
}
