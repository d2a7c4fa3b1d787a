// Package main provides the entrypoint for the Firewatch worker: the gateway
// status monitor and its Pub/Sub job consumer.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub/v2"

	"github.com/firewatch/firewatch/internal/client"
	"github.com/firewatch/firewatch/internal/config"
	"github.com/firewatch/firewatch/internal/database"
	"github.com/firewatch/firewatch/internal/logging"
	"github.com/firewatch/firewatch/internal/sensor"
	"github.com/firewatch/firewatch/internal/telemetry"
	"github.com/firewatch/firewatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "firewatch-worker"

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
		Msg("starting Firewatch worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Readings come straight from Postgres, or from the API when the worker
	// runs without a database.
	var readings sensor.ReadingSource
	if cfg.DatabaseEnabled {
		pool, err := database.Connect(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		readings = sensor.NewPostgresRepository(pool)
		log.Info().Str("database", cfg.Database.Database).Msg("reading node feed from database")
	} else {
		readings = client.New(client.Config{BaseURL: cfg.APIURL, Logger: log})
		log.Info().Str("api_url", cfg.APIURL).Msg("reading node feed from API")
	}

	metrics := worker.NewMetrics()

	var (
		pubsubClient *pubsub.Client
		publisher    *worker.TopicPublisher
	)
	if cfg.PubSub.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create Pub/Sub client")
		}
		defer pubsubClient.Close()

		if cfg.PubSub.StatusTopic != "" {
			publisher = worker.NewTopicPublisher(pubsubClient, cfg.PubSub.StatusTopic, log)
			defer publisher.Stop()
		}
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set - status changes are only logged")
	}

	deps := worker.MonitorDeps{
		Config: worker.MonitorConfig{
			Interval:  cfg.MonitorInterval,
			Inventory: cfg.Inventory,
		},
		Readings: readings,
		Metrics:  metrics,
		Logger:   log,
	}
	if publisher != nil {
		deps.Publisher = publisher
	}
	monitor := worker.NewMonitor(deps)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: worker.NewHealthRouter(worker.HealthConfig{
			Version: Version,
			Monitor: monitor,
			Metrics: metrics,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	go monitor.Run(ctx)

	if pubsubClient != nil {
		handler := worker.NewPubSubHandler(pubsubClient, worker.PubSubConfig{
			SubscriptionName: cfg.PubSub.Subscription,
			Jobs:             monitor,
			Metrics:          metrics,
			Logger:           log,
		})
		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Pub/Sub receiver stopped")
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
