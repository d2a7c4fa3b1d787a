// Package config loads Firewatch runtime configuration from the environment,
// an optional env file, and an optional YAML network inventory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/firewatch/firewatch/internal/database"
	"github.com/firewatch/firewatch/internal/sensor"
)

// DefaultEnvFile is loaded when FIREWATCH_ENV_FILE is unset.
const DefaultEnvFile = ".env"

// Config is the configuration shared by the Firewatch binaries.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	// DatabaseEnabled selects Postgres-backed stores. When false the binaries
	// run on in-memory stores.
	DatabaseEnabled bool
	Database        database.Config

	RequireTLS     bool
	BreakerEnabled bool

	ORS       ORSConfig
	Nominatim NominatimConfig
	Telemetry TelemetryConfig
	PubSub    PubSubConfig

	MonitorInterval time.Duration
	NetworkFile     string
	Inventory       sensor.Inventory

	// APIURL is the Firewatch API used by remote dashboard clients.
	APIURL string
}

// ORSConfig configures the OpenRouteService directions provider.
type ORSConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NominatimConfig configures the geocoding provider.
type NominatimConfig struct {
	BaseURL   string
	Country   string
	Limit     int
	UserAgent string
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
}

// PubSubConfig configures the worker's job subscription and status topic.
// An empty ProjectID disables Pub/Sub.
type PubSubConfig struct {
	ProjectID    string
	Subscription string
	StatusTopic  string
}

// Load reads the env file named by FIREWATCH_ENV_FILE (or .env when present),
// then builds a Config from the environment. Variables already set in the
// environment win over the file.
func Load() (Config, error) {
	envFile := os.Getenv("FIREWATCH_ENV_FILE")
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	var errs []error

	cfg := Config{
		Env:             getEnvOrDefault("APP_ENV", "development"),
		Port:            getEnvOrDefault("APP_PORT", "8080"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		DatabaseEnabled: getBool("DB_ENABLED", true, &errs),
		Database:        database.ConfigFromEnv(),
		RequireTLS:      getBool("REQUIRE_TLS", false, &errs),
		BreakerEnabled:  getBool("PROVIDER_BREAKER_ENABLED", false, &errs),
		ORS: ORSConfig{
			APIKey:  strings.TrimSpace(os.Getenv("ORS_API_KEY")),
			BaseURL: os.Getenv("ORS_BASE_URL"),
			Timeout: getDuration("ORS_TIMEOUT", 10*time.Second, &errs),
		},
		Nominatim: NominatimConfig{
			BaseURL:   os.Getenv("NOMINATIM_BASE_URL"),
			Country:   getEnvOrDefault("NOMINATIM_COUNTRY", "ph"),
			Limit:     getInt("NOMINATIM_LIMIT", 5, &errs),
			UserAgent: os.Getenv("NOMINATIM_USER_AGENT"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBool("OTEL_ENABLED", false, &errs),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
		PubSub: PubSubConfig{
			ProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			Subscription: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "firewatch-worker-jobs"),
			StatusTopic:  os.Getenv("PUBSUB_STATUS_TOPIC"),
		},
		MonitorInterval: getDuration("MONITOR_INTERVAL", 30*time.Second, &errs),
		NetworkFile:     os.Getenv("NETWORK_FILE"),
		APIURL:          getEnvOrDefault("FIREWATCH_API_URL", "http://localhost:8080"),
	}

	if cfg.MonitorInterval <= 0 {
		errs = append(errs, fmt.Errorf("MONITOR_INTERVAL must be positive, got %s", cfg.MonitorInterval))
	}

	inv, err := sensor.LoadInventory(cfg.NetworkFile)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Inventory = inv

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return defaultValue
	}
	return v
}

func getInt(key string, defaultValue int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return defaultValue
	}
	return v
}
