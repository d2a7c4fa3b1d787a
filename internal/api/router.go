// Package api provides the HTTP API for Firewatch.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/api/handler"
	"github.com/firewatch/firewatch/internal/api/middleware"
	"github.com/firewatch/firewatch/internal/geocode"
	"github.com/firewatch/firewatch/internal/pins"
	"github.com/firewatch/firewatch/internal/provider/resilience"
	"github.com/firewatch/firewatch/internal/sensor"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	Readings   sensor.ReadingSource
	Inventory  sensor.Inventory
	Directions handler.Directions
	Geocoder   geocode.Searcher
	Pins       pins.Store

	// Database is pinged by the readiness check. Nil means no database.
	Database handler.Pinger
	Registry *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "firewatch-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // Reject non-JSON bodies

	inventory := cfg.Inventory
	if len(inventory.Gateways) == 0 {
		inventory = sensor.DefaultInventory()
	}

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Database, cfg.Registry)
	networkHandler := handler.NewNetworkHandler(cfg.Readings, inventory, cfg.Logger)
	routeHandler := handler.NewRouteHandler(cfg.Directions, cfg.Logger)
	geocodeHandler := handler.NewGeocodeHandler(cfg.Geocoder, cfg.Logger)
	locationsHandler := handler.NewLocationsHandler(cfg.Pins, cfg.Logger)

	providerRateLimit := middleware.RateLimitByIP(middleware.ProviderRateLimit) // 30 req/min
	searchRateLimit := middleware.RateLimitByIP(middleware.SearchRateLimit)     // 60 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 300 req/min

	r.Route("/api", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/nodes", networkHandler.ListNodes)
			r.Get("/gateways", networkHandler.ListGateways)
			r.Get("/incidents", networkHandler.ListIncidents)
			r.Get("/map.geojson", networkHandler.MapGeoJSON)

			r.Route("/locations", func(r chi.Router) {
				r.Get("/", locationsHandler.ListLocations)
				r.Post("/", locationsHandler.CreateLocation)
				r.Get("/events", locationsHandler.Events)
				r.Delete("/{locationId}", locationsHandler.DeleteLocation)
			})
		})

		// Routing spends provider quota
		r.With(providerRateLimit).Post("/route", routeHandler.ComputeRoute)
		r.With(searchRateLimit).Get("/geocode", geocodeHandler.Search)
	})

	return r
}
