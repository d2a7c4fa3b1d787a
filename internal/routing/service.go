package routing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/firewatch/firewatch/internal/geo"
)

const meterName = "github.com/firewatch/firewatch/internal/routing"

// Service validates route requests and forwards each one to the provider once.
// Results are never cached: a repeated request reaches the provider again.
type Service struct {
	provider Provider
	logger   zerolog.Logger

	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger
}

// NewService creates a routing service.
func NewService(cfg ServiceConfig) *Service {
	meter := otel.Meter(meterName)

	// Instrument creation only fails on invalid names.
	duration, _ := meter.Float64Histogram(
		"routing.provider.duration",
		metric.WithDescription("Duration of routing provider calls in seconds"),
		metric.WithUnit("s"),
	)
	total, _ := meter.Int64Counter(
		"routing.provider.requests",
		metric.WithDescription("Routing provider calls by outcome"),
		metric.WithUnit("{request}"),
	)

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger.With().Str("component", "routing").Logger(),
		requestDuration: duration,
		requestTotal:    total,
	}
}

// Directions computes a route from start to end.
func (s *Service) Directions(ctx context.Context, start, end geo.Point) (*Route, error) {
	if start.Validate() != nil || end.Validate() != nil {
		return nil, &Error{
			Provider:   s.provider.Name(),
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid coordinates",
			Err:        ErrInvalidCoordinates,
		}
	}

	began := time.Now()
	route, err := s.provider.Directions(ctx, start, end)
	elapsed := time.Since(began)

	attrs := []attribute.KeyValue{
		attribute.String("provider.name", s.provider.Name()),
		attribute.String("outcome", outcome(err)),
	}
	s.requestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	s.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil {
		s.logger.Warn().
			Err(err).
			Dur("duration", elapsed).
			Msg("directions request failed")
		return nil, err
	}

	s.logger.Info().
		Float64("distance_m", route.DistanceMeters).
		Float64("duration_s", route.DurationSeconds).
		Int("points", len(route.Path)).
		Dur("duration", elapsed).
		Msg("directions computed")

	return route, nil
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoRouteFound):
		return "no_route"
	case errors.Is(err, ErrMissingAPIKey):
		return "misconfigured"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	default:
		return "unavailable"
	}
}
