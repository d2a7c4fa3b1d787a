package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/api/models"
	"github.com/firewatch/firewatch/internal/api/response"
	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/routing"
)

// Directions computes a route between two points.
type Directions interface {
	Directions(ctx context.Context, start, end geo.Point) (*routing.Route, error)
}

// RouteHandler proxies directions requests to the routing provider. Errors use
// the {"message": ...} body rather than problem+json.
type RouteHandler struct {
	directions Directions
	logger     zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(directions Directions, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{
		directions: directions,
		logger:     logger.With().Str("handler", "route").Logger(),
	}
}

// ComputeRoute handles POST /api/route.
func (h *RouteHandler) ComputeRoute(w http.ResponseWriter, r *http.Request) {
	var input models.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || !input.Complete() {
		response.Message(w, r, http.StatusBadRequest, "Missing required coordinates")
		return
	}

	start := geo.Point{Lat: *input.StartLat, Lon: *input.StartLng}
	end := geo.Point{Lat: *input.EndLat, Lon: *input.EndLng}

	route, err := h.directions.Directions(r.Context(), start, end)
	if err != nil {
		var routeErr *routing.Error
		if errors.As(err, &routeErr) && routeErr.StatusCode != 0 {
			response.Message(w, r, routeErr.StatusCode, routeErr.Message)
			return
		}
		h.logger.Error().Err(err).Msg("directions request failed")
		response.Message(w, r, http.StatusInternalServerError, "Failed to fetch route")
		return
	}

	path := make([][2]float64, len(route.Path))
	for i, p := range route.Path {
		path[i] = [2]float64{p.Lon, p.Lat}
	}

	w.Header().Set("Cache-Control", "no-store")
	response.JSON(w, r, http.StatusOK, models.RouteResponse{
		Path:     path,
		Distance: route.DistanceMeters,
		Duration: route.DurationSeconds,
	})
}
