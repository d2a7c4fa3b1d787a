package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/api/models"
	"github.com/firewatch/firewatch/internal/api/response"
	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/pins"
)

// DefaultHeartbeat is the interval between keep-alive comments on the
// location event stream.
const DefaultHeartbeat = 25 * time.Second

// ChangeEvent is the SSE event name sent after every change to the collection.
const ChangeEvent = "change"

// LocationsHandler serves the saved-locations collection.
type LocationsHandler struct {
	store     pins.Store
	heartbeat time.Duration
	logger    zerolog.Logger
}

// NewLocationsHandler creates a new LocationsHandler.
func NewLocationsHandler(store pins.Store, logger zerolog.Logger) *LocationsHandler {
	return &LocationsHandler{
		store:     store,
		heartbeat: DefaultHeartbeat,
		logger:    logger.With().Str("handler", "locations").Logger(),
	}
}

// WithHeartbeat overrides the keep-alive interval of the event stream.
func (h *LocationsHandler) WithHeartbeat(d time.Duration) *LocationsHandler {
	if d > 0 {
		h.heartbeat = d
	}
	return h
}

// ListLocations handles GET /api/locations.
func (h *LocationsHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list locations")
		response.ServiceUnavailable(w, r, "locations are unavailable")
		return
	}

	items := make([]models.Location, 0, len(locs))
	for _, l := range locs {
		items = append(items, locationModel(l))
	}
	response.JSON(w, r, http.StatusOK, models.LocationList{Items: items})
}

// CreateLocation handles POST /api/locations.
func (h *LocationsHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var input models.CreateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrors []models.FieldError
	if input.Latitude == nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "latitude", Message: "latitude is required", Code: "required"})
	}
	if input.Longitude == nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "longitude", Message: "longitude is required", Code: "required"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	loc, err := h.store.Add(r.Context(), pins.Location{
		Name:        input.Name,
		Description: input.Description,
		Point:       geo.Point{Lat: *input.Latitude, Lon: *input.Longitude},
	})
	switch {
	case errors.Is(err, pins.ErrNameRequired):
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "name", Message: "name is required", Code: "required"},
		})
		return
	case errors.Is(err, geo.ErrInvalidCoordinates):
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "latitude", Message: "coordinates are out of range", Code: "range"},
		})
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("failed to save location")
		response.InternalError(w, r, "failed to save location")
		return
	}

	response.Created(w, r, fmt.Sprintf("/api/locations/%s", loc.ID), locationModel(loc))
}

// DeleteLocation handles DELETE /api/locations/{locationId}.
func (h *LocationsHandler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "locationId")
	if id == "" {
		response.BadRequest(w, r, "locationId is required", nil)
		return
	}

	err := h.store.Remove(r.Context(), id)
	switch {
	case errors.Is(err, pins.ErrNotFound):
		response.NotFound(w, r, "location not found")
		return
	case err != nil:
		h.logger.Error().Err(err).Str("location_id", id).Msg("failed to remove location")
		response.InternalError(w, r, "failed to remove location")
		return
	}
	response.NoContent(w, r)
}

// Events handles GET /api/locations/events - a server-sent event stream with
// one "change" event after every change to the collection.
func (h *LocationsHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, r, "streaming is not supported")
		return
	}

	ctx := r.Context()
	changes, err := h.store.Watch(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to watch locations")
		response.ServiceUnavailable(w, r, "location events are unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	var seq int
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			seq++
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: {}\n\n", seq, ChangeEvent); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func locationModel(l pins.Location) models.Location {
	return models.Location{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		Latitude:    l.Point.Lat,
		Longitude:   l.Point.Lon,
		CreatedAt:   models.Timestamp(l.CreatedAt),
	}
}
