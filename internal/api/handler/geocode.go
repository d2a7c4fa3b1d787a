package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/api/models"
	"github.com/firewatch/firewatch/internal/api/response"
	"github.com/firewatch/firewatch/internal/geocode"
)

// GeocodeHandler serves place suggestions for the search box.
type GeocodeHandler struct {
	searcher geocode.Searcher
	logger   zerolog.Logger
}

// NewGeocodeHandler creates a new GeocodeHandler.
func NewGeocodeHandler(searcher geocode.Searcher, logger zerolog.Logger) *GeocodeHandler {
	return &GeocodeHandler{
		searcher: searcher,
		logger:   logger.With().Str("handler", "geocode").Logger(),
	}
}

// Search handles GET /api/geocode?q= - place suggestions.
// Short queries yield an empty list.
func (h *GeocodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.searcher.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("geocode search failed")
		response.BadGateway(w, r, "geocoding provider is unavailable")
		return
	}

	out := make([]models.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, models.Suggestion{
			PlaceID:     s.PlaceID,
			Lat:         s.Point.Lat,
			Lon:         s.Point.Lon,
			DisplayName: s.DisplayName,
		})
	}
	response.JSON(w, r, http.StatusOK, out)
}
