package handler

import (
	"net/http"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/api/models"
	"github.com/firewatch/firewatch/internal/api/response"
	"github.com/firewatch/firewatch/internal/sensor"
)

// NetworkHandler serves the sensor network: nodes, gateways and incidents.
type NetworkHandler struct {
	readings  sensor.ReadingSource
	inventory sensor.Inventory
	now       func() time.Time
	logger    zerolog.Logger
}

// NewNetworkHandler creates a new NetworkHandler.
func NewNetworkHandler(readings sensor.ReadingSource, inventory sensor.Inventory, logger zerolog.Logger) *NetworkHandler {
	return &NetworkHandler{
		readings:  readings,
		inventory: inventory,
		now:       time.Now,
		logger:    logger.With().Str("handler", "network").Logger(),
	}
}

// ListNodes handles GET /api/nodes - latest reading per node.
// Status is computed here from recency; clients may recompute it.
func (h *NetworkHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, ok := h.nodes(w, r)
	if !ok {
		return
	}

	out := make([]models.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, models.Node{
			ID:          n.ID,
			Name:        n.Name,
			Temperature: n.Temperature,
			Humidity:    n.Humidity,
			Lat:         n.Point.Lat,
			Lon:         n.Point.Lon,
			GatewayID:   n.GatewayID,
			Timestamp:   models.Timestamp(n.LastSeen),
			Status:      string(n.Status),
		})
	}
	w.Header().Set("Cache-Control", "no-store")
	response.JSON(w, r, http.StatusOK, out)
}

// ListGateways handles GET /api/gateways - gateways with aggregated status.
func (h *NetworkHandler) ListGateways(w http.ResponseWriter, r *http.Request) {
	nodes, ok := h.nodes(w, r)
	if !ok {
		return
	}

	statuses := sensor.GatewayStatuses(h.inventory.Gateways, nodes)
	out := make([]models.Gateway, 0, len(statuses))
	for _, gs := range statuses {
		out = append(out, gatewayModel(gs))
	}
	response.JSON(w, r, http.StatusOK, out)
}

// ListIncidents handles GET /api/incidents.
func (h *NetworkHandler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	out := make([]models.Incident, 0, len(h.inventory.Incidents))
	for _, inc := range h.inventory.Incidents {
		out = append(out, models.Incident{
			ID:       inc.ID,
			Name:     inc.Name,
			Status:   string(inc.Status),
			Barangay: inc.Barangay,
			Lat:      inc.Point.Lat,
			Lon:      inc.Point.Lon,
		})
	}
	response.JSON(w, r, http.StatusOK, out)
}

// MapGeoJSON handles GET /api/map.geojson - every map entity as one
// FeatureCollection. Each feature carries a "kind" property.
func (h *NetworkHandler) MapGeoJSON(w http.ResponseWriter, r *http.Request) {
	nodes, ok := h.nodes(w, r)
	if !ok {
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, gs := range sensor.GatewayStatuses(h.inventory.Gateways, nodes) {
		f := geojson.NewFeature(gs.Point.Orb())
		f.ID = gs.ID
		f.Properties["kind"] = "gateway"
		f.Properties["name"] = gs.Name
		f.Properties["status"] = string(gs.Status)
		f.Properties["nodeCount"] = gs.NodeCount
		fc.Append(f)
	}
	for _, n := range nodes {
		f := geojson.NewFeature(n.Point.Orb())
		f.ID = n.ID
		f.Properties["kind"] = "node"
		f.Properties["name"] = n.Name
		f.Properties["status"] = string(n.Status)
		f.Properties["temp"] = n.Temperature
		f.Properties["humidity"] = n.Humidity
		f.Properties["gatewayId"] = n.GatewayID
		fc.Append(f)
	}
	for _, inc := range h.inventory.Incidents {
		f := geojson.NewFeature(inc.Point.Orb())
		f.ID = inc.ID
		f.Properties["kind"] = "incident"
		f.Properties["name"] = inc.Name
		f.Properties["status"] = string(inc.Status)
		f.Properties["barangay"] = inc.Barangay
		fc.Append(f)
	}

	body, err := fc.MarshalJSON()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode map features")
		response.InternalError(w, r, "failed to encode map features")
		return
	}
	response.GeoJSON(w, r, http.StatusOK, body)
}

func (h *NetworkHandler) nodes(w http.ResponseWriter, r *http.Request) ([]sensor.Node, bool) {
	readings, err := h.readings.LatestReadings(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load latest readings")
		response.ServiceUnavailable(w, r, "sensor readings are unavailable")
		return nil, false
	}
	return sensor.NodesFromReadings(readings, h.now(), sensor.DefaultGatewayID), true
}

func gatewayModel(gs sensor.GatewayStatus) models.Gateway {
	return models.Gateway{
		ID:          gs.ID,
		Name:        gs.Name,
		Lat:         gs.Point.Lat,
		Lon:         gs.Point.Lon,
		Status:      string(gs.Status),
		NodeCount:   gs.NodeCount,
		ActiveCount: gs.ActiveCount,
	}
}
