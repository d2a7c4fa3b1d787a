package models

// RouteRequest is the body of POST /api/route. Absent fields are nil so that
// a zero coordinate stays distinguishable from a missing one.
type RouteRequest struct {
	StartLat *float64 `json:"startLat"`
	StartLng *float64 `json:"startLng"`
	EndLat   *float64 `json:"endLat"`
	EndLng   *float64 `json:"endLng"`
}

// Complete reports whether all four coordinates are present.
func (r RouteRequest) Complete() bool {
	return r.StartLat != nil && r.StartLng != nil && r.EndLat != nil && r.EndLng != nil
}

// RouteResponse is a computed route. Path holds [lon, lat] pairs.
type RouteResponse struct {
	Path     [][2]float64 `json:"path"`
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
}
