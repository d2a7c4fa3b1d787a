package models

// Node is one row of the latest-reading feed.
type Node struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Temperature float64   `json:"temp"`
	Humidity    float64   `json:"humidity"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	GatewayID   string    `json:"gatewayId"`
	Timestamp   Timestamp `json:"timestamp"`
	Status      string    `json:"status"`
}

// Gateway is a gateway with the status aggregated from its nodes.
type Gateway struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Status      string  `json:"status"`
	NodeCount   int     `json:"nodeCount"`
	ActiveCount int     `json:"activeCount"`
}

// Incident is a known fire incident.
type Incident struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Barangay string  `json:"barangay"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// Suggestion is a geocoding result.
type Suggestion struct {
	PlaceID     int64   `json:"placeId"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"displayName"`
}
