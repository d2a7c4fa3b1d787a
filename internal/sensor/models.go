// Package sensor models the fire-monitoring network: sensor nodes, the gateways
// they report through, and known fire incidents.
package sensor

import (
	"time"

	"github.com/firewatch/firewatch/internal/geo"
)

// Status is the liveness of a node or gateway.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
	// StatusPartial only applies to gateways with a mix of active and inactive nodes.
	StatusPartial Status = "Partial"
)

// DefaultGatewayID is assigned to readings that do not name a gateway.
const DefaultGatewayID = "GW-DAG"

// DefaultOrigin is the routing origin used when no gateway is known (Dagupan headquarters).
var DefaultOrigin = geo.Point{Lat: 16.046882, Lon: 120.341154}

// Reading is the latest row reported by a single node.
type Reading struct {
	NodeID      string
	Temperature float64
	Humidity    float64
	Point       geo.Point
	GatewayID   string
	Timestamp   time.Time
}

// Node is a sensor node derived from its latest reading.
type Node struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Point       geo.Point `json:"point"`
	Status      Status    `json:"status"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	GatewayID   string    `json:"gatewayId"`
	LastSeen    time.Time `json:"lastSeen"`
}

// Gateway is a fixed aggregation point. Its status is never stored, see GatewayStatuses.
type Gateway struct {
	ID    string    `json:"id" yaml:"id"`
	Name  string    `json:"name" yaml:"name"`
	Point geo.Point `json:"point" yaml:"point"`
}

// IncidentStatus is the lifecycle state of a fire incident.
type IncidentStatus string

const (
	IncidentActive    IncidentStatus = "Active"
	IncidentContained IncidentStatus = "Contained"
	IncidentResolved  IncidentStatus = "Resolved"
)

// Incident is a reported fire.
type Incident struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Status   IncidentStatus `json:"status" yaml:"status"`
	Barangay string         `json:"barangay" yaml:"barangay"`
	Point    geo.Point      `json:"point" yaml:"point"`
}
